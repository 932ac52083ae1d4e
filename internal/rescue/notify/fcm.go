package notify

import (
	"context"

	"firebase.google.com/go/messaging"
)

// FCMPusher sends push notifications through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

// NewFCMPusher constructs an FCMPusher.
func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

// Push sends a single high-priority notification to the token.
func (p *FCMPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority_channel",
			},
		},
	}
	_, err := p.client.Send(ctx, message)
	return err
}
