package notify

import (
	"context"
	"fmt"
	"time"

	"roadassist/internal/rescue/repo"
	"roadassist/internal/rescue/ws"
)

// Logger is the minimal logging interface required by the dispatcher.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Pusher delivers a push notification to a device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// Dispatcher fans status-change events out to websocket hubs and FCM device
// tokens. Every delivery is fire-and-forget: failures are logged and never
// propagate into the lifecycle transaction that triggered them.
type Dispatcher struct {
	customers *ws.CustomerHub
	providers *ws.ProviderHub
	tokens    *repo.DeviceTokensRepo
	pusher    Pusher
	logger    Logger
}

// NewDispatcher constructs a Dispatcher. pusher may be nil when FCM is not
// configured.
func NewDispatcher(customers *ws.CustomerHub, providers *ws.ProviderHub, tokens *repo.DeviceTokensRepo, pusher Pusher, logger Logger) *Dispatcher {
	return &Dispatcher{customers: customers, providers: providers, tokens: tokens, pusher: pusher, logger: logger}
}

// StatusChanged publishes a status transition to the requester and, when
// assigned, the provider.
func (d *Dispatcher) StatusChanged(req repo.Request, oldStatus, newStatus string) {
	event := ws.CustomerEvent{
		Type:      "status_changed",
		RequestID: req.ID,
		OldStatus: oldStatus,
		Status:    newStatus,
	}
	if req.ProviderID.Valid {
		event.ProviderID = req.ProviderID.Int64
	}
	d.customers.PushRequestEvent(req.RequesterID, event)
	if req.ProviderID.Valid {
		d.providers.PushEvent(req.ProviderID.Int64, event)
	}
	d.push(req.RequesterID, "Request update", fmt.Sprintf("Your %s request is now %s", req.Type, newStatus), map[string]string{
		"request_id": req.ID,
		"status":     newStatus,
	})
}

// RequestCreated publishes the creation event back to the requester.
func (d *Dispatcher) RequestCreated(req repo.Request) {
	d.customers.PushRequestEvent(req.RequesterID, ws.CustomerEvent{
		Type:      "request_created",
		RequestID: req.ID,
		Status:    req.Status,
	})
}

// OffersClosed tells losing providers the request was taken.
func (d *Dispatcher) OffersClosed(requestID string, providerIDs []int64) {
	d.providers.NotifyOfferClosed(requestID, providerIDs, "accepted_by_other")
}

func (d *Dispatcher) push(userID int64, title, body string, data map[string]string) {
	if d.pusher == nil || d.tokens == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokens, err := d.tokens.ListByUser(ctx, userID)
	if err != nil {
		d.logger.Errorf("notify: list tokens for user %d failed: %v", userID, err)
		return
	}
	for _, token := range tokens {
		if err := d.pusher.Push(ctx, token, title, body, data); err != nil {
			d.logger.Errorf("notify: push to user %d failed: %v", userID, err)
		}
	}
}
