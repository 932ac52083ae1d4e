package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testLogger struct{}

func (testLogger) Infof(format string, args ...interface{})  {}
func (testLogger) Errorf(format string, args ...interface{}) {}

func dialProvider(t *testing.T, hub *ProviderHub, providerID int64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("?provider_id=%d&city=almaty", providerID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for !hub.IsConnected(providerID) {
		if time.Now().After(deadline) {
			t.Fatal("provider connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

// The dispatcher loop and the lifecycle notifier both push to provider
// connections; writes to one connection must be serialized or the websocket
// library panics.
func TestProviderHubConcurrentWrites(t *testing.T) {
	hub := NewProviderHub(nil, testLogger{})
	conn := dialProvider(t, hub, 7)

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers * 2)
	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			hub.SendOffer(7, OfferPayload{RequestID: fmt.Sprintf("req-%d", n), DistanceM: 350})
		}(i)
		go func() {
			defer wg.Done()
			hub.NotifyOfferClosed("req-x", []int64{7}, "taken")
		}()
	}

	received := 0
	for received < writers*2 {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read %d failed: %v", received, err)
		}
		received++
	}
	wg.Wait()
}

func TestProviderHubDropsUnknownProvider(t *testing.T) {
	hub := NewProviderHub(nil, testLogger{})
	// No connection registered: must be a silent no-op, not a panic.
	hub.SendOffer(99, OfferPayload{RequestID: "req-1"})
	hub.PushEvent(99, CustomerEvent{Type: "status_update"})
	if hub.IsConnected(99) {
		t.Fatal("expected provider 99 to be disconnected")
	}
}
