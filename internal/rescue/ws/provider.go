package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roadassist/internal/rescue/geo"
)

// OfferPayload represents a request offer sent to a provider over WS.
type OfferPayload struct {
	Type         string  `json:"type"`
	RequestID    string  `json:"request_id"`
	RequestType  string  `json:"request_type"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	Address      string  `json:"address,omitempty"`
	FuelType     string  `json:"fuel_type,omitempty"`
	FuelLiters   float64 `json:"fuel_liters,omitempty"`
	DistanceM    float64 `json:"distance_m"`
	ExpiresInSec int     `json:"expires_in"`
}

// ProviderHub manages provider websocket connections and keeps the geo
// index fresh from the location payloads providers stream in.
type ProviderHub struct {
	upgrader websocket.Upgrader
	locator  *geo.ProviderLocator
	logger   Logger

	mu     sync.RWMutex
	conns  map[int64]*websocket.Conn
	cities map[int64]string
	wmu    map[int64]*sync.Mutex
}

// NewProviderHub creates provider hub.
func NewProviderHub(locator *geo.ProviderLocator, logger Logger) *ProviderHub {
	return &ProviderHub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		locator:  locator,
		logger:   logger,
		conns:    make(map[int64]*websocket.Conn),
		cities:   make(map[int64]string),
		wmu:      make(map[int64]*sync.Mutex),
	}
}

// ServeWS handles provider websocket connections.
func (h *ProviderHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	providerID, err := parseIDParam(r, "provider_id")
	if err != nil {
		http.Error(w, "missing provider_id", http.StatusUnauthorized)
		return
	}
	city := r.URL.Query().Get("city")
	if city == "" {
		city = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("provider ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if old, ok := h.conns[providerID]; ok {
		_ = old.Close()
	}
	h.conns[providerID] = conn
	h.cities[providerID] = city
	if _, ok := h.wmu[providerID]; !ok {
		h.wmu[providerID] = &sync.Mutex{}
	}
	h.mu.Unlock()

	go h.readLoop(providerID, conn, city)
}

func (h *ProviderHub) readLoop(providerID int64, conn *websocket.Conn, city string) {
	defer func() {
		conn.Close()
		h.mu.Lock()
		delete(h.conns, providerID)
		delete(h.cities, providerID)
		delete(h.wmu, providerID)
		h.mu.Unlock()
		h.logger.Infof("provider %d disconnected", providerID)
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(1000 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(1000 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(1000 * time.Second))
		var payload struct {
			Lon    float64 `json:"lon"`
			Lat    float64 `json:"lat"`
			Status string  `json:"status"`
		}
		if err := json.Unmarshal(message, &payload); err != nil {
			h.logger.Errorf("provider %d invalid payload: %v", providerID, err)
			continue
		}
		status := payload.Status
		if status == "" {
			status = "active"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = h.locator.UpdateProvider(ctx, providerID, payload.Lon, payload.Lat, city, status)
		cancel()
	}
}

// IsConnected reports whether the provider currently holds a live socket.
func (h *ProviderHub) IsConnected(providerID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[providerID] != nil
}

// safeWrite serializes writes per connection. The dispatcher loop and the
// notifier can target the same provider concurrently and gorilla/websocket
// allows only one writer at a time.
func (h *ProviderHub) safeWrite(providerID int64, writer func(*websocket.Conn) error) {
	h.mu.RLock()
	conn := h.conns[providerID]
	mu := h.wmu[providerID]
	h.mu.RUnlock()
	if conn == nil || mu == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := writer(conn); err != nil {
		h.logger.Errorf("provider %d write failed: %v", providerID, err)
	}
}

// SendOffer sends a request offer to a provider.
func (h *ProviderHub) SendOffer(providerID int64, payload OfferPayload) {
	payload.Type = "request_offer"
	h.safeWrite(providerID, func(conn *websocket.Conn) error {
		return conn.WriteJSON(payload)
	})
}

// NotifyOfferClosed tells losing providers that the request is gone.
func (h *ProviderHub) NotifyOfferClosed(requestID string, providerIDs []int64, reason string) {
	payload := struct {
		Type      string `json:"type"`
		RequestID string `json:"request_id"`
		Reason    string `json:"reason"`
	}{Type: "offer_closed", RequestID: requestID, Reason: reason}

	for _, id := range providerIDs {
		h.safeWrite(id, func(conn *websocket.Conn) error {
			return conn.WriteJSON(payload)
		})
	}
}

// PushEvent sends an arbitrary event to a provider.
func (h *ProviderHub) PushEvent(providerID int64, event CustomerEvent) {
	h.safeWrite(providerID, func(conn *websocket.Conn) error {
		return conn.WriteJSON(event)
	})
}
