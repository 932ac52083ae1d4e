package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Logger is shared between hubs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// CustomerEvent is a message pushed to customers.
type CustomerEvent struct {
	Type       string  `json:"type"`
	RequestID  string  `json:"request_id"`
	OldStatus  string  `json:"old_status,omitempty"`
	Status     string  `json:"status,omitempty"`
	Radius     int     `json:"radius,omitempty"`
	ProviderID int64   `json:"provider_id,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// CustomerHub manages customer websocket connections.
type CustomerHub struct {
	upgrader websocket.Upgrader
	logger   Logger

	mu    sync.RWMutex
	conns map[int64]*websocket.Conn
	wmu   map[int64]*sync.Mutex
}

// NewCustomerHub constructs customer hub.
func NewCustomerHub(logger Logger) *CustomerHub {
	return &CustomerHub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		conns:    make(map[int64]*websocket.Conn),
		wmu:      make(map[int64]*sync.Mutex),
	}
}

// ServeWS handles customer connections.
func (h *CustomerHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseIDParam(r, "customer_id")
	if err != nil {
		http.Error(w, "missing customer_id", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("customer ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if old, ok := h.conns[customerID]; ok {
		_ = old.Close()
	}
	h.conns[customerID] = conn
	if _, ok := h.wmu[customerID]; !ok {
		h.wmu[customerID] = &sync.Mutex{}
	}
	h.mu.Unlock()

	go h.readLoop(customerID, conn)
}

func (h *CustomerHub) readLoop(customerID int64, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.mu.Lock()
		delete(h.conns, customerID)
		delete(h.wmu, customerID)
		h.mu.Unlock()
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if mt == websocket.TextMessage {
			if strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
				_ = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			}
		}
	}
}

func (h *CustomerHub) safeWrite(customerID int64, writer func(*websocket.Conn) error) {
	h.mu.RLock()
	conn := h.conns[customerID]
	mu := h.wmu[customerID]
	h.mu.RUnlock()
	if conn == nil || mu == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := writer(conn); err != nil {
		h.logger.Errorf("customer %d write failed: %v", customerID, err)
	}
}

// PushRequestEvent sends an event to the customer.
func (h *CustomerHub) PushRequestEvent(customerID int64, event CustomerEvent) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	_, ok := h.conns[customerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.safeWrite(customerID, func(conn *websocket.Conn) error {
		return conn.WriteMessage(websocket.TextMessage, eventBytes)
	})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	if v := r.URL.Query().Get(name); v != "" {
		return strconv.ParseInt(v, 10, 64)
	}
	if v := r.Header.Get("X-" + name); v != "" {
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, strconv.ErrSyntax
}
