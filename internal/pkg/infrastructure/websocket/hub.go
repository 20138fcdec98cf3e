package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBufSize  = 32
)

const (
	MessageTypeTelemetry        string = "telemetry"
	MessageTypeDynamicTelemetry string = "dynamic-telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Envelope is the JSON frame written to subscribers.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// OrganizationResolver maps an incoming request to the organization whose telemetry it may receive.
type OrganizationResolver func(r *http.Request) (uint, bool)

type Hub struct {
	resolve OrganizationResolver

	mu      sync.RWMutex
	clients map[uint]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	org  uint
}

func NewHub(resolve OrganizationResolver) *Hub {
	return &Hub{
		resolve: resolve,
		clients: make(map[uint]map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	orgID, ok := h.resolve(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		org:  orgID,
	}

	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

func (h *Hub) BroadcastLegacy(organizationID uint, msg types.LegacyTelemetryMessage) {
	h.broadcast(organizationID, MessageTypeTelemetry, msg)
}

func (h *Hub) BroadcastDynamic(organizationID uint, msg types.DynamicTelemetryMessage) {
	h.broadcast(organizationID, MessageTypeDynamicTelemetry, msg)
}

// Count returns the number of subscribers of an organization.
func (h *Hub) Count(organizationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[organizationID])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for org, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, org)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.org]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.org] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.org]
	if !ok {
		return
	}

	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}

	if len(set) == 0 {
		delete(h.clients, c.org)
	}
}

func (h *Hub) broadcast(organizationID uint, messageType string, data any) {
	b, err := json.Marshal(Envelope{Type: messageType, Data: data})
	if err != nil {
		return
	}

	// sends happen under the read lock so that no channel is closed while in use
	var slow []*client

	h.mu.RLock()
	for c := range h.clients[organizationID] {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
