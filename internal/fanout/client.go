package fanout

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"mesa/internal/domain"
)

// Client message types.
const (
	MessageJoinKitchen = "join:kitchen"
	MessageJoinTable   = "join:table"
)

const maxMessageSize = 4 * 1024

// ClientConfig tunes connection keepalive and buffering.
type ClientConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

// DefaultClientConfig returns the standard keepalive settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SendBuffer:   256,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	return c
}

// TableResolver looks up tables for join:table requests.
type TableResolver interface {
	Resolve(code string) (*domain.Table, error)
}

// Authenticator extracts the staff principal from the upgrade request, or nil.
type Authenticator func(r *http.Request) *domain.Principal

type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one websocket connection.
type Client struct {
	id        string
	conn      *websocket.Conn
	hub       *Hub
	tables    TableResolver
	principal *domain.Principal
	cfg       ClientConfig

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Send queues msg without blocking.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendEvent(event string, payload any) {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return
	}
	if !c.Send(msg) {
		log.Warn().Str("conn_id", c.id).Str("event", event).Msg("Client buffer full, dropping message")
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, map[string]string{"message": message})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.id).Msg("WebSocket read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	switch msg.Event {
	case MessageJoinKitchen:
		if !c.principal.HasRole(domain.RoleKitchen, domain.RoleAdmin) {
			c.sendError("kitchen access requires staff login")
			return
		}
		c.hub.JoinKitchen(c)
		c.sendEvent(EventJoined, map[string]string{"group": GroupKitchen})

	case MessageJoinTable:
		var code string
		if err := json.Unmarshal(msg.Data, &code); err != nil || code == "" {
			c.sendError("table code required")
			return
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		if _, err := c.tables.Resolve(code); err != nil {
			c.sendError("unknown table")
			return
		}
		c.hub.JoinTable(c, code)
		c.sendEvent(EventJoined, map[string]string{"group": TableGroup(code)})

	default:
		c.sendError("unknown event")
	}
}

// Handler upgrades HTTP requests to websocket clients of a hub.
type Handler struct {
	hub          *Hub
	tables       TableResolver
	authenticate Authenticator
	cfg          ClientConfig
	upgrader     websocket.Upgrader
}

// NewHandler creates a websocket endpoint. authenticate may be nil.
func NewHandler(hub *Hub, tables TableResolver, authenticate Authenticator, cfg ClientConfig) *Handler {
	return &Handler{
		hub:          hub,
		tables:       tables,
		authenticate: authenticate,
		cfg:          cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var principal *domain.Principal
	if h.authenticate != nil {
		principal = h.authenticate(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	c := &Client{
		id:        uuid.New().String(),
		conn:      conn,
		hub:       h.hub,
		tables:    h.tables,
		principal: principal,
		cfg:       h.cfg,
		send:      make(chan []byte, h.cfg.SendBuffer),
	}
	h.hub.Register(c)

	log.Debug().Str("conn_id", c.id).Bool("staff", principal != nil).Msg("WebSocket client connected")

	go c.writePump()
	go c.readPump()
}
