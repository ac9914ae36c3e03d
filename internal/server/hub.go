// internal/server/hub.go
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer. The event stream is one-way, so
	// clients have no business sending anything large.
	maxMessageSize = 4096
	// Outbound buffer per client. Slow consumers that fall this far behind get
	// disconnected rather than stalling the broadcast loop.
	clientSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections for now.
		// TODO: Implement a proper origin check.
		return true
	},
}

// client is a middleman between one websocket connection and the hub.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte
}

// readPump drains the connection so pings/pongs and close frames are
// processed. Inbound payloads are ignored: the event stream is broadcast-only.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// Run already closed every client; nobody is left to service
			// the unregister channel.
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Websocket client read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued events to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans task lifecycle events out to all connected websocket clients. It
// implements agent.EventSink, so the task manager can publish into it without
// knowing about websockets.
type Hub struct {
	logger     *zap.Logger
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	// Closed when Run returns, so clients never block on an unserviced
	// register/unregister channel during shutdown.
	done chan struct{}
	mu   sync.RWMutex
}

// NewHub creates an event hub. Run must be started before clients connect.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger.Named("event_hub"),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run services the hub channels until the context is canceled, then closes
// every client connection.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Event hub started.")
	defer h.logger.Info("Event hub stopped.")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.logger.Info("Websocket client connected.", zap.String("client_id", c.id))
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info("Websocket client disconnected.", zap.String("client_id", c.id))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts one task event to all connected clients. Publishing never
// blocks the task loop: when the hub is saturated the event is dropped with a
// warning.
func (h *Hub) Publish(event schemas.Event) {
	message, err := jsoniter.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event for broadcast.", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Event hub saturated, dropping event.",
			zap.String("type", string(event.Type)),
			zap.String("task_id", event.TaskID),
		)
	}
}

// HandleWS upgrades the request and attaches the client to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket.", zap.Error(err))
		return
	}
	c := &client{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		h.logger.Warn("Rejecting websocket client, hub is stopped.", zap.String("client_id", c.id))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
