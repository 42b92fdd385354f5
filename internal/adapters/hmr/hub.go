// Package hmr implements the hot update channel and the development HTTP server.
package hmr

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Broadcaster = (*Hub)(nil)

const (
	// DefaultQueueSize is the number of messages buffered per client.
	DefaultQueueSize = 16

	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Hub tracks connected HMR clients and fans messages out to them. A client
// whose queue is full or whose connection fails is dropped; building goes on.
type Hub struct {
	logger    ports.Logger
	queueSize int
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *websocket.PreparedMessage

	acked atomic.Int64
}

type client struct {
	conn *websocket.Conn
	send chan *websocket.PreparedMessage
	once sync.Once
}

// NewHub creates a Hub. A queueSize of zero selects DefaultQueueSize.
func NewHub(logger ports.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection as a client.
// A newly connected client first receives the most recent message so that it
// can tell whether its bundle is stale.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "expected websocket upgrade", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan *websocket.PreparedMessage, h.queueSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast queues msg for every connected client without blocking.
func (h *Hub) Broadcast(msg domain.HMRMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(zerr.Wrap(err, "failed to encode hmr message"))
		return
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		h.logger.Error(zerr.Wrap(err, "failed to prepare hmr message"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = pm
	for c := range h.clients {
		select {
		case c.send <- pm:
		default:
			h.logger.Warn("hmr client too slow, disconnecting " + c.conn.RemoteAddr().String())
			h.dropLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// LastAck returns the highest generation acknowledged by any client.
func (h *Hub) LastAck() int {
	return int(h.acked.Load())
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() {
		close(c.send)
	})
}

func (h *Hub) writePump(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()

	for pm := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WritePreparedMessage(pm); err != nil {
			h.drop(c)
			// Drain so that Broadcast never blocks on a dead client.
			for range c.send { //nolint:revive // draining
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	for {
		var msg domain.HMRMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != domain.HMRAck {
			continue
		}
		for {
			prev := h.acked.Load()
			if int64(msg.Generation) <= prev || h.acked.CompareAndSwap(prev, int64(msg.Generation)) {
				break
			}
		}
	}
}
