// Package hub manages connected avatar renderer clients and fans playback
// tasks out to them over WebSocket.
package hub

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
	"github.com/gorilla/websocket"
)

// ConfigWriter receives state reported back by connected renderers.
type ConfigWriter interface {
	SetAvatarEvent(ev opconfig.AvatarEvent) error
	SetAvatarCommand(cmd opconfig.AvatarCommand) error
}

// Hub tracks connected renderer clients. All methods are safe for
// concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	store ConfigWriter

	broadcasts uint64
}

// NewHub creates a hub. store may be nil when inbound renderer messages
// should be ignored.
func NewHub(store ConfigWriter) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		store:   store,
	}
}

// register adds a client to the registry.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	events.Emit("info", "client.connected", "renderer connected", map[string]interface{}{
		"remote_addr": c.remoteAddr,
		"clients":     count,
	})
}

// unregister removes a client and closes its send channel. Safe to call
// more than once for the same client.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		// Closed under the write lock so Broadcast, which sends while
		// holding the read lock, can never race a send against the close.
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	events.Emit("info", "client.disconnected", "renderer disconnected", map[string]interface{}{
		"remote_addr": c.remoteAddr,
		"clients":     count,
	})
}

// Broadcast queues a payload for every connected client. A client whose
// send buffer is full is dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(payload []byte) {
	atomic.AddUint64(&h.broadcasts, 1)

	var dropped []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		log.Printf("hub: client %s send buffer full, dropping", c.remoteAddr)
		events.Emit("warning", "client.send_failed", "send buffer full", map[string]interface{}{
			"remote_addr": c.remoteAddr,
		})
		h.unregister(c)
		c.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastCount returns the total number of Broadcast calls.
func (h *Hub) BroadcastCount() uint64 {
	return atomic.LoadUint64(&h.broadcasts)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.unregister(c)
		c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an HTTP request to a renderer WebSocket connection and
// starts its pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: ws upgrade failed: %v", err)
		return
	}

	c := newClient(h, conn)
	h.register(c)

	go c.writePump()
	go c.readPump()
}
