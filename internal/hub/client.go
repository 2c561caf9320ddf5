package hub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Per-client outbound queue depth
	sendBuffer = 32
)

// Client is a single connected avatar renderer.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		remoteAddr: conn.RemoteAddr().String(),
	}
}

// inboundMessage covers both report shapes a renderer sends: playback
// events and operator-style commands relayed through the renderer UI.
type inboundMessage struct {
	Event   string `json:"event"`
	Type    string `json:"type"`
	Src     string `json:"src"`
	Command string `json:"command"`
	Text    string `json:"text"`
}

// readPump reads renderer reports until the connection drops and writes
// them into the operator config store.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	// Key presence decides the shape: "event" marks a playback report,
	// otherwise "command" marks a relayed operator command.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.invalid(data, err)
		return
	}

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.invalid(data, err)
		return
	}

	if _, ok := raw["event"]; ok {
		if c.hub.store == nil {
			return
		}
		ev := opconfig.AvatarEvent{Event: msg.Event, Type: msg.Type, Src: msg.Src}
		if err := c.hub.store.SetAvatarEvent(ev); err != nil {
			log.Printf("hub: record avatar event: %v", err)
		}
		events.Emit("info", "avatar.event", "renderer reported playback event", map[string]interface{}{
			"event": msg.Event,
			"type":  msg.Type,
			"src":   msg.Src,
		})
		return
	}

	if _, ok := raw["command"]; ok {
		if c.hub.store == nil {
			return
		}
		cmd := opconfig.AvatarCommand{Command: msg.Command, Text: msg.Text}
		if err := c.hub.store.SetAvatarCommand(cmd); err != nil {
			log.Printf("hub: record avatar command: %v", err)
		}
		events.Emit("info", "operator.command", "renderer relayed command", map[string]interface{}{
			"command": msg.Command,
		})
		return
	}

	c.invalid(data, nil)
}

func (c *Client) invalid(data []byte, err error) {
	fields := map[string]interface{}{
		"remote_addr": c.remoteAddr,
		"payload":     truncate(string(data), 200),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	events.Emit("warning", "client.message_invalid", "unparseable renderer message", fields)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// writePump drains the send queue to the peer and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("hub: write to %s failed: %v", c.remoteAddr, err)
				events.Emit("warning", "client.send_failed", "write failed", map[string]interface{}{
					"remote_addr": c.remoteAddr,
					"error":       err.Error(),
				})
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
