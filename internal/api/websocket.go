package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/gorilla/websocket"
)

// The live event stream replays a short backlog on connect, then relays
// every event the emitter publishes until the operator disconnects.
const (
	// Events replayed to a freshly connected operator console.
	streamBacklog = 50

	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	// Must stay below streamPongWait.
	streamPingPeriod = 54 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement is left to the deployment's reverse proxy.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventStream couples one operator connection to an emitter subscription.
type eventStream struct {
	conn *websocket.Conn
	sub  events.Subscriber
}

func (s *eventStream) close() {
	events.Unsubscribe(s.sub)
	s.conn.Close()
}

// write marshals one event and sends it within the stream write deadline.
// Events that fail to marshal are skipped rather than tearing the stream.
func (s *eventStream) write(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// wsEventsHandler upgrades the request and streams monitor events to an
// operator console until either side disconnects.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("event stream upgrade failed: %v", err)
		return
	}

	s := &eventStream{conn: conn, sub: events.Subscribe()}
	defer s.close()

	for _, e := range events.RecentEvents(streamBacklog) {
		if err := s.write(e); err != nil {
			log.Printf("event stream backlog write failed: %v", err)
			return
		}
	}

	// The reader only services pongs and surfaces the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(streamPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case e, ok := <-s.sub:
			if !ok {
				return
			}
			if err := s.write(e); err != nil {
				log.Printf("event stream write failed: %v", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
