// internal/handlers/hub.go
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients of the snapshot feed must
// request.
const Subprotocol = "dartkeeper"

const (
	subscriberBuffer = 16
	writeTimeout     = 3 * time.Second
)

type subscriber struct {
	send   chan []byte
	remote string
}

// Hub fans session views out to every connected WebSocket client. A client that
// falls more than a buffer behind is disconnected instead of stalling the rest.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	last   uint64 // highest view sequence sent
	logger *logrus.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{subs: make(map[*subscriber]struct{}), logger: logger}
}

// Broadcast queues v for every subscriber. It never blocks on a slow client.
// Views that arrive after a newer one was sent are dropped, so the last frame a
// client sees is always the latest state. Suitable as SessionStore.BroadcastFn.
func (h *Hub) Broadcast(v game.SessionView) {
	data := game.EncodeView(v)

	h.mu.Lock()
	defer h.mu.Unlock()
	if v.Seq != 0 && v.Seq <= h.last {
		return
	}
	if v.Seq > h.last {
		h.last = v.Seq
	}
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.logger.WithField("remote", sub.remote).Warn("dropping slow snapshot subscriber")
			delete(h.subs, sub)
			close(sub.send)
		}
	}
}

// Count is the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// register adds a subscriber whose first message is the current view.
func (h *Hub) register(remote string, current func() game.SessionView) *subscriber {
	sub := &subscriber{send: make(chan []byte, subscriberBuffer), remote: remote}
	h.mu.Lock()
	defer h.mu.Unlock()
	v := current()
	if v.Seq > h.last {
		h.last = v.Seq
	}
	sub.send <- game.EncodeView(v)
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// ServeWS upgrades the connection and streams session views until the client
// goes away. Incoming messages are ignored; all input goes through the REST
// endpoints.
func (h *Hub) ServeWS(sessions *game.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // the feed is served on localhost only
		})
		if err != nil {
			h.logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			h.logger.Warnf("Client %s connected with invalid subprotocol: %q", r.RemoteAddr, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'dartkeeper' subprotocol.")
			return
		}

		// CloseRead discards client frames and cancels ctx once the peer closes.
		ctx := c.CloseRead(r.Context())
		sub := h.register(r.RemoteAddr, sessions.View)
		middleware.LogWebSocketConnect(h.logger, r.RemoteAddr, h.Count())

		err = h.writeLoop(ctx, c, sub)
		h.unregister(sub)
		middleware.LogWebSocketDisconnect(h.logger, r.RemoteAddr, h.Count(), err)
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *websocket.Conn, sub *subscriber) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-sub.send:
			if !ok {
				c.Close(SlowSubscriberError, "Too far behind the snapshot feed.")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
