package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBacklog      = 64
)

// eventHub fans engine events out to websocket subscribers. A slow subscriber
// drops events rather than blocking the vault call that emitted them.
type eventHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *types.Event
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan *types.Event)}
}

// Emit implements events.Emitter.
func (h *eventHub) Emit(evt events.Event) {
	if h == nil || evt == nil {
		return
	}
	payload := broadcastPayload(evt)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}

// broadcastPayload flattens a typed payload into its wire event. Payloads
// without a converter still surface their type.
func broadcastPayload(evt events.Event) *types.Event {
	if typed, ok := evt.(interface{ Event() *types.Event }); ok {
		return typed.Event()
	}
	return &types.Event{Type: evt.EventType()}
}

func (h *eventHub) subscribe() (int, chan *types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan *types.Event, wsBacklog)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *eventHub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// handleEventsWS streams vault events as JSON frames until the client hangs
// up or the server shuts down. The stream requires the bearer token when one
// is configured and is open otherwise.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.authToken != "" {
		if authErr := s.requireAuth(r); authErr != nil {
			http.Error(w, authErr.Message, http.StatusUnauthorized)
			return
		}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	id, updates := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	if err := s.streamEvents(r.Context(), conn, updates); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan *types.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
