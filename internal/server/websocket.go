package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/forPelevin/h8less/internal/session"
)

const eventSessionUpdate = "session:update"

// Hub fans session changes out to connected browsers. Pages reload on any
// update, so clients only need the version and the busy flag.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    []byte
	log     *slog.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sessionUpdate struct {
	Version uint64 `json:"version"`
	Busy    bool   `json:"busy"`
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{clients: make(map[*wsClient]struct{}), log: log}
}

// Run forwards every session transition until ctx is done.
func (h *Hub) Run(ctx context.Context, s *session.Session) {
	updates, cancel := s.Subscribe()
	defer cancel()
	h.publish(s.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			h.publish(st)
		}
	}
}

func (h *Hub) publish(st session.State) {
	msg, err := json.Marshal(wsMessage{
		Event: eventSessionUpdate,
		Data:  sessionUpdate{Version: st.Version, Busy: st.Busy},
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	// new clients start from the current version
	if h.last != nil {
		c.send <- h.last
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept", slog.Any("error", err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	s.hub.add(client)
	s.log.DebugContext(r.Context(), "websocket client connected", slog.Int("clients", s.hub.ClientCount()))

	ctx := r.Context()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// The page never sends anything; reading only detects the close.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.hub.remove(client)
	s.log.DebugContext(r.Context(), "websocket client disconnected")
}
