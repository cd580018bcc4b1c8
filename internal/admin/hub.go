package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"botops-coord/internal/events"
)

const (
	clientBuffer = 256
	writeTimeout = 5 * time.Second
)

// streamEnvelope wraps an event row with its kind for websocket clients.
type streamEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans coordination events out to connected websocket clients. It
// implements the simulator's event writer interfaces, so it can sit in the
// writer chain next to file or database sinks.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan []byte
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		log: logger,
	}
}

// Handler upgrades the request and streams events until the client leaves.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		out := make(chan []byte, clientBuffer)
		h.mu.Lock()
		h.clients[conn] = out
		h.mu.Unlock()
		h.log.Debug("stream client connected", "remote", r.RemoteAddr)

		go func() {
			defer h.drop(conn)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Read loop only to detect disconnects; inbound frames are ignored.
		go func() {
			defer h.drop(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if out, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(out)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// ClientCount reports the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(kind string, data any) error {
	b, err := json.Marshal(streamEnvelope{Type: kind, Data: data})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, out := range h.clients {
		select {
		case out <- b:
		default:
			// Slow client; skip this frame rather than stall the tick.
			h.log.Debug("stream client lagging", "remote", conn.RemoteAddr())
		}
	}
	return nil
}

// WriteCast streams a cast row to all clients.
func (h *Hub) WriteCast(row events.CastRow) error {
	return h.broadcast("cast", row)
}

// WriteCasts streams multiple cast rows.
func (h *Hub) WriteCasts(rows []events.CastRow) error {
	for _, r := range rows {
		if err := h.WriteCast(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteDirective streams a directive row to all clients.
func (h *Hub) WriteDirective(row events.DirectiveRow) error {
	return h.broadcast("directive", row)
}

// WriteFallback streams a fallback row to all clients.
func (h *Hub) WriteFallback(row events.FallbackRow) error {
	return h.broadcast("fallback", row)
}

// WritePass streams a pass summary row to all clients.
func (h *Hub) WritePass(row events.PassRow) error {
	return h.broadcast("pass", row)
}
