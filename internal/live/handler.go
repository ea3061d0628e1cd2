package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-study/internal/render"
)

const writeTimeout = 5 * time.Second

// ViewSource returns a session's current view.
type ViewSource interface {
	View(sessionID string) (render.View, error)
}

// Handler upgrades requests to WebSocket connections streaming a session's
// views. The session id is read from the "id" path value.
type Handler struct {
	hub     *Hub
	views   ViewSource
	origins []string
}

// NewHandler creates a handler. originPatterns are passed to the WebSocket
// origin check; empty allows same-origin clients only.
func NewHandler(hub *Hub, views ViewSource, originPatterns ...string) *Handler {
	return &Handler{hub: hub, views: views, origins: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Subscribe before reading the initial view so no update is missed.
	views, cancel := h.hub.Subscribe(id)
	defer cancel()

	initial, err := h.views.View(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "session_id", id, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and reports disconnects.
	ctx := conn.CloseRead(r.Context())

	if err := write(ctx, conn, initial); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			if err := write(ctx, conn, v); err != nil {
				slog.Debug("websocket write failed", "session_id", id, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v render.View) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
