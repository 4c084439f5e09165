package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/events"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
	Clock         clockwork.Clock
	Heartbeat     time.Duration
	// Done closes open streams when the server shuts down.
	Done <-chan struct{}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	list, err := h.Notifications.List(r.Context(), actor(r), unread, limit, offset)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, limit, offset)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.UnreadCount(r.Context(), actor(r))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.MarkRead(r.Context(), actor(r), param(r, "id")); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkAllRead(r.Context(), actor(r))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Stream pushes the caller's notifications as server-sent events until the
// client disconnects or Done is closed. A comment line is written every Heartbeat so proxies
// keep the connection open.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := h.Notifications.Subscribe(ctx, actor(r))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.DebugContext(ctx, "sse: write deadline not supported", "err", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, "retry: 5000\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.WarnContext(ctx, "sse: flush not supported", "err", err)
		return
	}

	metrics.SSEClients.Inc()
	defer metrics.SSEClients.Dec()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := h.Clock.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.Done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.Chan():
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	_, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Kind, ev.Data)
	return err
}
