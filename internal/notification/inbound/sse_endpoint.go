package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

const sseHeartbeat = 25 * time.Second

// StreamNotifications streams new in-app notifications of the caller using SSE.
// @Summary Stream notifications
// @Description Streams in-app notifications as they are delivered using Server-Sent Events (SSE).
// @Tags Inbox
// @Security BearerAuth
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "streaming unsupported"
// @Router /api/v1/notifications/stream [get]
func (h *HTTPEndpoint) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	stream, err := h.uc.StreamNotifications(ctx)
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			http.Error(w, gerr.Msg(), gerr.StatusCode())
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		slog.ErrorContext(ctx, "failed to send response connected", "error", err)
		return
	}
	flusher.Flush()

	// heartbeat ping, so proxies won't drop idle connections.
	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case it, ok := <-stream:
			if !ok {
				return
			}
			payload, err := json.Marshal(toInboxItem(it))
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal data", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", it.ID, payload); err != nil {
				slog.ErrorContext(ctx, "failed to send response data", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
