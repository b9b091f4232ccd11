package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/domain"
)

// StreamLogs handles GET /api/v1/logs/stream (SSE)
func (h *Handlers) StreamLogs(w http.ResponseWriter, r *http.Request) {
	// Check if flusher is available
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "streaming not supported",
			Code:  domain.ErrCodeStreamingNotSupported,
		})
		return
	}

	filter, err := parseLogFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Subscribe to logs
	subID, ch, err := h.logManager.Subscribe(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer h.logManager.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Send initial comment to establish connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	// Slow clients lose entries at the subscription buffer; a failed write
	// ends the handler and releases the subscription.
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(ToLogEntryResponse(entry))
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", entry.Seq, data); err != nil {
				h.logger.Debug("sse write failed, client likely disconnected", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
