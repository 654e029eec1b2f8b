package realtime

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// SSEHandler streams snapshots as Server-Sent Events.
type SSEHandler struct {
	Viewers Connector
	Logger  *zap.Logger
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sub := h.Viewers.Connect(ctx)
	defer sub.Close()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", msg); err != nil {
				log.Debug("sse write failed", zap.Uint64("viewer", sub.ID()), zap.Error(err))
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
