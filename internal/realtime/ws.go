package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams snapshots over a WebSocket, one JSON text frame each.
// Anything the viewer sends is read and discarded; a read error means the
// viewer is gone.
type WSHandler struct {
	Viewers      Connector
	Logger       *zap.Logger
	WriteTimeout time.Duration
	Upgrader     websocket.Upgrader
}

func NewWSHandler(viewers Connector, log *zap.Logger) *WSHandler {
	return &WSHandler{
		Viewers:      viewers,
		Logger:       log,
		WriteTimeout: 10 * time.Second,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// terminals are served from other local origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.Viewers.Connect(ctx)
	defer sub.Close()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if h.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write failed", zap.Uint64("viewer", sub.ID()), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
