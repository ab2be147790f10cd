package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/thisorthat/api/internal/realtime"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type StreamHandler struct {
	hub    *realtime.Hub
	logger *logrus.Entry
}

func NewStreamHandler(hub *realtime.Hub, logger *logrus.Entry) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: logger,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is cookie/token authenticated; the stream itself only
	// carries public counts, so any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream upgrades the request to a WebSocket and forwards the poll's
// vote and lifecycle events until the client disconnects. After a gap
// the client is expected to resync counts, not replay missed events.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := h.hub.Subscribe(pollID)
	defer sub.Close()
	defer conn.Close()

	// Reader goroutine: the client sends nothing meaningful, but the
	// read loop is what notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.WithError(err).WithField("poll_id", pollID).Debug("subscriber write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
