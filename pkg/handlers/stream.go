package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/realtime"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxInbound = 512
)

// StreamHandler upgrades members to a websocket that carries space events.
type StreamHandler struct {
	config   *config.Config
	hub      *realtime.Hub
	guard    *guard.Guard
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(cfg *config.Config, hub *realtime.Hub, g *guard.Guard, logger *zap.Logger) *StreamHandler {
	h := &StreamHandler{config: cfg, hub: hub, guard: g, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.config.IsDevelopment() {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		// a wildcard never opens production streams to foreign pages
		if (allowed == "*" && !h.config.IsProduction()) || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	// same host is always fine
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// GET /api/spaces/{spaceID}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	spaceID := spaceIDParam(r)
	if err := h.guard.RequireMember(r.Context(), spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.logger.Debug("stream upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(spaceID, user.ID)
	h.logger.Info("stream opened", zap.String("space_id", spaceID), zap.String("user_id", user.ID))

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)

	h.hub.Unsubscribe(sub)
	conn.Close()
	h.logger.Info("stream closed", zap.String("space_id", spaceID), zap.String("user_id", user.ID))
}

// readPump only drains control frames; clients never send data.
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, sub *realtime.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == realtime.SpaceDeleted {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "space deleted")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
