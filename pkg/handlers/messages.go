package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/realtime"
	"space-notes-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

type MessagesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	guard  *guard.Guard
	events realtime.Publisher
	logger *zap.Logger
}

func NewMessagesHandler(cfg *config.Config, db database.DatabaseInterface, g *guard.Guard, events realtime.Publisher, logger *zap.Logger) *MessagesHandler {
	return &MessagesHandler{config: cfg, db: db, guard: g, events: events, logger: logger}
}

// parseMessageQuery reads ?before (RFC3339 or unix milliseconds) and ?limit.
func parseMessageQuery(r *http.Request) (database.MessageQuery, error) {
	q := database.MessageQuery{Limit: DefaultMessageLimit}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, badRequest("limit must be a positive integer")
		}
		if n > MaxMessageLimit {
			n = MaxMessageLimit
		}
		q.Limit = n
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("before")); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			q.Before = time.UnixMilli(ms).UTC()
		} else if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			q.Before = t
		} else {
			return q, badRequest("before must be an RFC3339 timestamp or unix milliseconds")
		}
	}
	return q, nil
}

// GET /api/spaces/{spaceID}/messages
func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	q, err := parseMessageQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	messages, err := h.db.ListMessages(ctx, spaceID, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page := models.MessagePage{Messages: messages}
	// a full page means older history may remain
	if len(messages) == q.Limit && len(messages) > 0 {
		page.NextCursor = messages[0].CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	utils.WriteSuccessResponse(w, page)
}

// POST /api/spaces/{spaceID}/messages
func (h *MessagesHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.CreateMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, r, h.logger, &utils.ValidationError{Fields: map[string]string{"content": "content is required"}})
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	msg := &models.Message{
		SpaceID:     spaceID,
		UserID:      user.ID,
		Content:     content,
		MessageType: models.MessageTypeText,
	}
	if err := h.db.CreateMessage(ctx, msg); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.MessageCreated, spaceID, user.ID, msg)
	utils.WriteCreatedResponse(w, msg)
}

// DELETE /api/spaces/{spaceID}/messages/{messageID}
func (h *MessagesHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)
	messageID := chiRoute.URLParam(r, "messageID")

	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	msg, err := h.db.GetMessage(ctx, spaceID, messageID)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Message not found"))
		return
	}
	if err := guard.RequireAuthor(msg, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.db.DeleteMessage(ctx, msg.ID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Message not found"))
		return
	}

	publish(ctx, h.events, h.logger, realtime.MessageDeleted, spaceID, user.ID, map[string]string{"id": msg.ID})
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": msg.ID})
}

// POST /api/spaces/{spaceID}/messages/{messageID}/reactions
func (h *MessagesHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)
	messageID := chiRoute.URLParam(r, "messageID")

	var req models.ReactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.db.GetMessage(ctx, spaceID, messageID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Message not found"))
		return
	}

	reaction := &models.Reaction{MessageID: messageID, UserID: user.ID, Emoji: req.Emoji}
	if err := h.db.AddReaction(ctx, reaction); err != nil {
		if errors.Is(err, database.ErrConflict) {
			writeError(w, r, h.logger, conflict("You already reacted with this emoji"))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.ReactionAdded, spaceID, user.ID, reaction)
	utils.WriteCreatedResponse(w, reaction)
}

// DELETE /api/spaces/{spaceID}/messages/{messageID}/reactions?emoji=
func (h *MessagesHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)
	messageID := chiRoute.URLParam(r, "messageID")

	emoji := utils.GetQueryParam(r, "emoji", "")
	if emoji == "" {
		writeError(w, r, h.logger, &utils.ValidationError{Fields: map[string]string{"emoji": "emoji is required"}})
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.db.GetMessage(ctx, spaceID, messageID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Message not found"))
		return
	}
	if err := h.db.RemoveReaction(ctx, messageID, user.ID, emoji); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Reaction not found"))
		return
	}

	payload := map[string]string{"messageId": messageID, "userId": user.ID, "emoji": emoji}
	publish(ctx, h.events, h.logger, realtime.ReactionRemoved, spaceID, user.ID, payload)
	utils.WriteSuccessResponse(w, map[string]interface{}{"removed": true})
}
