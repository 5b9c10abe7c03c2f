package handlers

import (
	"errors"
	"net/http"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/realtime"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

type MembersHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	guard  *guard.Guard
	events realtime.Publisher
	logger *zap.Logger
}

func NewMembersHandler(cfg *config.Config, db database.DatabaseInterface, g *guard.Guard, events realtime.Publisher, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{config: cfg, db: db, guard: g, events: events, logger: logger}
}

// GET /api/spaces/{spaceID}/members
func (h *MembersHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
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
	members, err := h.db.ListMembers(r.Context(), spaceID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, members)
}

// POST /api/spaces/{spaceID}/members
func (h *MembersHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.AddMemberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireAdmin(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.db.GetUserByID(ctx, req.UserID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "User not found"))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	m := &models.Membership{SpaceID: spaceID, UserID: req.UserID, Role: role}
	if err := h.db.AddMember(ctx, m); err != nil {
		if errors.Is(err, database.ErrConflict) {
			writeError(w, r, h.logger, conflict("User is already a member of this space"))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.MemberJoined, spaceID, user.ID, m)
	utils.WriteCreatedResponse(w, m)
}

// PATCH /api/spaces/{spaceID}/members/me
func (h *MembersHandler) UpdateMyNotifications(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.UpdateNotificationsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m, err := h.guard.Membership(ctx, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.db.UpdateNotificationLevel(ctx, spaceID, user.ID, req.NotificationLevel); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m.NotificationLevel = req.NotificationLevel
	utils.WriteSuccessResponse(w, m)
}
