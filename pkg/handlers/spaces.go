package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

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

const inviteCodeAttempts = 5

type SpacesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	guard  *guard.Guard
	events realtime.Publisher
	logger *zap.Logger
}

func NewSpacesHandler(cfg *config.Config, db database.DatabaseInterface, g *guard.Guard, events realtime.Publisher, logger *zap.Logger) *SpacesHandler {
	return &SpacesHandler{config: cfg, db: db, guard: g, events: events, logger: logger}
}

func spaceIDParam(r *http.Request) string {
	return strings.TrimSpace(chiRoute.URLParam(r, "spaceID"))
}

// GET /api/spaces
func (h *SpacesHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	spaces, err := h.db.ListSpacesForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, spaces)
}

// POST /api/spaces
func (h *SpacesHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req models.CreateSpaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()

	space := &models.Space{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Emoji:       req.Emoji,
		CreatedBy:   user.ID,
	}
	if err := h.insertWithInviteCode(ctx, space); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// no rollback: if this fails the space exists without an admin
	admin := &models.Membership{SpaceID: space.ID, UserID: user.ID, Role: models.RoleAdmin}
	if err := h.db.AddMember(ctx, admin); err != nil {
		h.logger.Error("creator membership insert failed",
			zap.String("space_id", space.ID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		writeError(w, r, h.logger, err)
		return
	}

	utils.WriteCreatedResponse(w, models.SpaceWithRole{Space: *space, Role: models.RoleAdmin, MemberCount: 1})
}

// insertWithInviteCode retries on the rare invite code collision.
func (h *SpacesHandler) insertWithInviteCode(ctx context.Context, space *models.Space) error {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return err
		}
		space.InviteCode = code
		err = h.db.CreateSpace(ctx, space)
		if !errors.Is(err, database.ErrConflict) {
			return err
		}
	}
	return errors.New("could not allocate a unique invite code")
}

// GET /api/spaces/{spaceID}
func (h *SpacesHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	membership, err := h.guard.Membership(ctx, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	space, err := h.db.GetSpace(ctx, spaceID)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Space not found"))
		return
	}
	members, err := h.db.ListMembers(ctx, spaceID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, models.SpaceWithRole{Space: *space, Role: membership.Role, MemberCount: len(members)})
}

// PATCH /api/spaces/{spaceID}
func (h *SpacesHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.UpdateSpaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireAdmin(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	space, err := h.db.GetSpace(ctx, spaceID)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Space not found"))
		return
	}

	if req.Name != nil {
		space.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		space.Description = strings.TrimSpace(*req.Description)
	}
	if req.Emoji != nil {
		space.Emoji = *req.Emoji
	}
	if err := h.db.UpdateSpace(ctx, space); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.SpaceUpdated, spaceID, user.ID, space)
	utils.WriteSuccessResponse(w, space)
}

// DELETE /api/spaces/{spaceID}
func (h *SpacesHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	if err := h.guard.RequireAdmin(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.db.DeleteSpace(ctx, spaceID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Space not found"))
		return
	}

	h.logger.Info("space deleted", zap.String("space_id", spaceID), zap.String("user_id", user.ID))
	publish(ctx, h.events, h.logger, realtime.SpaceDeleted, spaceID, user.ID, nil)
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": spaceID})
}

// POST /api/spaces/{inviteCode}/join
// Joining twice is not an error: an existing member gets 200 and the space.
func (h *SpacesHandler) JoinSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	code := strings.ToUpper(spaceIDParam(r))

	space, err := h.db.GetSpaceByInviteCode(ctx, code)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Invalid invite code"))
		return
	}

	if m, err := h.db.GetMembership(ctx, space.ID, user.ID); err == nil {
		utils.WriteSuccessResponse(w, joinResponse(space, m.Role, true))
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		writeError(w, r, h.logger, err)
		return
	}

	m := &models.Membership{SpaceID: space.ID, UserID: user.ID, Role: models.RoleMember}
	err = h.db.AddMember(ctx, m)
	if errors.Is(err, database.ErrConflict) {
		// lost a race with a concurrent join from the same user
		utils.WriteSuccessResponse(w, joinResponse(space, models.RoleMember, true))
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.MemberJoined, space.ID, user.ID, m)
	utils.WriteCreatedResponse(w, joinResponse(space, m.Role, false))
}

func joinResponse(space *models.Space, role models.MemberRole, already bool) map[string]interface{} {
	return map[string]interface{}{
		"space":         space,
		"role":          role,
		"alreadyMember": already,
	}
}

// POST /api/spaces/{spaceID}/invite-code
func (h *SpacesHandler) RotateInviteCode(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	if err := h.guard.RequireAdmin(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	space, err := h.db.GetSpace(ctx, spaceID)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Space not found"))
		return
	}

	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		space.InviteCode = code
		err = h.db.UpdateSpace(ctx, space)
		if err == nil {
			utils.WriteSuccessResponse(w, map[string]string{"inviteCode": code})
			return
		}
		if !errors.Is(err, database.ErrConflict) {
			writeError(w, r, h.logger, err)
			return
		}
	}
	writeError(w, r, h.logger, errors.New("could not allocate a unique invite code"))
}
