package handlers

import (
	"net/http"
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

type LessonsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	guard  *guard.Guard
	events realtime.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewLessonsHandler(cfg *config.Config, db database.DatabaseInterface, g *guard.Guard, events realtime.Publisher, logger *zap.Logger) *LessonsHandler {
	return &LessonsHandler{config: cfg, db: db, guard: g, events: events, logger: logger, now: time.Now}
}

// GET /api/spaces/{spaceID}/lessons
func (h *LessonsHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
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
	lessons, err := h.db.ListLessons(r.Context(), spaceID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, lessons)
}

// POST /api/spaces/{spaceID}/lessons
func (h *LessonsHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.CreateLessonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	lesson := &models.Lesson{
		SpaceID:          spaceID,
		AuthorUser:       user.ID,
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Content:          req.Content,
		Difficulty:       req.Difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		Status:           models.StatusDraft,
	}
	models.ApplyStatus(&lesson.Status, &lesson.PublishedAt, req.Status, h.now())
	if err := h.db.CreateLesson(ctx, lesson); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.LessonCreated, spaceID, user.ID, lesson)
	utils.WriteCreatedResponse(w, lesson)
}

// GET /api/spaces/{spaceID}/lessons/{lessonID}
func (h *LessonsHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
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
	lesson, err := h.db.GetLesson(r.Context(), spaceID, chiRoute.URLParam(r, "lessonID"))
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Lesson not found"))
		return
	}
	utils.WriteSuccessResponse(w, lesson)
}

// PATCH /api/spaces/{spaceID}/lessons/{lessonID}
func (h *LessonsHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.UpdateLessonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	lesson, err := h.authoredLesson(r, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if req.Title != nil {
		lesson.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		lesson.Description = strings.TrimSpace(*req.Description)
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.Difficulty != nil {
		lesson.Difficulty = *req.Difficulty
	}
	if req.EstimatedMinutes != nil {
		lesson.EstimatedMinutes = *req.EstimatedMinutes
	}
	models.ApplyStatus(&lesson.Status, &lesson.PublishedAt, req.Status, h.now())
	if err := h.db.UpdateLesson(ctx, lesson); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Lesson not found"))
		return
	}

	publish(ctx, h.events, h.logger, realtime.LessonUpdated, spaceID, user.ID, lesson)
	utils.WriteSuccessResponse(w, lesson)
}

// DELETE /api/spaces/{spaceID}/lessons/{lessonID}
func (h *LessonsHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	lesson, err := h.authoredLesson(r, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.db.DeleteLesson(ctx, lesson.ID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Lesson not found"))
		return
	}

	publish(ctx, h.events, h.logger, realtime.LessonDeleted, spaceID, user.ID, map[string]string{"id": lesson.ID})
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": lesson.ID})
}

func (h *LessonsHandler) authoredLesson(r *http.Request, spaceID, userID string) (*models.Lesson, error) {
	if err := h.guard.RequireMember(r.Context(), spaceID, userID); err != nil {
		return nil, err
	}
	lesson, err := h.db.GetLesson(r.Context(), spaceID, chiRoute.URLParam(r, "lessonID"))
	if err != nil {
		return nil, orNotFound(err, "Lesson not found")
	}
	if err := guard.RequireAuthor(lesson, userID); err != nil {
		return nil, err
	}
	return lesson, nil
}
