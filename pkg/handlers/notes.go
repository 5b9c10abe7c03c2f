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

// NotesHandler serves co-authored notes. Any member reads; only the author writes.
type NotesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	guard  *guard.Guard
	events realtime.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewNotesHandler(cfg *config.Config, db database.DatabaseInterface, g *guard.Guard, events realtime.Publisher, logger *zap.Logger) *NotesHandler {
	return &NotesHandler{config: cfg, db: db, guard: g, events: events, logger: logger, now: time.Now}
}

// GET /api/spaces/{spaceID}/notes
func (h *NotesHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
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
	notes, err := h.db.ListNotes(r.Context(), spaceID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, notes)
}

// POST /api/spaces/{spaceID}/notes
func (h *NotesHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.CreateNoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(ctx, spaceID, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	note := &models.Note{
		SpaceID:    spaceID,
		AuthorUser: user.ID,
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		Status:     models.StatusDraft,
	}
	models.ApplyStatus(&note.Status, &note.PublishedAt, req.Status, h.now())
	if err := h.db.CreateNote(ctx, note); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	publish(ctx, h.events, h.logger, realtime.NoteCreated, spaceID, user.ID, note)
	utils.WriteCreatedResponse(w, note)
}

// GET /api/spaces/{spaceID}/notes/{noteID}
func (h *NotesHandler) GetNote(w http.ResponseWriter, r *http.Request) {
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
	note, err := h.db.GetNote(r.Context(), spaceID, chiRoute.URLParam(r, "noteID"))
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Note not found"))
		return
	}
	utils.WriteSuccessResponse(w, note)
}

// PATCH /api/spaces/{spaceID}/notes/{noteID}
func (h *NotesHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	var req models.UpdateNoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	note, err := h.authoredNote(r, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if req.Title != nil {
		note.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	models.ApplyStatus(&note.Status, &note.PublishedAt, req.Status, h.now())
	if err := h.db.UpdateNote(ctx, note); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Note not found"))
		return
	}

	publish(ctx, h.events, h.logger, realtime.NoteUpdated, spaceID, user.ID, note)
	utils.WriteSuccessResponse(w, note)
}

// DELETE /api/spaces/{spaceID}/notes/{noteID}
func (h *NotesHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	spaceID := spaceIDParam(r)

	note, err := h.authoredNote(r, spaceID, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.db.DeleteNote(ctx, note.ID); err != nil {
		writeError(w, r, h.logger, orNotFound(err, "Note not found"))
		return
	}

	publish(ctx, h.events, h.logger, realtime.NoteDeleted, spaceID, user.ID, map[string]string{"id": note.ID})
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": note.ID})
}

// authoredNote loads the note after checking membership, then authorship.
func (h *NotesHandler) authoredNote(r *http.Request, spaceID, userID string) (*models.Note, error) {
	if err := h.guard.RequireMember(r.Context(), spaceID, userID); err != nil {
		return nil, err
	}
	note, err := h.db.GetNote(r.Context(), spaceID, chiRoute.URLParam(r, "noteID"))
	if err != nil {
		return nil, orNotFound(err, "Note not found")
	}
	if err := guard.RequireAuthor(note, userID); err != nil {
		return nil, err
	}
	return note, nil
}
