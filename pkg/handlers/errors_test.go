package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

func TestWriteErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", &utils.ValidationError{Fields: map[string]string{"name": "name is required"}}, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed"},
		{"api error", notFound("Note not found"), http.StatusNotFound, "NOT_FOUND", "Note not found"},
		{"unauthenticated", middleware.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
		{"guard", guard.ErrNotAdmin, http.StatusForbidden, "FORBIDDEN", guard.ErrNotAdmin.Message},
		{"wrapped guard", fmt.Errorf("space: %w", guard.ErrNotMember), http.StatusForbidden, "FORBIDDEN", guard.ErrNotMember.Message},
		{"store miss", database.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
		{"store conflict", database.ErrConflict, http.StatusConflict, "CONFLICT", "Resource already exists"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/spaces/x", nil)
			writeError(rec, req, zap.NewNop(), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body utils.APIResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error == nil {
				t.Fatalf("body = %+v, want failure envelope", body)
			}
			if body.Error.Code != tt.code || body.Error.Message != tt.message {
				t.Fatalf("error = %s %q, want %s %q", body.Error.Code, body.Error.Message, tt.code, tt.message)
			}
		})
	}
}

func TestParseMessageQuery(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		query   string
		limit   int
		before  time.Time
		wantErr bool
	}{
		{"", DefaultMessageLimit, time.Time{}, false},
		{"limit=10", 10, time.Time{}, false},
		{"limit=500", MaxMessageLimit, time.Time{}, false},
		{"limit=-1", 0, time.Time{}, true},
		{"limit=ten", 0, time.Time{}, true},
		{fmt.Sprintf("before=%d", at.UnixMilli()), DefaultMessageLimit, at, false},
		{"before=2026-04-02T10:30:00Z", DefaultMessageLimit, at, false},
		{"before=last-week", 0, time.Time{}, true},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/spaces/x/messages?"+tt.query, nil)
		q, err := parseMessageQuery(req)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err = %v, wantErr %v", tt.query, err, tt.wantErr)
		}
		if tt.wantErr {
			continue
		}
		if q.Limit != tt.limit || !q.Before.Equal(tt.before) {
			t.Fatalf("%q: got limit %d before %v, want %d %v", tt.query, q.Limit, q.Before, tt.limit, tt.before)
		}
	}
}
