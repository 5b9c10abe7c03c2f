package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"space-notes-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// not parallel: the router is process-wide
func TestHandlerRetriesFailedBuild(t *testing.T) {
	routerMu.Lock()
	savedRouter, savedBuild := router, build
	router = nil
	routerMu.Unlock()
	t.Cleanup(func() {
		routerMu.Lock()
		router, build = savedRouter, savedBuild
		routerMu.Unlock()
	})

	calls := 0
	build = func(context.Context) (*chi.Mux, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
		}
		mux := chi.NewRouter()
		mux.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, "ok")
		})
		return mux, nil
	}

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("first status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Fatalf("body leaks build error: %s", rec.Body.String())
	}
	var body utils.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == nil || body.Error.Message != "Internal server error" {
		t.Fatalf("first body = %s, want generic internal error", rec.Body.String())
	}

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		Handler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+2, rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("build called %d times, want 2", calls)
	}
}
