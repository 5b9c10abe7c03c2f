package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, user.ID)
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	tokens := utils.NewJWTService("secret")
	access, _, _ := tokens.GenerateAccessToken(models.TokenClaims{UserID: "u1"}, time.Hour)
	profile, _, _ := tokens.GenerateProfileToken(models.TokenClaims{UserID: "u2"}, time.Hour)

	tests := []struct {
		name       string
		queryToken bool
		header     string
		query      string
		wantStatus int
	}{
		{"access header", false, "Bearer " + access, "", http.StatusOK},
		{"missing header", false, "", "", http.StatusUnauthorized},
		{"no bearer prefix", false, access, "", http.StatusUnauthorized},
		{"profile token", false, "Bearer " + profile, "", http.StatusUnauthorized},
		{"query token refused", false, "", "?token=" + access, http.StatusUnauthorized},
		{"query token allowed", true, "", "?token=" + access, http.StatusOK},
		{"garbage", false, "Bearer abc", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := AuthMiddleware(tokens, zap.NewNop(), tt.queryToken)(http.HandlerFunc(echoUser))
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRecoveryHidesPanic(t *testing.T) {
	t.Parallel()
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("secret detail")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "secret detail") || !strings.Contains(body, "Internal server error") {
		t.Fatalf("body = %q", body)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"/api/spaces/":  "/api/spaces",
		"/":             "/",
		"/api/health ":  "/api/health",
		"/api/spaces//": "/api/spaces",
	}
	for in, want := range tests {
		var got string
		h := Normalize()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = r.URL.Path }))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = in
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCORSOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     string
		allowed []string
		origin  string
		want    string
	}{
		{"production wildcard refuses", "production", []string{"*"}, "https://evil.example", ""},
		{"production empty refuses", "production", nil, "https://evil.example", ""},
		{"production listed origin", "production", []string{"https://app.example"}, "https://app.example", "https://app.example"},
		{"production unlisted origin", "production", []string{"https://app.example"}, "https://evil.example", ""},
		{"development wildcard", "development", []string{"*"}, "https://anything.example", "*"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := CORS(&config.Config{Environment: tt.env, AllowedOrigins: tt.allowed})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}
