package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/realtime"

	"go.uber.org/zap"
)

func TestStreamCheckOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", "production", nil, "", true},
		{"production wildcard", "production", []string{"*"}, "https://evil.example", false},
		{"production listed", "production", []string{"https://app.example"}, "https://APP.example", true},
		{"production same host", "production", []string{"*"}, "https://api.example", true},
		{"staging wildcard", "staging", []string{"*"}, "https://evil.example", true},
		{"development anything", "development", nil, "https://evil.example", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewStreamHandler(&config.Config{Environment: tt.env, AllowedOrigins: tt.allowed},
				realtime.NewHub(nil), nil, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "http://api.example/api/spaces/s1/stream", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkOrigin(req); got != tt.want {
				t.Fatalf("checkOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}
