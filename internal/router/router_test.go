package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/middleware"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubResolver map[string]model.Role

func (s stubResolver) ValidateToken(tokenStr string) (*service.Claims, error) {
	if _, ok := s[tokenStr]; !ok {
		return nil, service.ErrInvalidToken
	}
	c := &service.Claims{}
	c.Subject = tokenStr
	return c, nil
}

func (s stubResolver) Resolve(_ context.Context, claims *service.Claims) (*service.Identity, error) {
	return &service.Identity{UserID: uuid.New(), Role: s[claims.Subject]}, nil
}

// Handlers are left nil; only the middleware in front of them is exercised.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{
		GinMode:        "test",
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"https://app.alphaexam.io"},
	}
	auth := stubResolver{"user-token": model.RoleUser, "admin-token": model.RoleAdmin}
	return SetupRouter(auth, limiter, &Handlers{}, cfg, zerolog.Nop())
}

func TestRouteGuards(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"user api needs token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"user api rejects unknown token", http.MethodGet, "/api/exam-attempts", "bogus", http.StatusUnauthorized},
		{"admin api needs admin role", http.MethodGet, "/api/admin/dashboard", "user-token", http.StatusForbidden},
		{"admin api needs token", http.MethodPost, "/api/admin/exams", "", http.StatusUnauthorized},
		{"stream needs query token", http.MethodGet, "/ws/exam-attempts/" + uuid.NewString() + "/stream", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s: expected %d, got %d (%s)", tt.method, tt.path, tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("Origin", "https://app.alphaexam.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.alphaexam.io" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}
