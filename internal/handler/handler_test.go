package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/middleware"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
		{fmt.Errorf("start: %w", service.ErrExamLocked), http.StatusPaymentRequired, response.ErrExamLocked},
		{service.ErrInsufficientCredits, http.StatusPaymentRequired, response.ErrInsufficientCredits},
		{service.ErrAttemptUnfinished, http.StatusConflict, response.ErrAttemptUnfinished},
		{fmt.Errorf("%w: bad sig", service.ErrInvalidToken), http.StatusUnauthorized, response.ErrTokenInvalid},
		{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{fmt.Errorf("db down"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := classify(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("expected %d/%s, got %d/%s", tt.wantStatus, tt.wantCode, status, code)
			}
		})
	}
}

func TestIdentityAndParamHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/attempts/:attempt_id", func(c *gin.Context) {
		if _, ok := identity(c); !ok {
			return
		}
		id, ok := paramUUID(c, "attempt_id")
		if !ok {
			return
		}
		response.Success(c, http.StatusOK, gin.H{"id": id})
	})
	authed := gin.New()
	authed.GET("/attempts/:attempt_id", func(c *gin.Context) {
		c.Set(middleware.ContextKeyIdentity, service.Identity{UserID: uuid.New(), Role: model.RoleUser})
		if _, ok := paramUUID(c, "attempt_id"); !ok {
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attempts/"+uuid.NewString(), nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	authed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attempts/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
	var env response.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == nil || env.Error.Code != response.ErrInvalidID {
		t.Errorf("expected INVALID_ID, got %+v", env.Error)
	}
}

func TestPageQueryDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3", nil)

	page, perPage := pageQuery(c)
	if page != 3 || perPage != 10 {
		t.Errorf("expected 3/10, got %d/%d", page, perPage)
	}
}

func TestBuildUpgraderOrigins(t *testing.T) {
	up := buildUpgrader([]string{"https://alphaexam.io"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "https://ALPHAEXAM.io")
	if !up.CheckOrigin(req) {
		t.Error("expected configured origin to pass")
	}
	req.Header.Set("Origin", "https://evil.example")
	if up.CheckOrigin(req) {
		t.Error("expected foreign origin to be rejected")
	}
	if !buildUpgrader(nil).CheckOrigin(req) {
		t.Error("expected empty allow-list to permit all")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		90 * time.Second:             "1m 30s",
		2*time.Hour + 5*time.Minute:  "2h 5m 0s",
		50*time.Hour + 3*time.Second: "2d 2h 0m 3s",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%s) = %q, want %q", d, got, want)
		}
	}
}
