package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AdminLogin godoc
// POST /api/admin/login
// Authenticates an administrator with email and password.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Me godoc
// GET /api/me
// Returns the profile of the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), ident.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
