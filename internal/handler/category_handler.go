package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// CategoryHandler handles exam category endpoints.
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListCategories godoc
// GET /api/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	cats, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, cats)
}

// CreateCategory godoc
// POST /api/admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req model.CreateCategoryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	cat, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cat)
}
