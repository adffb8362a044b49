package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExamHandler handles the exam catalogue and exam management endpoints.
type ExamHandler struct {
	examService   *service.ExamService
	exportService *service.ExportService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, exportService *service.ExportService) *ExamHandler {
	return &ExamHandler{
		examService:   examService,
		exportService: exportService,
	}
}

// ListExams godoc
// GET /api/exams
// Lists active exams, optionally filtered by category_id and search.
func (h *ExamHandler) ListExams(c *gin.Context) {
	h.list(c, true)
}

// AdminListExams godoc
// GET /api/admin/exams
// Lists every exam including inactive ones.
func (h *ExamHandler) AdminListExams(c *gin.Context) {
	h.list(c, false)
}

func (h *ExamHandler) list(c *gin.Context, activeOnly bool) {
	filter := repository.ExamFilter{
		ActiveOnly: activeOnly,
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.CategoryID = &id
	}

	page, perPage := pageQuery(c)
	exams, pagination, err := h.examService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, exams, pagination)
}

// GetExam godoc
// GET /api/exams/:exam_id
// Returns an active exam's catalogue entry.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}
	exam, err := h.examService.GetActive(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// AdminGetExam godoc
// GET /api/admin/exams/:exam_id
func (h *ExamHandler) AdminGetExam(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}
	exam, err := h.examService.Get(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// CreateExam godoc
// POST /api/admin/exams
// Creates a new inactive exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// UpdateExam godoc
// PATCH /api/admin/exams/:exam_id
// Edits an exam. Rejected while attempts are in progress.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// SetActive godoc
// PATCH /api/admin/exams/:exam_id/active
// Lists or unlists an exam in the catalogue.
func (h *ExamHandler) SetActive(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.SetActiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.SetActive(c.Request.Context(), examID, *req.IsActive)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// RefreshCache godoc
// POST /api/admin/exams/:exam_id/refresh-cache
// Rebuilds the cached paper of an exam.
func (h *ExamHandler) RefreshCache(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}
	if err := h.examService.RefreshCache(c.Request.Context(), examID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam_id": examID})
}

// ExportResults godoc
// GET /api/admin/exams/:exam_id/attempts/export
// Downloads finalised attempts as an XLSX workbook.
func (h *ExamHandler) ExportResults(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	name, err := h.exportService.ExamResults(c.Request.Context(), examID, &buf)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
