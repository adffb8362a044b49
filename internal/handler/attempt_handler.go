package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AttemptHandler handles the exam-taking endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartExam godoc
// POST /api/exams/:exam_id/start
// Opens an attempt, or returns the one already in progress (idempotent).
func (h *AttemptHandler) StartExam(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	attempt, _, err := h.attemptService.Start(c.Request.Context(), ident, examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, attempt)
}

// GetQuestions godoc
// GET /api/exams/:exam_id/questions
// Returns the paper of the caller's attempt without answer keys, starting
// the attempt if needed. The remaining time is computed on the server.
func (h *AttemptHandler) GetQuestions(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	paper, err := h.attemptService.Paper(c.Request.Context(), ident, examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// SubmitExam godoc
// POST /api/exams/:exam_id/submit
// Grades and finalises the caller's attempt.
func (h *AttemptHandler) SubmitExam(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attemptService.Submit(c.Request.Context(), ident, examID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ListAttempts godoc
// GET /api/exam-attempts
// Lists the caller's attempts, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}

	page, perPage := pageQuery(c)
	items, pagination, err := h.attemptService.List(c.Request.Context(), ident, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, items, pagination)
}

// GetAttempt godoc
// GET /api/exam-attempts/:attempt_id
// Returns a finalised attempt with answer keys and the analysis report.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	review, err := h.attemptService.Result(c.Request.Context(), ident, attemptID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, review)
}

// GetAttemptState godoc
// GET /api/exam-attempts/:attempt_id/state
// Covers page reloads: autosaved answers and the remaining time.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), ident, attemptID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/exam-attempts/:attempt_id/answers
// Autosaves one selection.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), ident, attemptID, &req); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID, "option": req.Option})
}
