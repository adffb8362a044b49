package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// CreateQuestion godoc
// POST /api/admin/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// GetQuestion godoc
// GET /api/admin/questions/:question_id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := paramUUID(c, "question_id")
	if !ok {
		return
	}
	q, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// AttachQuestion godoc
// POST /api/admin/exams/:exam_id/questions
// Places a question into an exam with its marks and order.
func (h *QuestionHandler) AttachQuestion(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.AttachQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eq, err := h.questionService.Attach(c.Request.Context(), examID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, eq)
}

// DetachQuestion godoc
// DELETE /api/admin/exams/:exam_id/questions/:question_id
func (h *QuestionHandler) DetachQuestion(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}
	questionID, ok := paramUUID(c, "question_id")
	if !ok {
		return
	}
	if err := h.questionService.Detach(c.Request.Context(), examID, questionID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ListExamQuestions godoc
// GET /api/admin/exams/:exam_id/questions
// Lists an exam's questions with answer keys, in order.
func (h *QuestionHandler) ListExamQuestions(c *gin.Context) {
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}
	questions, err := h.questionService.ListByExam(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, questions)
}
