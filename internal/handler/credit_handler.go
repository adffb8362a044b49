package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// CreditHandler handles balances, purchases and top-ups.
type CreditHandler struct {
	creditService *service.CreditService
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(creditService *service.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

// PurchaseExam godoc
// POST /api/exams/:exam_id/purchase
// Buys a paid exam with credits.
func (h *CreditHandler) PurchaseExam(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	res, err := h.creditService.Purchase(c.Request.Context(), ident.UserID, examID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// GetCredits godoc
// GET /api/me/credits
func (h *CreditHandler) GetCredits(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	balance, err := h.creditService.Balance(c.Request.Context(), ident.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, balance)
}

// ListTransactions godoc
// GET /api/me/transactions
func (h *CreditHandler) ListTransactions(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	page, perPage := pageQuery(c)
	items, pagination, err := h.creditService.Transactions(c.Request.Context(), ident.UserID, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, items, pagination)
}

// TopUp godoc
// POST /api/admin/users/:user_id/credits
// Adds credits to a user's balance.
func (h *CreditHandler) TopUp(c *gin.Context) {
	userID, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	var req model.TopUpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.creditService.TopUp(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}
