package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies credit ledger entries.
type TransactionType string

const (
	TransactionCreditTopUp  TransactionType = "CREDIT_TOPUP"
	TransactionExamPurchase TransactionType = "EXAM_PURCHASE"
	TransactionRefund       TransactionType = "REFUND"
)

// Transaction is one signed movement of a user's credits.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      TransactionType `json:"type"`
	Amount    int             `json:"amount"`
	ExamID    *uuid.UUID      `json:"exam_id,omitempty"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

// TopUpRequest is an admin credit adjustment.
type TopUpRequest struct {
	Amount int    `json:"amount" binding:"required,min=1,max=100000"`
	Note   string `json:"note" binding:"omitempty,max=255"`
}

// CreditBalance is the user's current balance.
type CreditBalance struct {
	UserID  uuid.UUID `json:"user_id"`
	Credits int       `json:"credits"`
}

// PurchaseResult is returned after buying an exam.
type PurchaseResult struct {
	Transaction Transaction `json:"transaction"`
	Balance     int         `json:"balance"`
}
