package repository

import (
	"context"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository handles the credit ledger and exam purchases.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends a ledger entry inside tx.
func (r *TransactionRepository) Create(ctx context.Context, tx pgx.Tx, t *model.Transaction) error {
	return tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, type, amount, exam_id, note)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.UserID, t.Type, t.Amount, t.ExamID, t.Note,
	).Scan(&t.ID, &t.CreatedAt)
}

// ListByUser retrieves a user's ledger, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, type, amount, exam_id, note, created_at
		 FROM transactions WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	txs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Transaction])
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// HasPurchase reports whether the user owns a paid exam.
func (r *TransactionRepository) HasPurchase(ctx context.Context, db DBTX, userID, examID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.pool
	}
	var owned bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_purchases WHERE user_id = $1 AND exam_id = $2)`,
		userID, examID,
	).Scan(&owned)
	return owned, err
}

// CreatePurchase grants the user access to an exam inside tx.
func (r *TransactionRepository) CreatePurchase(ctx context.Context, tx pgx.Tx, userID, examID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO exam_purchases (user_id, exam_id) VALUES ($1, $2)`, userID, examID)
	return err
}
