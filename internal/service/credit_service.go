package service

import (
	"context"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/database"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// CreditService manages credit balances, top-ups and exam purchases.
// Every balance change writes a ledger transaction in the same database
// transaction.
type CreditService struct {
	pool        *pgxpool.Pool
	userRepo    *repository.UserRepository
	txRepo      *repository.TransactionRepository
	examService *ExamService
	log         zerolog.Logger
}

// NewCreditService creates a new CreditService.
func NewCreditService(
	pool *pgxpool.Pool,
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
	examService *ExamService,
	log zerolog.Logger,
) *CreditService {
	return &CreditService{
		pool:        pool,
		userRepo:    userRepo,
		txRepo:      txRepo,
		examService: examService,
		log:         log.With().Str("component", "credit_service").Logger(),
	}
}

// Balance returns the user's credit balance.
func (s *CreditService) Balance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &model.CreditBalance{UserID: u.ID, Credits: u.Credits}, nil
}

// Transactions lists the user's ledger, newest first.
func (s *CreditService) Transactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Transaction, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)
	items, total, err := s.txRepo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, response.NewPagination(page, perPage, total), nil
}

// TopUp credits a user's balance. It is an admin operation; payment
// collection happens outside this service.
func (s *CreditService) TopUp(ctx context.Context, userID uuid.UUID, req *model.TopUpRequest) (*model.PurchaseResult, error) {
	out := &model.PurchaseResult{}
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.userRepo.LockCredits(ctx, tx, userID); err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock credits: %w", err)
		}
		balance, err := s.userRepo.AddCredits(ctx, tx, userID, req.Amount)
		if err != nil {
			return fmt.Errorf("add credits: %w", err)
		}
		out.Transaction = model.Transaction{
			UserID: userID,
			Type:   model.TransactionCreditTopUp,
			Amount: req.Amount,
			Note:   req.Note,
		}
		if err := s.txRepo.Create(ctx, tx, &out.Transaction); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		out.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Int("amount", req.Amount).
		Int("balance", out.Balance).
		Msg("Credits topped up")
	return out, nil
}

// Purchase buys a paid exam with credits. The balance row is locked so two
// concurrent purchases cannot both spend the same credits.
func (s *CreditService) Purchase(ctx context.Context, userID, examID uuid.UUID) (*model.PurchaseResult, error) {
	exam, err := s.examService.GetActive(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.IsFree || exam.PriceCredits == 0 {
		return nil, ErrExamIsFree
	}

	out := &model.PurchaseResult{}
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		credits, err := s.userRepo.LockCredits(ctx, tx, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock credits: %w", err)
		}
		owned, err := s.txRepo.HasPurchase(ctx, tx, userID, examID)
		if err != nil {
			return fmt.Errorf("check purchase: %w", err)
		}
		if owned {
			return ErrAlreadyPurchased
		}
		if credits < exam.PriceCredits {
			return ErrInsufficientCredits
		}

		balance, err := s.userRepo.AddCredits(ctx, tx, userID, -exam.PriceCredits)
		if err != nil {
			return fmt.Errorf("debit credits: %w", err)
		}
		if err := s.txRepo.CreatePurchase(ctx, tx, userID, examID); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return ErrAlreadyPurchased
			}
			return fmt.Errorf("record purchase: %w", err)
		}
		out.Transaction = model.Transaction{
			UserID: userID,
			Type:   model.TransactionExamPurchase,
			Amount: -exam.PriceCredits,
			ExamID: &exam.ID,
			Note:   exam.Title,
		}
		if err := s.txRepo.Create(ctx, tx, &out.Transaction); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		out.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("exam_id", examID.String()).
		Int("price", exam.PriceCredits).
		Int("balance", out.Balance).
		Msg("Exam purchased")
	return out, nil
}
