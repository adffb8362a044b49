package repository

import (
	"context"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `e.id, e.title, e.description, e.category_id, COALESCE(c.name, ''),
	e.duration_minutes, e.question_count, e.price_credits, e.is_free, e.is_active,
	e.created_at, e.updated_at`

const examFrom = ` FROM exams e LEFT JOIN exam_categories c ON c.id = e.category_id`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.CategoryID, &e.CategoryName,
		&e.DurationMinutes, &e.QuestionCount, &e.PriceCredits, &e.IsFree, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+examFrom+` WHERE e.id = $1`, id), e); err != nil {
		return nil, err
	}
	return e, nil
}

// ExamFilter narrows catalogue listings.
type ExamFilter struct {
	ActiveOnly bool
	CategoryID *uuid.UUID
	Search     string
}

// List retrieves exams matching f with pagination.
func (r *ExamRepository) List(ctx context.Context, f ExamFilter, limit, offset int) ([]model.Exam, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if f.ActiveOnly {
		where += ` AND e.is_active`
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where += fmt.Sprintf(` AND e.category_id = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND e.title ILIKE $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+examFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + examFrom + where +
		fmt.Sprintf(` ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, category_id, duration_minutes, question_count, price_credits, is_free)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, is_active, created_at, updated_at`,
		e.Title, e.Description, e.CategoryID, e.DurationMinutes, e.QuestionCount, e.PriceCredits, e.IsFree,
	).Scan(&e.ID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
}

// Update persists the editable fields of e.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, category_id = $3, duration_minutes = $4,
		     question_count = $5, price_credits = $6, is_free = $7, updated_at = NOW()
		 WHERE id = $8
		 RETURNING updated_at`,
		e.Title, e.Description, e.CategoryID, e.DurationMinutes,
		e.QuestionCount, e.PriceCredits, e.IsFree, e.ID,
	).Scan(&e.UpdatedAt)
}

// SetActive toggles whether an exam is listed and startable.
func (r *ExamRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActiveIDs returns ids of every active exam.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM exams WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// HasAttemptsInProgress reports whether anyone is mid-attempt on the exam.
func (r *ExamRepository) HasAttemptsInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_attempts WHERE exam_id = $1 AND status = 'IN_PROGRESS')`, id,
	).Scan(&exists)
	return exists, err
}
