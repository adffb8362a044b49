package repository

import (
	"context"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository handles exam category data access.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.ExamCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug FROM exam_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.ExamCategory])
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamCategory, error) {
	c := &model.ExamCategory{}
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug FROM exam_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.ExamCategory) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_categories (name, slug) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Slug,
	).Scan(&c.ID)
}
