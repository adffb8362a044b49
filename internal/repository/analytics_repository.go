package repository

import (
	"context"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository runs the aggregate queries behind the dashboards.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// UserSummary fills the headline numbers of a user's analytics.
func (r *AnalyticsRepository) UserSummary(ctx context.Context, userID uuid.UUID, out *model.UserAnalytics) error {
	return r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status <> 'IN_PROGRESS'),
		        COALESCE(AVG(percentage) FILTER (WHERE status <> 'IN_PROGRESS'), 0),
		        COALESCE(MAX(percentage) FILTER (WHERE status <> 'IN_PROGRESS'), 0),
		        COALESCE(SUM(time_spent), 0)
		 FROM exam_attempts WHERE user_id = $1`, userID,
	).Scan(&out.TotalAttempts, &out.CompletedAttempts, &out.AveragePercentage,
		&out.BestPercentage, &out.TotalTimeSpent)
}

// UserByCategory averages a user's finalised attempts per exam category.
func (r *AnalyticsRepository) UserByCategory(ctx context.Context, userID uuid.UUID) ([]model.CategoryStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, COALESCE(c.name, 'Uncategorised'), COUNT(*), AVG(a.percentage)
		 FROM exam_attempts a
		 JOIN exams e ON e.id = a.exam_id
		 LEFT JOIN exam_categories c ON c.id = e.category_id
		 WHERE a.user_id = $1 AND a.status <> 'IN_PROGRESS'
		 GROUP BY c.id, c.name
		 ORDER BY 2`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.CategoryStat{}
	for rows.Next() {
		var s model.CategoryStat
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.Attempts, &s.AveragePercentage); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// AdminCounts retrieves the high-level metrics for the back-office dashboard.
func (r *AnalyticsRepository) AdminCounts(ctx context.Context) (*model.AdminDashboard, error) {
	d := &model.AdminDashboard{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'USER'),
			(SELECT COUNT(*) FROM exams WHERE is_active),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM exam_attempts WHERE started_at >= date_trunc('day', NOW())),
			(SELECT COUNT(*) FROM exam_attempts WHERE status = 'IN_PROGRESS'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'CREDIT_TOPUP')`,
	).Scan(&d.TotalUsers, &d.ActiveExams, &d.TotalQuestions, &d.AttemptsToday, &d.InProgress, &d.CreditsPurchased)
	if err != nil {
		return nil, err
	}
	return d, nil
}
