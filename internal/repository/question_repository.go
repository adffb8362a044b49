package repository

import (
	"context"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConstraintExamQuestionOrder guards unique order values within an exam.
const ConstraintExamQuestionOrder = "exam_questions_order_unique"

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	figures := q.Figures
	if figures == nil {
		figures = []model.Figure{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, option_a, option_b, option_c, option_d, correct_answer, explanation, figures)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Explanation, figures,
	).Scan(&q.ID, &q.CreatedAt)
}

// GetByID retrieves a single question including its answer key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_text, option_a, option_b, option_c, option_d,
		        correct_answer, explanation, figures, created_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectAnswer, &q.Explanation, &q.Figures, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByIDs retrieves the questions with the given ids in no particular order.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, option_a, option_b, option_c, option_d,
		        correct_answer, explanation, figures, created_at
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectAnswer, &q.Explanation, &q.Figures, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Attach places a question into an exam. Duplicate order values surface as a
// unique violation on ConstraintExamQuestionOrder.
func (r *QuestionRepository) Attach(ctx context.Context, eq *model.ExamQuestion) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_questions (exam_id, question_id, marks, negative_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, question_id) DO UPDATE
		 SET marks = EXCLUDED.marks, negative_marks = EXCLUDED.negative_marks, order_num = EXCLUDED.order_num`,
		eq.ExamID, eq.QuestionID, eq.Marks, eq.NegativeMarks, eq.OrderNum)
	return err
}

// Detach removes a question from an exam.
func (r *QuestionRepository) Detach(ctx context.Context, examID, questionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM exam_questions WHERE exam_id = $1 AND question_id = $2`, examID, questionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByExam retrieves the questions of an exam ordered by order_num. A
// positive limit serves only the first limit questions.
func (r *QuestionRepository) ListByExam(ctx context.Context, db DBTX, examID uuid.UUID, limit int) ([]model.ExamQuestionDetail, error) {
	query := `SELECT q.id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d,
	                 q.correct_answer, q.explanation, q.figures, q.created_at,
	                 eq.marks, eq.negative_marks, eq.order_num
	          FROM exam_questions eq
	          JOIN questions q ON q.id = eq.question_id
	          WHERE eq.exam_id = $1
	          ORDER BY eq.order_num`
	args := []any{examID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	if db == nil {
		db = r.pool
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.ExamQuestionDetail{}
	for rows.Next() {
		var d model.ExamQuestionDetail
		if err := rows.Scan(&d.ID, &d.QuestionText, &d.OptionA, &d.OptionB, &d.OptionC, &d.OptionD,
			&d.CorrectAnswer, &d.Explanation, &d.Figures, &d.CreatedAt,
			&d.Marks, &d.NegativeMarks, &d.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, d)
	}
	return questions, rows.Err()
}

// CountByExam returns how many questions are attached to an exam.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}
