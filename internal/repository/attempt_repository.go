package repository

import (
	"context"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, user_id, status, started_at, ended_at, time_spent,
	total_marks, possible_marks, percentage, correct_count, answered_count, total_questions, end_reason`

func scanAttempt(row pgx.Row, a *model.ExamAttempt) error {
	return row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.StartedAt, &a.EndedAt, &a.TimeSpent,
		&a.TotalMarks, &a.PossibleMarks, &a.Percentage, &a.CorrectCount, &a.AnsweredCount,
		&a.TotalQuestions, &a.EndReason)
}

// Create opens an IN_PROGRESS attempt. When the user already has one for the
// exam the insert is skipped and pgx.ErrNoRows is returned.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, status)
		 VALUES ($1, $2, 'IN_PROGRESS')
		 ON CONFLICT (user_id, exam_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		 RETURNING `+attemptColumns,
		a.ExamID, a.UserID), a)
}

// GetByID retrieves an attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetInProgress retrieves the user's open attempt on an exam.
func (r *AttemptRepository) GetInProgress(ctx context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status = 'IN_PROGRESS'`, userID, examID), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetLatestFinished retrieves the user's most recently finalised attempt on an exam.
func (r *AttemptRepository) GetLatestFinished(ctx context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status <> 'IN_PROGRESS'
		 ORDER BY ended_at DESC NULLS LAST LIMIT 1`, userID, examID), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// LockForUpdate re-reads an attempt inside tx and holds its row lock until
// the transaction ends, serialising concurrent finalisations.
func (r *AttemptRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	if err := scanAttempt(tx.QueryRow(ctx, `SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1 FOR UPDATE`, id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// Finalise moves an IN_PROGRESS attempt to status with its grades. It
// returns false when the attempt had already left IN_PROGRESS.
func (r *AttemptRepository) Finalise(ctx context.Context, tx pgx.Tx, a *model.ExamAttempt) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, ended_at = $2, time_spent = $3, total_marks = $4, possible_marks = $5,
		     percentage = $6, correct_count = $7, answered_count = $8, total_questions = $9, end_reason = $10
		 WHERE id = $11 AND status = 'IN_PROGRESS'`,
		a.Status, a.EndedAt, a.TimeSpent, a.TotalMarks, a.PossibleMarks,
		a.Percentage, a.CorrectCount, a.AnsweredCount, a.TotalQuestions, a.EndReason, a.ID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// InsertAnswers writes the graded rows of an attempt using UNNEST. Skipped
// questions are stored with a NULL selection.
func (r *AttemptRepository) InsertAnswers(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID, answers []model.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	n := len(answers)
	questionIDs := make([]uuid.UUID, n)
	positions := make([]int32, n)
	selected := make([]*string, n)
	keys := make([]string, n)
	marks := make([]float64, n)
	negatives := make([]float64, n)
	corrects := make([]bool, n)
	obtained := make([]float64, n)
	for i, a := range answers {
		questionIDs[i] = a.QuestionID
		positions[i] = int32(a.Position)
		if a.Answered() {
			opt := string(a.SelectedOption)
			selected[i] = &opt
		}
		keys[i] = string(a.CorrectOption)
		marks[i] = a.Marks
		negatives[i] = a.NegativeMarks
		corrects[i] = a.IsCorrect
		obtained[i] = a.MarksObtained
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, position, selected_option, correct_option,
		                              marks, negative_marks, is_correct, marks_obtained)
		 SELECT $1, u.question_id, u.position, u.selected_option, u.correct_option,
		        u.marks, u.negative_marks, u.is_correct, u.marks_obtained
		 FROM UNNEST($2::uuid[], $3::int4[], $4::text[], $5::text[], $6::float8[], $7::float8[], $8::bool[], $9::float8[])
		      AS u (question_id, position, selected_option, correct_option, marks, negative_marks, is_correct, marks_obtained)`,
		attemptID, questionIDs, positions, selected, keys, marks, negatives, corrects, obtained)
	return err
}

// ListAnswers returns the selected options of a finalised attempt keyed by
// question id. Skipped questions are absent.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[string]model.Option, error) {
	return r.optionMap(ctx,
		`SELECT question_id, selected_option FROM attempt_answers
		 WHERE attempt_id = $1 AND selected_option IS NOT NULL`, attemptID)
}

// ListGradedAnswers returns every graded row of an attempt in served order.
func (r *AttemptRepository) ListGradedAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, position, selected_option, correct_option,
		        marks, negative_marks, is_correct, marks_obtained
		 FROM attempt_answers
		 WHERE attempt_id = $1
		 ORDER BY position, question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AttemptAnswer{}
	for rows.Next() {
		var (
			a        model.AttemptAnswer
			selected *string
			key      string
		)
		if err := rows.Scan(&a.QuestionID, &a.Position, &selected, &key,
			&a.Marks, &a.NegativeMarks, &a.IsCorrect, &a.MarksObtained); err != nil {
			return nil, err
		}
		if selected != nil {
			a.SelectedOption = model.Option(*selected)
		}
		a.CorrectOption = model.Option(key)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListDrafts returns the autosaved answers of an attempt keyed by question id.
func (r *AttemptRepository) ListDrafts(ctx context.Context, db DBTX, attemptID uuid.UUID) (map[string]model.Option, error) {
	if db == nil {
		db = r.pool
	}
	rows, err := db.Query(ctx,
		`SELECT question_id, option FROM attempt_drafts WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	return collectOptions(rows)
}

func (r *AttemptRepository) optionMap(ctx context.Context, query string, args ...any) (map[string]model.Option, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectOptions(rows)
}

func collectOptions(rows pgx.Rows) (map[string]model.Option, error) {
	defer rows.Close()
	out := make(map[string]model.Option)
	for rows.Next() {
		var qid uuid.UUID
		var opt string
		if err := rows.Scan(&qid, &opt); err != nil {
			return nil, err
		}
		out[qid.String()] = model.Option(opt)
	}
	return out, rows.Err()
}

// DraftAnswer is one autosaved selection.
type DraftAnswer struct {
	AttemptID  uuid.UUID
	QuestionID uuid.UUID
	Option     model.Option
	SavedAt    time.Time
}

// UpsertDrafts bulk-upserts autosaved answers using UNNEST. Rows for attempts
// that are no longer in progress are dropped, and an older save never
// overwrites a newer one.
func (r *AttemptRepository) UpsertDrafts(ctx context.Context, drafts []DraftAnswer) error {
	if len(drafts) == 0 {
		return nil
	}
	attemptIDs := make([]uuid.UUID, len(drafts))
	questionIDs := make([]uuid.UUID, len(drafts))
	options := make([]string, len(drafts))
	savedAts := make([]time.Time, len(drafts))
	for i, d := range drafts {
		attemptIDs[i] = d.AttemptID
		questionIDs[i] = d.QuestionID
		options[i] = string(d.Option)
		savedAts[i] = d.SavedAt
	}

	// DISTINCT ON keeps the newest save per key so one statement never
	// touches the same row twice.
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_drafts (attempt_id, question_id, option, updated_at)
		 SELECT DISTINCT ON (u.attempt_id, u.question_id)
		        u.attempt_id, u.question_id, u.option, u.saved_at
		 FROM UNNEST($1::uuid[], $2::uuid[], $3::text[], $4::timestamptz[])
		      AS u (attempt_id, question_id, option, saved_at)
		 JOIN exam_attempts a ON a.id = u.attempt_id AND a.status = 'IN_PROGRESS'
		 ORDER BY u.attempt_id, u.question_id, u.saved_at DESC
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET option = EXCLUDED.option, updated_at = EXCLUDED.updated_at
		 WHERE attempt_drafts.updated_at <= EXCLUDED.updated_at`,
		attemptIDs, questionIDs, options, savedAts)
	return err
}

// UpsertDraft is the single-row fallback of UpsertDrafts.
func (r *AttemptRepository) UpsertDraft(ctx context.Context, d DraftAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_drafts (attempt_id, question_id, option, updated_at)
		 SELECT $1, $2, $3, $4
		 WHERE EXISTS (SELECT 1 FROM exam_attempts WHERE id = $1 AND status = 'IN_PROGRESS')
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET option = EXCLUDED.option, updated_at = EXCLUDED.updated_at
		 WHERE attempt_drafts.updated_at <= EXCLUDED.updated_at`,
		d.AttemptID, d.QuestionID, string(d.Option), d.SavedAt)
	return err
}

// DeleteDrafts removes autosaved answers once an attempt is finalised.
func (r *AttemptRepository) DeleteDrafts(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM attempt_drafts WHERE attempt_id = $1`, attemptID)
	return err
}

// OverdueAttempt is an IN_PROGRESS attempt past its deadline.
type OverdueAttempt struct {
	AttemptID       uuid.UUID
	ExamID          uuid.UUID
	UserID          uuid.UUID
	StartedAt       time.Time
	DurationMinutes int
	QuestionCount   int
}

// ListOverdue returns attempts whose deadline passed more than grace ago.
func (r *AttemptRepository) ListOverdue(ctx context.Context, grace time.Duration, limit int) ([]OverdueAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.user_id, a.started_at, e.duration_minutes, e.question_count
		 FROM exam_attempts a
		 JOIN exams e ON e.id = a.exam_id
		 WHERE a.status = 'IN_PROGRESS'
		   AND a.started_at + make_interval(mins => e.duration_minutes) + make_interval(secs => $1) < NOW()
		 ORDER BY a.started_at
		 LIMIT $2`,
		grace.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueAttempt
	for rows.Next() {
		var o OverdueAttempt
		if err := rows.Scan(&o.AttemptID, &o.ExamID, &o.UserID, &o.StartedAt, &o.DurationMinutes, &o.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListByUser retrieves a user's attempts with exam titles, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttemptListItem, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_attempts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, e.title, a.status, a.percentage, a.total_marks, a.started_at, a.ended_at
		 FROM exam_attempts a
		 JOIN exams e ON e.id = a.exam_id
		 WHERE a.user_id = $1
		 ORDER BY a.started_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.AttemptListItem{}
	for rows.Next() {
		var it model.AttemptListItem
		if err := rows.Scan(&it.ID, &it.ExamID, &it.ExamTitle, &it.Status, &it.Percentage,
			&it.TotalMarks, &it.StartedAt, &it.EndedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// AttemptExportRow is one line of an exam's results export.
type AttemptExportRow struct {
	AttemptID     uuid.UUID
	UserName      string
	UserEmail     string
	Status        model.AttemptStatus
	EndReason     *model.EndReason
	TotalMarks    float64
	PossibleMarks float64
	Percentage    float64
	CorrectCount  int
	AnsweredCount int
	TimeSpent     int
	StartedAt     time.Time
	EndedAt       *time.Time
}

// ListFinishedByExam returns every finalised attempt of an exam for export.
func (r *AttemptRepository) ListFinishedByExam(ctx context.Context, examID uuid.UUID) ([]AttemptExportRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, u.name, u.email, a.status, a.end_reason, a.total_marks, a.possible_marks,
		        a.percentage, a.correct_count, a.answered_count, a.time_spent, a.started_at, a.ended_at
		 FROM exam_attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.exam_id = $1 AND a.status <> 'IN_PROGRESS'
		 ORDER BY a.percentage DESC, a.ended_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptExportRow
	for rows.Next() {
		var x AttemptExportRow
		if err := rows.Scan(&x.AttemptID, &x.UserName, &x.UserEmail, &x.Status, &x.EndReason,
			&x.TotalMarks, &x.PossibleMarks, &x.Percentage, &x.CorrectCount, &x.AnsweredCount,
			&x.TimeSpent, &x.StartedAt, &x.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
