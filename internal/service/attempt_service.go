package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/analysis"
	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/database"
	"github.com/alphaexam/alphaexam-backend/internal/grading"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// resubmitWindow is how long after finalisation a repeated submit is
// answered with the existing attempt instead of an error.
const resubmitWindow = 10 * time.Minute

// sweepBatch bounds how many overdue attempts one sweep query returns.
const sweepBatch = 100

// AttemptReview is the post-submission payload of an attempt.
type AttemptReview struct {
	model.AttemptDetail
	Analysis analysis.Report `json:"analysis"`
}

// attemptMeta is the Redis copy of an open attempt, enough to authorise
// autosaves without touching PostgreSQL.
type attemptMeta struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	UserID          uuid.UUID `json:"user_id"`
	ExamID          uuid.UUID `json:"exam_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (m *attemptMeta) deadline() time.Time {
	return m.StartedAt.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// attemptStore is the part of AttemptRepository the attempt lifecycle uses.
type attemptStore interface {
	Create(ctx context.Context, a *model.ExamAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	GetInProgress(ctx context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error)
	GetLatestFinished(ctx context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ExamAttempt, error)
	Finalise(ctx context.Context, tx pgx.Tx, a *model.ExamAttempt) (bool, error)
	InsertAnswers(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID, answers []model.AttemptAnswer) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[string]model.Option, error)
	ListGradedAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error)
	ListDrafts(ctx context.Context, db repository.DBTX, attemptID uuid.UUID) (map[string]model.Option, error)
	DeleteDrafts(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID) error
	ListOverdue(ctx context.Context, grace time.Duration, limit int) ([]repository.OverdueAttempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttemptListItem, int, error)
}

// examSource is the part of ExamService the attempt lifecycle uses.
type examSource interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetActive(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Paper(ctx context.Context, exam *model.Exam) (*model.ExamPaperCache, error)
	PaperByID(ctx context.Context, examID uuid.UUID) (*model.ExamPaperCache, error)
	ServedQuestions(ctx context.Context, db repository.DBTX, exam *model.Exam) ([]model.ExamQuestionDetail, error)
	ReviewQuestions(ctx context.Context, graded []model.AttemptAnswer) ([]model.ReviewQuestion, error)
}

type purchaseChecker interface {
	HasPurchase(ctx context.Context, db repository.DBTX, userID, examID uuid.UUID) (bool, error)
}

// AttemptService owns the exam attempt lifecycle: start, autosave, submit,
// expiry and review.
type AttemptService struct {
	inTx        func(ctx context.Context, fn func(tx pgx.Tx) error) error
	attemptRepo attemptStore
	txRepo      purchaseChecker
	examService examSource
	rdb         redis.Cmdable
	log         zerolog.Logger
	now         func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	pool *pgxpool.Pool,
	attemptRepo *repository.AttemptRepository,
	txRepo *repository.TransactionRepository,
	examService *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		inTx: func(ctx context.Context, fn func(tx pgx.Tx) error) error {
			return database.WithTx(ctx, pool, fn)
		},
		attemptRepo: attemptRepo,
		txRepo:      txRepo,
		examService: examService,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

// Start opens an attempt for the caller, or returns the one already open.
// Paid exams need a purchase unless the caller is an admin.
func (s *AttemptService) Start(ctx context.Context, ident Identity, examID uuid.UUID) (*model.ExamAttempt, *model.Exam, error) {
	exam, err := s.examService.GetActive(ctx, examID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrExamNotAvailable
		}
		return nil, nil, err
	}
	if err := s.checkAccess(ctx, ident, exam); err != nil {
		return nil, nil, err
	}
	if _, err := s.examService.Paper(ctx, exam); err != nil {
		return nil, nil, err
	}

	attempt, err := s.attemptRepo.GetInProgress(ctx, ident.UserID, examID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if attempt == nil {
		attempt = &model.ExamAttempt{ExamID: examID, UserID: ident.UserID}
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			if !repository.IsNotFound(err) {
				return nil, nil, fmt.Errorf("create attempt: %w", err)
			}
			// Lost a race with a concurrent start.
			attempt, err = s.attemptRepo.GetInProgress(ctx, ident.UserID, examID)
			if err != nil {
				return nil, nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", err)
			}
		} else {
			s.log.Info().
				Str("attempt_id", attempt.ID.String()).
				Str("exam_id", examID.String()).
				Str("user_id", ident.UserID.String()).
				Msg("Attempt started")
		}
	}

	s.cacheMeta(ctx, attempt, exam.DurationMinutes)
	return attempt, exam, nil
}

// Paper starts or resumes the caller's attempt and returns its questions
// without answer keys, plus the server-computed time left.
func (s *AttemptService) Paper(ctx context.Context, ident Identity, examID uuid.UUID) (*model.ExamPaper, error) {
	attempt, exam, err := s.Start(ctx, ident, examID)
	if err != nil {
		return nil, err
	}
	cached, err := s.examService.Paper(ctx, exam)
	if err != nil {
		return nil, err
	}
	return &model.ExamPaper{
		AttemptID:        attempt.ID,
		ExamID:           exam.ID,
		Title:            cached.Title,
		DurationMinutes:  cached.DurationMinutes,
		StartedAt:        attempt.StartedAt,
		RemainingSeconds: attempt.RemainingSeconds(exam.DurationMinutes, s.now()),
		Questions:        cached.Questions,
	}, nil
}

// SaveAnswer autosaves one selection into Redis and queues it for the
// autosave worker.
func (s *AttemptService) SaveAnswer(ctx context.Context, ident Identity, attemptID uuid.UUID, req *model.SaveAnswerRequest) error {
	option, ok := model.ParseOption(req.Option)
	if !ok {
		return ErrInvalidOption
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return ErrUnknownQuestion
	}

	meta, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if meta.UserID != ident.UserID {
		return ErrForbidden
	}
	now := s.now()
	if !now.Before(meta.deadline()) {
		return ErrAttemptNotActive
	}

	paper, err := s.examService.PaperByID(ctx, meta.ExamID)
	if err != nil {
		return err
	}
	if !paperHasQuestion(paper, questionID) {
		return ErrUnknownQuestion
	}

	payload, err := json.Marshal(model.AutosavePayload{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Option:     option,
		SavedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answersKey := config.CacheKey.AttemptAnswersKey(attemptID.String())
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, answersKey, questionID.String(), string(option))
	pipe.ExpireAt(ctx, answersKey, meta.deadline().Add(time.Hour))
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosave to redis: %w", err)
	}
	return nil
}

// State returns what a reloaded client needs to resume: autosaved answers
// and the server-computed time left.
func (s *AttemptService) State(ctx context.Context, ident Identity, attemptID uuid.UUID) (*model.AttemptState, error) {
	attempt, err := s.ownedAttempt(ctx, ident, attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.examService.Get(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	state := &model.AttemptState{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		DurationMinutes:  exam.DurationMinutes,
		RemainingSeconds: 0,
		Answers:          map[string]model.Option{},
	}
	if attempt.Status != model.AttemptStatusInProgress {
		answers, err := s.attemptRepo.ListAnswers(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("list answers: %w", err)
		}
		state.Answers = answers
		return state, nil
	}

	state.RemainingSeconds = attempt.RemainingSeconds(exam.DurationMinutes, s.now())
	answers, err := s.autosaved(ctx, nil, attempt.ID)
	if err != nil {
		return nil, err
	}
	state.Answers = answers
	return state, nil
}

// Submit grades the caller's open attempt on examID and finalises it in one
// transaction. Submitting again shortly after finalisation returns the same
// attempt, which covers both client retries and the expiry sweeper winning
// the race.
func (s *AttemptService) Submit(ctx context.Context, ident Identity, examID uuid.UUID, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	if err := validateAnswers(req.Answers); err != nil {
		return nil, err
	}

	attempt, err := s.attemptRepo.GetInProgress(ctx, ident.UserID, examID)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("get attempt: %w", err)
		}
		return s.recentlyFinished(ctx, ident.UserID, examID)
	}
	return s.submit(ctx, attempt, req)
}

// SubmitAttempt is Submit addressed by attempt id, used by the stream.
func (s *AttemptService) SubmitAttempt(ctx context.Context, ident Identity, attemptID uuid.UUID, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	if err := validateAnswers(req.Answers); err != nil {
		return nil, err
	}
	attempt, err := s.ownedAttempt(ctx, ident, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return &model.SubmitResponse{AttemptID: attempt.ID}, nil
	}
	return s.submit(ctx, attempt, req)
}

func (s *AttemptService) submit(ctx context.Context, attempt *model.ExamAttempt, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	exam, err := s.examService.Get(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reason := model.EndReasonManual
	if !now.Before(attempt.Deadline(exam.DurationMinutes)) {
		reason = model.EndReasonTimeout
	}
	timeSpent := clampTimeSpent(req.TimeSpent, exam.DurationSeconds())

	if _, err := s.finalise(ctx, attempt.ID, exam, req.Answers, timeSpent, model.AttemptStatusCompleted, reason); err != nil {
		return nil, err
	}
	return &model.SubmitResponse{AttemptID: attempt.ID}, nil
}

// finalise grades answers and closes the attempt. It reports false when the
// attempt had already been closed by someone else, which is not an error.
func (s *AttemptService) finalise(
	ctx context.Context,
	attemptID uuid.UUID,
	exam *model.Exam,
	answers map[string]model.Option,
	timeSpent int,
	status model.AttemptStatus,
	reason model.EndReason,
) (bool, error) {
	var (
		closed bool
		result grading.Result
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		attempt, err := s.attemptRepo.LockForUpdate(ctx, tx, attemptID)
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		if attempt.Status != model.AttemptStatusInProgress {
			return nil
		}

		questions, err := s.examService.ServedQuestions(ctx, tx, exam)
		if err != nil {
			return err
		}
		result = grading.Score(grading.ItemsFromDetails(questions), answers)

		if err := s.attemptRepo.InsertAnswers(ctx, tx, attemptID, gradedAnswers(questions, result)); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}

		ended := s.now()
		attempt.Status = status
		attempt.EndedAt = &ended
		attempt.TimeSpent = timeSpent
		attempt.TotalMarks = result.TotalMarks
		attempt.PossibleMarks = result.PossibleMarks
		attempt.Percentage = result.Percentage
		attempt.CorrectCount = result.CorrectCount
		attempt.AnsweredCount = result.AnsweredCount
		attempt.TotalQuestions = result.TotalQuestions
		attempt.EndReason = &reason

		ok, err := s.attemptRepo.Finalise(ctx, tx, attempt)
		if err != nil {
			return fmt.Errorf("finalise attempt: %w", err)
		}
		if !ok {
			return nil
		}
		if err := s.attemptRepo.DeleteDrafts(ctx, tx, attemptID); err != nil {
			return fmt.Errorf("delete drafts: %w", err)
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !closed {
		return false, nil
	}

	s.clearRedis(ctx, attemptID)
	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Str("status", string(status)).
		Str("reason", string(reason)).
		Float64("score", result.TotalMarks).
		Float64("percentage", result.Percentage).
		Msg("Attempt finalised")
	return true, nil
}

// ExpireOverdue finalises every attempt whose deadline passed more than
// grace ago, grading whatever was autosaved. It returns how many it closed.
func (s *AttemptService) ExpireOverdue(ctx context.Context, grace time.Duration) (int, error) {
	expired := 0
	for {
		overdue, err := s.attemptRepo.ListOverdue(ctx, grace, sweepBatch)
		if err != nil {
			return expired, fmt.Errorf("list overdue: %w", err)
		}
		if len(overdue) == 0 {
			return expired, nil
		}

		progressed := false
		for _, o := range overdue {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			exam, err := s.examService.Get(ctx, o.ExamID)
			if err != nil {
				s.log.Error().Err(err).Str("attempt_id", o.AttemptID.String()).Msg("Sweep: exam lookup failed")
				continue
			}
			answers, err := s.autosaved(ctx, nil, o.AttemptID)
			if err != nil {
				s.log.Error().Err(err).Str("attempt_id", o.AttemptID.String()).Msg("Sweep: answers lookup failed")
				continue
			}
			closed, err := s.finalise(ctx, o.AttemptID, exam, answers, exam.DurationSeconds(),
				model.AttemptStatusExpired, model.EndReasonSweeper)
			if err != nil {
				s.log.Error().Err(err).Str("attempt_id", o.AttemptID.String()).Msg("Sweep: finalise failed")
				continue
			}
			progressed = true
			if closed {
				expired++
			}
		}
		if !progressed || len(overdue) < sweepBatch {
			return expired, nil
		}
	}
}

// Result returns a finalised attempt with answer keys, the caller's answers
// and the analysis report. Only the owner or an admin may read it.
func (s *AttemptService) Result(ctx context.Context, ident Identity, attemptID uuid.UUID) (*AttemptReview, error) {
	attempt, err := s.ownedAttempt(ctx, ident, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusInProgress {
		return nil, ErrAttemptUnfinished
	}
	exam, err := s.examService.Get(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	graded, err := s.attemptRepo.ListGradedAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list graded answers: %w", err)
	}
	review, err := s.examService.ReviewQuestions(ctx, graded)
	if err != nil {
		return nil, err
	}

	result := attemptResult(attempt, exam)
	return &AttemptReview{
		AttemptDetail: model.AttemptDetail{
			Result:      result,
			Questions:   review,
			UserAnswers: selectedOptions(graded),
			Answers:     graded,
		},
		Analysis: analysis.Build(result, review, graded),
	}, nil
}

// List returns the caller's attempt history.
func (s *AttemptService) List(ctx context.Context, ident Identity, page, perPage int) ([]model.AttemptListItem, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)
	items, total, err := s.attemptRepo.ListByUser(ctx, ident.UserID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	return items, response.NewPagination(page, perPage, total), nil
}

func (s *AttemptService) checkAccess(ctx context.Context, ident Identity, exam *model.Exam) error {
	if exam.IsFree || ident.IsAdmin() {
		return nil
	}
	owned, err := s.txRepo.HasPurchase(ctx, nil, ident.UserID, exam.ID)
	if err != nil {
		return fmt.Errorf("check purchase: %w", err)
	}
	if !owned {
		return ErrExamLocked
	}
	return nil
}

func (s *AttemptService) ownedAttempt(ctx context.Context, ident Identity, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != ident.UserID && !ident.IsAdmin() {
		return nil, ErrForbidden
	}
	return attempt, nil
}

func (s *AttemptService) recentlyFinished(ctx context.Context, userID, examID uuid.UUID) (*model.SubmitResponse, error) {
	last, err := s.attemptRepo.GetLatestFinished(ctx, userID, examID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}
	if last.EndedAt == nil || s.now().Sub(*last.EndedAt) > resubmitWindow {
		return nil, ErrAttemptNotActive
	}
	return &model.SubmitResponse{AttemptID: last.ID}, nil
}

// openAttempt loads the Redis copy of an open attempt, falling back to
// PostgreSQL and healing the cache on a miss.
func (s *AttemptService) openAttempt(ctx context.Context, attemptID uuid.UUID) (*attemptMeta, error) {
	key := config.CacheKey.AttemptMetaKey(attemptID.String())
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var meta attemptMeta
		if json.Unmarshal(raw, &meta) == nil {
			return &meta, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Attempt cache read failed, falling back to database")
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptNotActive
	}
	exam, err := s.examService.Get(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	return s.cacheMeta(ctx, attempt, exam.DurationMinutes), nil
}

func (s *AttemptService) cacheMeta(ctx context.Context, attempt *model.ExamAttempt, durationMinutes int) *attemptMeta {
	meta := &attemptMeta{
		AttemptID:       attempt.ID,
		UserID:          attempt.UserID,
		ExamID:          attempt.ExamID,
		StartedAt:       attempt.StartedAt,
		DurationMinutes: durationMinutes,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return meta
	}
	key := config.CacheKey.AttemptMetaKey(attempt.ID.String())
	if err := s.rdb.Set(ctx, key, raw, time.Until(meta.deadline().Add(time.Hour))).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache attempt")
	}
	return meta
}

// autosaved merges the Redis autosave hash over the persisted drafts.
func (s *AttemptService) autosaved(ctx context.Context, db repository.DBTX, attemptID uuid.UUID) (map[string]model.Option, error) {
	answers, err := s.attemptRepo.ListDrafts(ctx, db, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	cached, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Autosave cache read failed, using drafts")
		return answers, nil
	}
	for qid, opt := range cached {
		if o := model.Option(opt); o.Valid() {
			answers[qid] = o
		}
	}
	return answers, nil
}

func (s *AttemptService) clearRedis(ctx context.Context, attemptID uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()))
	pipe.Del(ctx, config.CacheKey.AttemptMetaKey(attemptID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear attempt cache")
	}
}

func attemptResult(a *model.ExamAttempt, exam *model.Exam) model.AttemptResult {
	return model.AttemptResult{
		AttemptID:      a.ID,
		TotalMarks:     a.TotalMarks,
		PossibleMarks:  a.PossibleMarks,
		Percentage:     a.Percentage,
		CorrectAnswers: a.CorrectCount,
		AnsweredCount:  a.AnsweredCount,
		TotalQuestions: a.TotalQuestions,
		TimeSpent:      a.TimeSpent,
		Status:         a.Status,
		EndReason:      a.EndReason,
		Exam: model.ExamSummary{
			ID:              exam.ID,
			Title:           exam.Title,
			DurationMinutes: exam.DurationMinutes,
		},
		CreatedAt: a.StartedAt,
		EndedAt:   a.EndedAt,
	}
}

// gradedAnswers pairs each served question with its outcome. Outcomes are in
// the same order as questions.
func gradedAnswers(questions []model.ExamQuestionDetail, res grading.Result) []model.AttemptAnswer {
	out := make([]model.AttemptAnswer, len(questions))
	for i, q := range questions {
		o := res.Outcomes[i]
		out[i] = model.AttemptAnswer{
			QuestionID:     q.ID,
			Position:       i + 1,
			SelectedOption: o.Selected,
			CorrectOption:  q.CorrectAnswer,
			Marks:          q.Marks,
			NegativeMarks:  q.NegativeMarks,
			IsCorrect:      o.Correct,
			MarksObtained:  o.MarksObtained,
		}
	}
	return out
}

func selectedOptions(graded []model.AttemptAnswer) map[string]model.Option {
	out := make(map[string]model.Option, len(graded))
	for _, g := range graded {
		if g.Answered() {
			out[g.QuestionID.String()] = g.SelectedOption
		}
	}
	return out
}

// validateAnswers rejects options outside A–D. Unknown question ids are
// left for grading to ignore.
func validateAnswers(answers map[string]model.Option) error {
	for _, opt := range answers {
		if !opt.Valid() {
			return ErrInvalidOption
		}
	}
	return nil
}

func clampTimeSpent(spent, limit int) int {
	return min(max(spent, 0), limit)
}

func paperHasQuestion(paper *model.ExamPaperCache, questionID uuid.UUID) bool {
	for _, q := range paper.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
