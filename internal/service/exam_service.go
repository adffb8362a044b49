package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExamService handles the exam catalogue, exam administration and the Redis
// paper cache.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// Get retrieves any exam by id.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// GetActive retrieves an exam that is visible in the catalogue.
func (s *ExamService) GetActive(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, ErrNotFound
	}
	return exam, nil
}

// List retrieves exams with pagination. The public catalogue passes
// ActiveOnly; the back-office lists everything.
func (s *ExamService) List(ctx context.Context, f repository.ExamFilter, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)

	exams, total, err := s.examRepo.List(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new, inactive exam. An exam without a price is free.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		DurationMinutes: req.DurationMinutes,
		QuestionCount:   req.QuestionCount,
		PriceCredits:    req.PriceCredits,
		IsFree:          req.IsFree || req.PriceCredits == 0,
	}
	if exam.IsFree {
		exam.PriceCredits = 0
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Str("exam_id", exam.ID.String()).Msg("Exam created")
	return exam, nil
}

// Update edits an exam. Exams cannot change while anyone is mid-attempt.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoAttemptsInProgress(ctx, id); err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.CategoryID != nil {
		exam.CategoryID = req.CategoryID
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.QuestionCount != nil {
		exam.QuestionCount = *req.QuestionCount
	}
	if req.PriceCredits != nil {
		exam.PriceCredits = *req.PriceCredits
	}
	if req.IsFree != nil {
		exam.IsFree = *req.IsFree
	}
	if exam.PriceCredits == 0 {
		exam.IsFree = true
	}
	if exam.IsFree {
		exam.PriceCredits = 0
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	s.InvalidatePaper(ctx, id)
	return exam, nil
}

// SetActive lists or unlists an exam. Activation requires questions and
// warms the paper cache.
func (s *ExamService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Exam, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		if _, err := s.WarmPaperCache(ctx, exam); err != nil {
			return nil, err
		}
	}
	if err := s.examRepo.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	exam.IsActive = active
	s.log.Info().Str("exam_id", id.String()).Bool("active", active).Msg("Exam visibility changed")
	return exam, nil
}

// RefreshCache re-caches the paper of an exam after its questions change.
func (s *ExamService) RefreshCache(ctx context.Context, id uuid.UUID) error {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.WarmPaperCache(ctx, exam); err != nil {
		return err
	}
	s.log.Info().Str("exam_id", id.String()).Msg("Cache refreshed")
	return nil
}

// ServedQuestions returns the questions an attempt on exam is graded
// against: the first QuestionCount by order, or all of them.
func (s *ExamService) ServedQuestions(ctx context.Context, db repository.DBTX, exam *model.Exam) ([]model.ExamQuestionDetail, error) {
	questions, err := s.questionRepo.ListByExam(ctx, db, exam.ID, exam.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// ReviewQuestions loads the questions behind the graded rows of a finalised
// attempt and returns them in served order with the graded keys.
func (s *ExamService) ReviewQuestions(ctx context.Context, graded []model.AttemptAnswer) ([]model.ReviewQuestion, error) {
	ids := make([]uuid.UUID, len(graded))
	for i, g := range graded {
		ids[i] = g.QuestionID
	}
	questions, err := s.questionRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return reviewQuestions(graded, questions)
}

// WarmPaperCache loads the student-facing paper of exam into Redis. The
// cached paper never carries answer keys or explanations.
func (s *ExamService) WarmPaperCache(ctx context.Context, exam *model.Exam) (*model.ExamPaperCache, error) {
	questions, err := s.ServedQuestions(ctx, nil, exam)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	paper, err := buildPaper(exam, questions)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPaperKey(exam.ID.String()), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return paper, nil
}

// Paper returns the cached paper of exam, warming the cache on a miss.
func (s *ExamService) Paper(ctx context.Context, exam *model.Exam) (*model.ExamPaperCache, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(exam.ID.String())).Bytes()
	if err == nil {
		var paper model.ExamPaperCache
		if err := json.Unmarshal(raw, &paper); err == nil {
			return &paper, nil
		}
		s.log.Warn().Str("exam_id", exam.ID.String()).Msg("Corrupt cached paper, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Paper cache read failed")
	}
	return s.WarmPaperCache(ctx, exam)
}

// PaperByID is Paper for callers that only hold the exam id. A cache hit
// avoids touching PostgreSQL.
func (s *ExamService) PaperByID(ctx context.Context, examID uuid.UUID) (*model.ExamPaperCache, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Bytes()
	if err == nil {
		var paper model.ExamPaperCache
		if json.Unmarshal(raw, &paper) == nil {
			return &paper, nil
		}
	}
	exam, err := s.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.WarmPaperCache(ctx, exam)
}

// InvalidatePaper drops the cached paper so the next read rebuilds it.
func (s *ExamService) InvalidatePaper(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Paper cache invalidation failed")
	}
}

// PrewarmAllCaches loads all active exams into Redis on application startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.examRepo.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}
	if len(ids) == 0 {
		s.log.Info().Msg("No active exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(ids)).Msg("Prewarming active exams...")
	warmed := 0
	for _, id := range ids {
		exam, err := s.Get(ctx, id)
		if err == nil {
			_, err = s.WarmPaperCache(ctx, exam)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(ids)).Msg("Prewarming complete")
	return nil
}

func (s *ExamService) ensureNoAttemptsInProgress(ctx context.Context, examID uuid.UUID) error {
	busy, err := s.examRepo.HasAttemptsInProgress(ctx, examID)
	if err != nil {
		return fmt.Errorf("check attempts: %w", err)
	}
	if busy {
		return ErrAttemptInProgress
	}
	return nil
}

// buildPaper strips answer keys from questions for the exam taker.
func buildPaper(exam *model.Exam, questions []model.ExamQuestionDetail) (*model.ExamPaperCache, error) {
	served := make([]model.QuestionForStudent, 0, len(questions))
	if err := copier.Copy(&served, &questions); err != nil {
		return nil, fmt.Errorf("copy questions: %w", err)
	}
	return &model.ExamPaperCache{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       served,
	}, nil
}

// reviewQuestions pairs the graded rows of an attempt with the question text
// they refer to. Keys and marks come from the graded rows, so the review shows
// what the attempt was marked against even if the exam was edited since.
func reviewQuestions(graded []model.AttemptAnswer, questions []model.Question) ([]model.ReviewQuestion, error) {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	out := make([]model.ReviewQuestion, len(graded))
	for i, g := range graded {
		if q, ok := byID[g.QuestionID]; ok {
			if err := copier.Copy(&out[i].QuestionForStudent, q); err != nil {
				return nil, fmt.Errorf("copy question: %w", err)
			}
			out[i].Explanation = q.Explanation
		}
		out[i].ID = g.QuestionID
		out[i].Marks = g.Marks
		out[i].NegativeMarks = g.NegativeMarks
		out[i].OrderNum = g.Position
		out[i].CorrectAnswer = g.CorrectOption
	}
	return out, nil
}
