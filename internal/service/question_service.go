package service

import (
	"context"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuestionService handles question authoring and exam placement.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examService  *ExamService
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, examService *ExamService, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		examService:  examService,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Create inserts a new question into the bank.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	answer, ok := model.ParseOption(req.CorrectAnswer)
	if !ok {
		return nil, ErrInvalidOption
	}
	q := &model.Question{
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: answer,
		Explanation:   req.Explanation,
		Figures:       req.Figures,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Get retrieves a question with its answer key.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Attach places a question into an exam with its marking. Order values are
// unique per exam.
func (s *QuestionService) Attach(ctx context.Context, examID uuid.UUID, req *model.AttachQuestionRequest) (*model.ExamQuestion, error) {
	if _, err := s.examService.Get(ctx, examID); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, req.QuestionID); err != nil {
		return nil, err
	}
	if err := s.examService.ensureNoAttemptsInProgress(ctx, examID); err != nil {
		return nil, err
	}

	eq := &model.ExamQuestion{
		ExamID:        examID,
		QuestionID:    req.QuestionID,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		OrderNum:      req.OrderNum,
	}
	if err := s.questionRepo.Attach(ctx, eq); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintExamQuestionOrder) {
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("attach question: %w", err)
	}

	s.examService.InvalidatePaper(ctx, examID)
	s.log.Info().
		Str("exam_id", examID.String()).
		Str("question_id", req.QuestionID.String()).
		Int("order", req.OrderNum).
		Msg("Question attached")
	return eq, nil
}

// Detach removes a question from an exam.
func (s *QuestionService) Detach(ctx context.Context, examID, questionID uuid.UUID) error {
	if err := s.examService.ensureNoAttemptsInProgress(ctx, examID); err != nil {
		return err
	}
	removed, err := s.questionRepo.Detach(ctx, examID, questionID)
	if err != nil {
		return fmt.Errorf("detach question: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	s.examService.InvalidatePaper(ctx, examID)
	return nil
}

// ListByExam returns every question attached to an exam, answer keys included.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestionDetail, error) {
	if _, err := s.examService.Get(ctx, examID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByExam(ctx, nil, examID, 0)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}
