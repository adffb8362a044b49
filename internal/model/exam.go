package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity. Exams are immutable while attempts are in progress.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	CategoryName    string     `json:"category_name,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	// QuestionCount caps how many questions (by order) are served; 0 serves all.
	QuestionCount int       `json:"question_count"`
	PriceCredits  int       `json:"price_credits"`
	IsFree        bool      `json:"is_free"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DurationSeconds is the full time budget of one attempt.
func (e *Exam) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// ExamSummary is the slice of an exam embedded in attempt results.
type ExamSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	Description     string     `json:"description" binding:"omitempty,max=5000"`
	CategoryID      *uuid.UUID `json:"category_id" binding:"omitempty"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	QuestionCount   int        `json:"question_count" binding:"min=0"`
	PriceCredits    int        `json:"price_credits" binding:"min=0"`
	IsFree          bool       `json:"is_free"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=5000"`
	CategoryID      *uuid.UUID `json:"category_id" binding:"omitempty"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	QuestionCount   *int       `json:"question_count" binding:"omitempty,min=0"`
	PriceCredits    *int       `json:"price_credits" binding:"omitempty,min=0"`
	IsFree          *bool      `json:"is_free"`
}

// SetActiveRequest toggles whether an exam is listed and startable.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ExamPaperCache is the Redis-cached, attempt-independent part of a paper.
type ExamPaperCache struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}

// ExamPaper is what the exam-taking client receives for an active attempt.
// It never carries correct answers or explanations.
type ExamPaper struct {
	AttemptID        uuid.UUID            `json:"attempt_id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	Title            string               `json:"title"`
	DurationMinutes  int                  `json:"duration_minutes"`
	StartedAt        time.Time            `json:"started_at"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Questions        []QuestionForStudent `json:"questions"`
}
