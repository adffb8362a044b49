package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. Transitions only leave IN_PROGRESS.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
)

// EndReason records what finalised an attempt.
type EndReason string

const (
	EndReasonManual  EndReason = "MANUAL"
	EndReasonTimeout EndReason = "TIMEOUT"
	EndReasonSweeper EndReason = "SWEEPER"
)

// ExamAttempt is one user's run through an exam.
type ExamAttempt struct {
	ID             uuid.UUID     `json:"id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	UserID         uuid.UUID     `json:"user_id"`
	Status         AttemptStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	TimeSpent      int           `json:"time_spent"`
	TotalMarks     float64       `json:"total_marks"`
	PossibleMarks  float64       `json:"possible_marks"`
	Percentage     float64       `json:"percentage"`
	CorrectCount   int           `json:"correct_count"`
	AnsweredCount  int           `json:"answered_count"`
	TotalQuestions int           `json:"total_questions"`
	EndReason      *EndReason    `json:"end_reason,omitempty"`
}

// Deadline is the server-side instant at which the attempt runs out of time.
func (a *ExamAttempt) Deadline(durationMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// RemainingSeconds is the whole seconds left before the deadline, never negative.
func (a *ExamAttempt) RemainingSeconds(durationMinutes int, now time.Time) int {
	left := a.Deadline(durationMinutes).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// AttemptAnswer is one served question of a finalised attempt as it was
// graded. Every served question has a row; SelectedOption is empty when the
// question was skipped. The key and marks are copied at grading time so later
// edits to the exam never change a finished attempt.
type AttemptAnswer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Position       int       `json:"position"`
	SelectedOption Option    `json:"selected_option,omitempty"`
	CorrectOption  Option    `json:"correct_option"`
	Marks          float64   `json:"marks"`
	NegativeMarks  float64   `json:"negative_marks"`
	IsCorrect      bool      `json:"is_correct"`
	MarksObtained  float64   `json:"marks_obtained"`
}

// Answered reports whether an option was selected.
func (a AttemptAnswer) Answered() bool {
	return a.SelectedOption != ""
}

// SubmitRequest is the final answer set sent by the exam-taking client.
type SubmitRequest struct {
	Answers   map[string]Option `json:"answers"`
	TimeSpent int               `json:"time_spent" binding:"min=0"`
}

// SubmitResponse identifies the graded attempt for redirection.
type SubmitResponse struct {
	AttemptID uuid.UUID `json:"attempt_id"`
}

// SaveAnswerRequest autosaves one selection during an attempt.
type SaveAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Option     string `json:"option" binding:"required,exam_option"`
}

// AttemptState lets a reloaded client resume: autosaved answers and server time left.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	Status           AttemptStatus     `json:"status"`
	StartedAt        time.Time         `json:"started_at"`
	DurationMinutes  int               `json:"duration_minutes"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Answers          map[string]Option `json:"answers"`
}

// AttemptResult is the graded summary returned by the result fetch.
type AttemptResult struct {
	AttemptID      uuid.UUID     `json:"attempt_id"`
	TotalMarks     float64       `json:"total_marks"`
	PossibleMarks  float64       `json:"possible_marks"`
	Percentage     float64       `json:"percentage"`
	CorrectAnswers int           `json:"correct_answers"`
	AnsweredCount  int           `json:"answered_count"`
	TotalQuestions int           `json:"total_questions"`
	TimeSpent      int           `json:"time_spent"`
	Status         AttemptStatus `json:"status"`
	EndReason      *EndReason    `json:"end_reason,omitempty"`
	Exam           ExamSummary   `json:"exam"`
	CreatedAt      time.Time     `json:"created_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
}

// AttemptDetail is the full payload behind GET /api/exam-attempts/:id.
type AttemptDetail struct {
	Result      AttemptResult     `json:"result"`
	Questions   []ReviewQuestion  `json:"questions"`
	UserAnswers map[string]Option `json:"user_answers"`
	Answers     []AttemptAnswer   `json:"answers"`
}

// AttemptListItem is a row in a user's attempt history.
type AttemptListItem struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	ExamTitle  string        `json:"exam_title"`
	Status     AttemptStatus `json:"status"`
	Percentage float64       `json:"percentage"`
	TotalMarks float64       `json:"total_marks"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// AutosavePayload is queued for the autosave worker on every saved answer.
type AutosavePayload struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Option     Option    `json:"option"`
	SavedAt    time.Time `json:"saved_at"`
}
