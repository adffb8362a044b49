package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option is a multiple-choice option letter.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Valid reports whether o is one of A–D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// ParseOption normalises user input ("b", " C ") into an Option.
func ParseOption(s string) (Option, bool) {
	o := Option(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.Valid()
}

// Question represents a single multiple-choice question.
type Question struct {
	ID            uuid.UUID `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer Option    `json:"correct_answer"`
	Explanation   *string   `json:"explanation,omitempty"`
	Figures       []Figure  `json:"figures,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExamQuestion is the join row carrying per-exam marking.
type ExamQuestion struct {
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	Marks         float64   `json:"marks"`
	NegativeMarks float64   `json:"negative_marks"`
	OrderNum      int       `json:"order_num"`
}

// ExamQuestionDetail is a question as placed in a specific exam.
type ExamQuestionDetail struct {
	Question
	Marks         float64 `json:"marks"`
	NegativeMarks float64 `json:"negative_marks"`
	OrderNum      int     `json:"order_num"`
}

// QuestionForStudent is a question served during an active attempt.
type QuestionForStudent struct {
	ID            uuid.UUID `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	Figures       []Figure  `json:"figures,omitempty"`
	Marks         float64   `json:"marks"`
	NegativeMarks float64   `json:"negative_marks"`
	OrderNum      int       `json:"order_num"`
}

// ReviewQuestion is a question as shown after submission, with the key.
type ReviewQuestion struct {
	QuestionForStudent
	CorrectAnswer Option  `json:"correct_answer"`
	Explanation   *string `json:"explanation,omitempty"`
}

// CreateQuestionRequest is the payload for creating a question.
type CreateQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=5000"`
	OptionA       string   `json:"option_a" binding:"required,max=1000"`
	OptionB       string   `json:"option_b" binding:"required,max=1000"`
	OptionC       string   `json:"option_c" binding:"required,max=1000"`
	OptionD       string   `json:"option_d" binding:"required,max=1000"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,exam_option"`
	Explanation   *string  `json:"explanation" binding:"omitempty,max=5000"`
	Figures       []Figure `json:"figures" binding:"omitempty,max=10"`
}

// AttachQuestionRequest places a question into an exam.
type AttachQuestionRequest struct {
	QuestionID    uuid.UUID `json:"question_id" binding:"required"`
	Marks         float64   `json:"marks" binding:"required,gt=0"`
	NegativeMarks float64   `json:"negative_marks" binding:"min=0"`
	OrderNum      int       `json:"order_num" binding:"min=0"`
}
