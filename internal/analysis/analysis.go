// Package analysis turns a graded attempt into a per-question report.
package analysis

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alphaexam/alphaexam-backend/internal/grading"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
)

// Row is one question of the report.
type Row struct {
	Number        int          `json:"number"`
	QuestionID    string       `json:"question_id"`
	QuestionText  string       `json:"question_text"`
	Selected      model.Option `json:"selected,omitempty"`
	CorrectAnswer model.Option `json:"correct_answer"`
	Answered      bool         `json:"answered"`
	Correct       bool         `json:"correct"`
	MarksObtained float64      `json:"marks_obtained"`
	Explanation   *string      `json:"explanation,omitempty"`
}

// Report is the analysis shown after an attempt.
type Report struct {
	AttemptID      string  `json:"attempt_id"`
	ExamTitle      string  `json:"exam_title"`
	Rows           []Row   `json:"rows"`
	TotalMarks     float64 `json:"total_marks"`
	PossibleMarks  float64 `json:"possible_marks"`
	Percentage     float64 `json:"percentage"`
	Grade          string  `json:"grade"`
	CorrectCount   int     `json:"correct_count"`
	WrongCount     int     `json:"wrong_count"`
	SkippedCount   int     `json:"skipped_count"`
	TotalQuestions int     `json:"total_questions"`
	TimeSpent      int     `json:"time_spent"`
}

// Build lays out a finalised attempt. Rows come from the graded answers in
// served order and the counts from the persisted result; nothing is marked
// again here. questions supply the text and explanation of each row.
func Build(result model.AttemptResult, questions []model.ReviewQuestion, graded []model.AttemptAnswer) Report {
	byID := make(map[uuid.UUID]*model.ReviewQuestion, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	rep := Report{
		AttemptID:      result.AttemptID.String(),
		ExamTitle:      result.Exam.Title,
		Rows:           make([]Row, 0, len(graded)),
		TotalMarks:     result.TotalMarks,
		PossibleMarks:  result.PossibleMarks,
		Percentage:     result.Percentage,
		Grade:          grading.Letter(result.Percentage),
		CorrectCount:   result.CorrectAnswers,
		WrongCount:     max(result.AnsweredCount-result.CorrectAnswers, 0),
		SkippedCount:   max(result.TotalQuestions-result.AnsweredCount, 0),
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      result.TimeSpent,
	}

	for i, g := range graded {
		row := Row{
			Number:        i + 1,
			QuestionID:    g.QuestionID.String(),
			Selected:      g.SelectedOption,
			CorrectAnswer: g.CorrectOption,
			Answered:      g.Answered(),
			Correct:       g.IsCorrect,
			MarksObtained: g.MarksObtained,
		}
		if q, ok := byID[g.QuestionID]; ok {
			row.QuestionText = q.QuestionText
			row.Explanation = q.Explanation
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

// Render writes a plain-text rendition of the report.
func (r Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\nScore: %s / %s (%.2f%%)  Grade: %s\nCorrect: %d  Wrong: %d  Skipped: %d  Time: %s\n\n",
		r.ExamTitle,
		formatMarks(r.TotalMarks), formatMarks(r.PossibleMarks), r.Percentage, r.Grade,
		r.CorrectCount, r.WrongCount, r.SkippedCount, formatDuration(r.TimeSpent),
	); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tANSWER\tKEY\tRESULT\tMARKS\tQUESTION")
	for _, row := range r.Rows {
		answer := "-"
		if row.Answered {
			answer = string(row.Selected)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			row.Number, answer, row.CorrectAnswer, status(row), formatMarks(row.MarksObtained), truncate(row.QuestionText, 60))
	}
	return tw.Flush()
}

func status(row Row) string {
	switch {
	case !row.Answered:
		return "skipped"
	case row.Correct:
		return "correct"
	default:
		return "wrong"
	}
}

func formatMarks(m float64) string {
	return strconv.FormatFloat(math.Round(m*100)/100, 'f', -1, 64)
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
