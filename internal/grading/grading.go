// Package grading implements the marking scheme shared by the submission
// endpoint, the expiry sweeper and the analysis report.
package grading

import "github.com/alphaexam/alphaexam-backend/internal/model"

// Item is the slice of a question that grading needs.
type Item struct {
	QuestionID    string
	Correct       model.Option
	Marks         float64
	NegativeMarks float64
}

// Outcome is how a single question was marked.
type Outcome struct {
	QuestionID    string       `json:"question_id"`
	Selected      model.Option `json:"selected,omitempty"`
	Answered      bool         `json:"answered"`
	Correct       bool         `json:"correct"`
	MarksObtained float64      `json:"marks_obtained"`
}

// Result aggregates every outcome of an answer set.
type Result struct {
	Outcomes       []Outcome `json:"outcomes"`
	TotalMarks     float64   `json:"total_marks"`
	PossibleMarks  float64   `json:"possible_marks"`
	Percentage     float64   `json:"percentage"`
	CorrectCount   int       `json:"correct_count"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
}

// ValidOption reports whether o is one of A–D.
func ValidOption(o model.Option) bool {
	return o.Valid()
}

// ScoreQuestion marks one answer: +marks if correct, -negativeMarks if wrong,
// zero when unanswered. An empty selected option means unanswered.
func ScoreQuestion(item Item, selected model.Option) Outcome {
	out := Outcome{QuestionID: item.QuestionID}
	if selected == "" {
		return out
	}
	out.Selected = selected
	out.Answered = true
	if selected == item.Correct {
		out.Correct = true
		out.MarksObtained = item.Marks
		return out
	}
	out.MarksObtained = -item.NegativeMarks
	return out
}

// Score grades answers against items in order. Answers keyed by ids that are
// not among items are ignored.
func Score(items []Item, answers map[string]model.Option) Result {
	res := Result{
		Outcomes:       make([]Outcome, 0, len(items)),
		TotalQuestions: len(items),
	}
	for _, item := range items {
		out := ScoreQuestion(item, answers[item.QuestionID])
		res.Outcomes = append(res.Outcomes, out)
		res.PossibleMarks += item.Marks
		res.TotalMarks += out.MarksObtained
		if out.Answered {
			res.AnsweredCount++
		}
		if out.Correct {
			res.CorrectCount++
		}
	}
	res.Percentage = Percentage(res.TotalMarks, res.PossibleMarks)
	return res
}

// Percentage is total/possible*100, zero when nothing is possible. It may be
// negative when negative marking dominates.
func Percentage(total, possible float64) float64 {
	if possible == 0 {
		return 0
	}
	return total / possible * 100
}

var thresholds = []struct {
	min    float64
	letter string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
}

// Letter maps a percentage to its grade letter.
func Letter(percentage float64) string {
	for _, t := range thresholds {
		if percentage >= t.min {
			return t.letter
		}
	}
	return "F"
}

// ItemsFromDetails adapts exam-placed questions for grading.
func ItemsFromDetails(qs []model.ExamQuestionDetail) []Item {
	items := make([]Item, len(qs))
	for i, q := range qs {
		items[i] = Item{
			QuestionID:    q.ID.String(),
			Correct:       q.CorrectAnswer,
			Marks:         q.Marks,
			NegativeMarks: q.NegativeMarks,
		}
	}
	return items
}
