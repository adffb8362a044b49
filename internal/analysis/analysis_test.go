package analysis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
)

func reviewQuestions() []model.ReviewQuestion {
	explain := "Because."
	return []model.ReviewQuestion{
		{
			QuestionForStudent: model.QuestionForStudent{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), QuestionText: "First?", Marks: 4, NegativeMarks: 1},
			CorrectAnswer:      model.OptionA,
			Explanation:        &explain,
		},
		{
			QuestionForStudent: model.QuestionForStudent{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), QuestionText: "Second?", Marks: 4, NegativeMarks: 1},
			CorrectAnswer:      model.OptionB,
		},
		{
			QuestionForStudent: model.QuestionForStudent{ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), QuestionText: "Third?", Marks: 2},
			CorrectAnswer:      model.OptionD,
		},
	}
}

// gradedAnswers is scenario one of the marking scheme plus a skipped third
// question: 4 + (-1) + 0 out of 10.
func gradedAnswers(qs []model.ReviewQuestion) []model.AttemptAnswer {
	return []model.AttemptAnswer{
		{QuestionID: qs[0].ID, Position: 1, SelectedOption: model.OptionA, CorrectOption: model.OptionA, Marks: 4, NegativeMarks: 1, IsCorrect: true, MarksObtained: 4},
		{QuestionID: qs[1].ID, Position: 2, SelectedOption: model.OptionC, CorrectOption: model.OptionB, Marks: 4, NegativeMarks: 1, MarksObtained: -1},
		{QuestionID: qs[2].ID, Position: 3, CorrectOption: model.OptionD, Marks: 2},
	}
}

func TestBuild(t *testing.T) {
	qs := reviewQuestions()
	result := model.AttemptResult{
		AttemptID:      uuid.New(),
		TotalMarks:     3,
		PossibleMarks:  10,
		Percentage:     30,
		CorrectAnswers: 1,
		AnsweredCount:  2,
		TotalQuestions: 3,
		Exam:           model.ExamSummary{Title: "Physics Mock"},
		TimeSpent:      125,
	}

	rep := Build(result, qs, gradedAnswers(qs))

	if rep.Grade != "F" {
		t.Errorf("expected F, got %s", rep.Grade)
	}
	if rep.PossibleMarks != 10 {
		t.Errorf("expected possible 10, got %v", rep.PossibleMarks)
	}
	if rep.CorrectCount != 1 || rep.WrongCount != 1 || rep.SkippedCount != 1 {
		t.Errorf("unexpected counts: correct=%d wrong=%d skipped=%d", rep.CorrectCount, rep.WrongCount, rep.SkippedCount)
	}

	wantMarks := []float64{4, -1, 0}
	for i, row := range rep.Rows {
		if row.MarksObtained != wantMarks[i] {
			t.Errorf("row %d: expected %v marks, got %v", i, wantMarks[i], row.MarksObtained)
		}
		if row.Number != i+1 {
			t.Errorf("row %d: expected number %d, got %d", i, i+1, row.Number)
		}
	}
	if rep.Rows[2].Answered {
		t.Error("third question should be unanswered")
	}
	if rep.Rows[0].Explanation == nil || rep.Rows[1].QuestionText != "Second?" {
		t.Errorf("question text not attached: %+v", rep.Rows[:2])
	}
}

func TestBuildIgnoresLaterExamEdits(t *testing.T) {
	qs := reviewQuestions()
	graded := gradedAnswers(qs)

	// After submission the first key moved to B, the second question lost its
	// negative marking and the third was detached from the exam.
	edited := []model.ReviewQuestion{qs[0], qs[1]}
	edited[0].CorrectAnswer = model.OptionB
	edited[1].NegativeMarks = 0

	result := model.AttemptResult{
		TotalMarks:     3,
		PossibleMarks:  10,
		Percentage:     30,
		CorrectAnswers: 1,
		AnsweredCount:  2,
		TotalQuestions: 3,
	}
	rep := Build(result, edited, graded)

	if len(rep.Rows) != 3 {
		t.Fatalf("expected every graded row, got %d", len(rep.Rows))
	}
	var sum float64
	for _, row := range rep.Rows {
		sum += row.MarksObtained
	}
	if sum != rep.TotalMarks {
		t.Errorf("rows sum to %v but total is %v", sum, rep.TotalMarks)
	}
	if !rep.Rows[0].Correct || rep.Rows[0].CorrectAnswer != model.OptionA {
		t.Errorf("first row should keep its graded key: %+v", rep.Rows[0])
	}
	if rep.CorrectCount != 1 || rep.WrongCount != 1 {
		t.Errorf("counts should follow the persisted result: correct=%d wrong=%d", rep.CorrectCount, rep.WrongCount)
	}
	if rep.Rows[2].QuestionID != qs[2].ID.String() || rep.Rows[2].QuestionText != "" {
		t.Errorf("detached question should still be listed: %+v", rep.Rows[2])
	}
}

func TestRender(t *testing.T) {
	qs := reviewQuestions()
	graded := gradedAnswers(qs)
	graded[1].SelectedOption = model.OptionB
	graded[1].IsCorrect = true
	graded[1].MarksObtained = 4

	rep := Build(model.AttemptResult{
		TotalMarks:     8,
		PossibleMarks:  10,
		Percentage:     80,
		CorrectAnswers: 2,
		AnsweredCount:  2,
		TotalQuestions: 3,
		Exam:           model.ExamSummary{Title: "Chemistry"},
		TimeSpent:      61,
	}, qs, graded)

	var buf bytes.Buffer
	if err := rep.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Chemistry", "Grade: A", "Time: 1m01s", "skipped", "correct"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatMarks(t *testing.T) {
	tests := map[float64]string{4: "4", -1: "-1", 2.5: "2.5", 0.25: "0.25", 0: "0"}
	for in, want := range tests {
		if got := formatMarks(in); got != want {
			t.Errorf("formatMarks(%v) = %q, want %q", in, got, want)
		}
	}
}
