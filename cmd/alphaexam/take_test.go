package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/client"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{"b", command{act: actAnswer, option: model.OptionB}, false},
		{" D ", command{act: actAnswer, option: model.OptionD}, false},
		{"next", command{act: actNext}, false},
		{"p", command{act: actPrev}, false},
		{"g 3", command{act: actJump, index: 2}, false},
		{"g 0", command{}, true},
		{"g", command{}, true},
		{"f", command{act: actFlag}, false},
		{"s", command{act: actSubmit}, false},
		{"y", command{act: actConfirm}, false},
		{"x", command{act: actCancel}, false},
		{"q", command{act: actQuit}, false},
		{"e", command{}, true},
		{"", command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	for in, want := range map[int]string{0: "00:00", 59: "00:59", 61: "01:01", 3600: "60:00", -5: "00:00"} {
		if got := formatClock(in); got != want {
			t.Errorf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderMarksSelectionAndConfirmation(t *testing.T) {
	q := model.QuestionForStudent{ID: uuid.New(), QuestionText: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6"}
	var buf bytes.Buffer
	render(&buf, session.Snapshot{
		Title:         "Mock",
		Total:         1,
		Question:      &q,
		Answers:       map[string]model.Option{q.ID.String(): model.OptionB},
		Flagged:       []int{0},
		TimeLeft:      75,
		Confirming:    true,
		AnsweredSoFar: 1,
	})

	out := buf.String()
	for _, want := range []string{"time left 01:15", "Flagged: 1", "* B) 4", "y to confirm"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}

type fakeAPI struct {
	t         *testing.T
	attemptID uuid.UUID
	question  model.QuestionForStudent

	mu        sync.Mutex
	autosaved []model.SaveAnswerRequest
	submitted *model.SubmitRequest
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response.Response{Data: data})
	}

	attemptPath := "/api/exam-attempts/" + f.attemptID.String()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/exams/e1/start":
		reply(model.ExamAttempt{ID: f.attemptID, Status: model.AttemptStatusInProgress})
	case r.Method == http.MethodGet && r.URL.Path == "/api/exams/e1/questions":
		reply(model.ExamPaper{
			AttemptID:        f.attemptID,
			Title:            "Mock",
			DurationMinutes:  10,
			StartedAt:        time.Now(),
			RemainingSeconds: 600,
			Questions:        []model.QuestionForStudent{f.question},
		})
	case r.Method == http.MethodPut && r.URL.Path == attemptPath+"/answers":
		var req model.SaveAnswerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.autosaved = append(f.autosaved, req)
		f.mu.Unlock()
		reply(nil)
	case r.Method == http.MethodPost && r.URL.Path == "/api/exams/e1/submit":
		var req model.SubmitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.submitted = &req
		f.mu.Unlock()
		reply(model.SubmitResponse{AttemptID: f.attemptID})
	case r.Method == http.MethodGet && r.URL.Path == attemptPath:
		reply(model.AttemptDetail{
			Result: model.AttemptResult{
				AttemptID:      f.attemptID,
				TotalMarks:     4,
				PossibleMarks:  4,
				Percentage:     100,
				CorrectAnswers: 1,
				AnsweredCount:  1,
				TotalQuestions: 1,
				Exam:           model.ExamSummary{ID: uuid.New(), Title: "Mock"},
			},
			Questions:   []model.ReviewQuestion{{QuestionForStudent: f.question, CorrectAnswer: model.OptionB}},
			UserAnswers: map[string]model.Option{f.question.ID.String(): model.OptionB},
			Answers: []model.AttemptAnswer{{
				QuestionID:     f.question.ID,
				Position:       1,
				SelectedOption: model.OptionB,
				CorrectOption:  model.OptionB,
				Marks:          4,
				IsCorrect:      true,
				MarksObtained:  4,
			}},
		})
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRunTakeManualSubmission(t *testing.T) {
	api := &fakeAPI{
		t:         t,
		attemptID: uuid.New(),
		question:  model.QuestionForStudent{ID: uuid.New(), QuestionText: "2+2?", OptionB: "4", Marks: 4},
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader("b\ns\ny\n")
	err := runTake(ctx, client.New(srv.URL, "tok"), "e1", in, &out, zerolog.Nop(), time.Hour)
	if err != nil {
		t.Fatalf("runTake: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.autosaved) != 1 || api.autosaved[0].Option != "B" {
		t.Errorf("expected one autosave of B, got %+v", api.autosaved)
	}
	if api.submitted == nil || api.submitted.Answers[api.question.ID.String()] != model.OptionB {
		t.Fatalf("expected submission with B, got %+v", api.submitted)
	}
	if !strings.Contains(out.String(), "Submitted. Attempt "+api.attemptID.String()) {
		t.Errorf("missing submission notice:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "correct") {
		t.Errorf("missing analysis table:\n%s", out.String())
	}
}
