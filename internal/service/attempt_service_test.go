package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
)

func TestClampTimeSpent(t *testing.T) {
	tests := []struct {
		spent, limit, want int
	}{
		{120, 600, 120},
		{-5, 600, 0},
		{900, 600, 600},
		{600, 600, 600},
	}
	for _, tt := range tests {
		if got := clampTimeSpent(tt.spent, tt.limit); got != tt.want {
			t.Errorf("clampTimeSpent(%d, %d) = %d, want %d", tt.spent, tt.limit, got, tt.want)
		}
	}
}

func TestValidateAnswers(t *testing.T) {
	ok := map[string]model.Option{"q1": model.OptionA, "q2": model.OptionD}
	if err := validateAnswers(ok); err != nil {
		t.Errorf("expected valid answers, got %v", err)
	}
	if err := validateAnswers(nil); err != nil {
		t.Errorf("expected empty answers to pass, got %v", err)
	}
	bad := map[string]model.Option{"q1": model.OptionA, "q2": "E"}
	if err := validateAnswers(bad); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
}

func TestAttemptMetaDeadline(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	meta := attemptMeta{StartedAt: start, DurationMinutes: 90}
	if got := meta.deadline(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("unexpected deadline %s", got)
	}
}

func TestPaperHasQuestion(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	paper := &model.ExamPaperCache{Questions: []model.QuestionForStudent{{ID: q1}}}
	if !paperHasQuestion(paper, q1) {
		t.Error("expected q1 to be on the paper")
	}
	if paperHasQuestion(paper, q2) {
		t.Error("expected q2 to be absent")
	}
}

func TestAttemptResultCopiesGrades(t *testing.T) {
	ended := time.Now()
	reason := model.EndReasonTimeout
	a := &model.ExamAttempt{
		ID:             uuid.New(),
		Status:         model.AttemptStatusCompleted,
		TotalMarks:     3,
		PossibleMarks:  8,
		Percentage:     37.5,
		CorrectCount:   2,
		AnsweredCount:  3,
		TotalQuestions: 4,
		TimeSpent:      300,
		StartedAt:      ended.Add(-5 * time.Minute),
		EndedAt:        &ended,
		EndReason:      &reason,
	}
	exam := &model.Exam{ID: uuid.New(), Title: "Physics", DurationMinutes: 10}

	got := attemptResult(a, exam)
	if got.AttemptID != a.ID || got.TotalMarks != 3 || got.Percentage != 37.5 {
		t.Errorf("grades not copied: %+v", got)
	}
	if got.CorrectAnswers != 2 || got.TotalQuestions != 4 {
		t.Errorf("counts not copied: %+v", got)
	}
	if got.Exam.Title != "Physics" || got.Exam.DurationMinutes != 10 {
		t.Errorf("exam summary not copied: %+v", got.Exam)
	}
	if got.EndReason == nil || *got.EndReason != model.EndReasonTimeout {
		t.Errorf("expected TIMEOUT end reason, got %v", got.EndReason)
	}
}

var examStart = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

// markingExam is a ten-minute exam with Q1 (4/-1, key A) and Q2 (4/-1, key B).
func markingExam() (*fakeExams, *model.Exam, []model.ExamQuestionDetail) {
	exam := &model.Exam{ID: uuid.New(), Title: "Physics", DurationMinutes: 10, IsActive: true, IsFree: true}
	questions := []model.ExamQuestionDetail{
		{Question: model.Question{ID: uuid.New(), QuestionText: "Q1", CorrectAnswer: model.OptionA}, Marks: 4, NegativeMarks: 1, OrderNum: 1},
		{Question: model.Question{ID: uuid.New(), QuestionText: "Q2", CorrectAnswer: model.OptionB}, Marks: 4, NegativeMarks: 1, OrderNum: 2},
	}
	exams := &fakeExams{
		exams:     map[uuid.UUID]*model.Exam{exam.ID: exam},
		questions: map[uuid.UUID][]model.ExamQuestionDetail{exam.ID: questions},
	}
	return exams, exam, questions
}

func TestSubmitGradesWithNegativeMarking(t *testing.T) {
	exams, exam, qs := markingExam()
	store := newFakeAttempts()
	cache := &fakeCache{hashes: map[string]map[string]string{}}
	user := uuid.New()
	attempt := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: user, Status: model.AttemptStatusInProgress, StartedAt: examStart})
	store.drafts[attempt.ID] = map[string]model.Option{qs[0].ID.String(): model.OptionD}
	answersKey := config.CacheKey.AttemptAnswersKey(attempt.ID.String())
	cache.hashes[answersKey] = map[string]string{qs[0].ID.String(): "D"}

	now := examStart.Add(5 * time.Minute)
	svc := newTestAttemptService(store, exams, cache, now)

	resp, err := svc.Submit(context.Background(), Identity{UserID: user, Role: model.RoleUser}, exam.ID, &model.SubmitRequest{
		Answers:   map[string]model.Option{qs[0].ID.String(): model.OptionA, qs[1].ID.String(): model.OptionC},
		TimeSpent: 300,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.AttemptID != attempt.ID {
		t.Fatalf("expected attempt %s, got %s", attempt.ID, resp.AttemptID)
	}

	got := store.attempts[attempt.ID]
	if got.Status != model.AttemptStatusCompleted || got.EndReason == nil || *got.EndReason != model.EndReasonManual {
		t.Errorf("expected COMPLETED/MANUAL, got %s/%v", got.Status, got.EndReason)
	}
	if got.TotalMarks != 3 || got.PossibleMarks != 8 || got.Percentage != 37.5 {
		t.Errorf("expected 3/8 (37.5%%), got %v/%v (%v%%)", got.TotalMarks, got.PossibleMarks, got.Percentage)
	}
	if got.CorrectCount != 1 || got.AnsweredCount != 2 || got.TotalQuestions != 2 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if got.TimeSpent != 300 || got.EndedAt == nil || !got.EndedAt.Equal(now) {
		t.Errorf("unexpected timing: spent=%d ended=%v", got.TimeSpent, got.EndedAt)
	}

	graded := store.graded[attempt.ID]
	if len(graded) != 2 {
		t.Fatalf("expected a graded row per question, got %d", len(graded))
	}
	if graded[1].SelectedOption != model.OptionC || graded[1].CorrectOption != model.OptionB || graded[1].MarksObtained != -1 {
		t.Errorf("unexpected second row: %+v", graded[1])
	}
	if graded[0].Position != 1 || graded[1].Position != 2 {
		t.Errorf("expected served positions 1 and 2, got %d and %d", graded[0].Position, graded[1].Position)
	}

	if _, ok := store.drafts[attempt.ID]; ok {
		t.Error("expected drafts to be deleted")
	}
	if _, ok := cache.hashes[answersKey]; ok {
		t.Error("expected autosave hash to be cleared")
	}
}

func TestSubmitEndReasonFollowsServerClock(t *testing.T) {
	deadline := examStart.Add(10 * time.Minute)
	tests := []struct {
		name      string
		now       time.Time
		spent     int
		want      model.EndReason
		wantSpent int
	}{
		{"before deadline", deadline.Add(-time.Second), 599, model.EndReasonManual, 599},
		{"at deadline", deadline, 600, model.EndReasonTimeout, 600},
		{"late with inflated time", deadline.Add(30 * time.Second), 9999, model.EndReasonTimeout, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exams, exam, _ := markingExam()
			store := newFakeAttempts()
			user := uuid.New()
			attempt := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: user, Status: model.AttemptStatusInProgress, StartedAt: examStart})
			svc := newTestAttemptService(store, exams, &fakeCache{}, tt.now)

			if _, err := svc.Submit(context.Background(), Identity{UserID: user}, exam.ID, &model.SubmitRequest{TimeSpent: tt.spent}); err != nil {
				t.Fatalf("submit: %v", err)
			}
			got := store.attempts[attempt.ID]
			if got.EndReason == nil || *got.EndReason != tt.want {
				t.Errorf("expected %s, got %v", tt.want, got.EndReason)
			}
			if got.TimeSpent != tt.wantSpent {
				t.Errorf("expected time spent %d, got %d", tt.wantSpent, got.TimeSpent)
			}
		})
	}
}

func TestSubmitWithoutOpenAttempt(t *testing.T) {
	now := examStart.Add(time.Hour)
	tests := []struct {
		name    string
		endedAt *time.Time
		wantErr error
	}{
		{"finished inside the window", ptrTime(now.Add(-2 * time.Minute)), nil},
		{"finished outside the window", ptrTime(now.Add(-resubmitWindow - time.Second)), ErrAttemptNotActive},
		{"never started", nil, ErrNoActiveAttempt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exams, exam, _ := markingExam()
			store := newFakeAttempts()
			user := uuid.New()
			var finished *model.ExamAttempt
			if tt.endedAt != nil {
				reason := model.EndReasonManual
				finished = store.add(model.ExamAttempt{
					ExamID: exam.ID, UserID: user, Status: model.AttemptStatusCompleted,
					StartedAt: examStart, EndedAt: tt.endedAt, EndReason: &reason,
				})
			}
			svc := newTestAttemptService(store, exams, &fakeCache{}, now)

			resp, err := svc.Submit(context.Background(), Identity{UserID: user}, exam.ID, &model.SubmitRequest{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && resp.AttemptID != finished.ID {
				t.Errorf("expected the finished attempt %s, got %s", finished.ID, resp.AttemptID)
			}
			if len(store.graded) != 0 {
				t.Error("a repeated submit must not grade again")
			}
		})
	}
}

func TestSubmitTwiceReturnsSameAttempt(t *testing.T) {
	exams, exam, qs := markingExam()
	store := newFakeAttempts()
	user := uuid.New()
	attempt := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: user, Status: model.AttemptStatusInProgress, StartedAt: examStart})
	svc := newTestAttemptService(store, exams, &fakeCache{}, examStart.Add(time.Minute))
	ident := Identity{UserID: user}

	first, err := svc.Submit(context.Background(), ident, exam.ID, &model.SubmitRequest{
		Answers: map[string]model.Option{qs[0].ID.String(): model.OptionA},
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), ident, exam.ID, &model.SubmitRequest{
		Answers: map[string]model.Option{qs[0].ID.String(): model.OptionB},
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.AttemptID != attempt.ID || second.AttemptID != attempt.ID {
		t.Errorf("expected %s twice, got %s and %s", attempt.ID, first.AttemptID, second.AttemptID)
	}
	if store.attempts[attempt.ID].TotalMarks != 4 {
		t.Errorf("second submit changed the grade to %v", store.attempts[attempt.ID].TotalMarks)
	}
}

func TestExpireOverdueGradesAutosavedAnswers(t *testing.T) {
	exams, exam, qs := markingExam()
	store := newFakeAttempts()
	cache := &fakeCache{hashes: map[string]map[string]string{}}
	now := examStart.Add(20 * time.Minute)

	overdue := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: uuid.New(), Status: model.AttemptStatusInProgress, StartedAt: examStart})
	store.overdue[overdue.ID] = repository.OverdueAttempt{AttemptID: overdue.ID, ExamID: exam.ID, StartedAt: examStart, DurationMinutes: 10}
	store.drafts[overdue.ID] = map[string]model.Option{qs[0].ID.String(): model.OptionA}
	// Selections still only in Redis are merged over the persisted drafts.
	cache.hashes[config.CacheKey.AttemptAnswersKey(overdue.ID.String())] = map[string]string{
		qs[1].ID.String(): "D",
	}

	svc := newTestAttemptService(store, exams, cache, now)
	n, err := svc.ExpireOverdue(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired attempt, got %d", n)
	}

	got := store.attempts[overdue.ID]
	if got.Status != model.AttemptStatusExpired || got.EndReason == nil || *got.EndReason != model.EndReasonSweeper {
		t.Errorf("expected EXPIRED/SWEEPER, got %s/%v", got.Status, got.EndReason)
	}
	if got.TotalMarks != 3 || got.AnsweredCount != 2 || got.CorrectCount != 1 {
		t.Errorf("expected autosaved answers graded to 3 marks, got %+v", got)
	}
	if got.TimeSpent != exam.DurationSeconds() {
		t.Errorf("expected full duration spent, got %d", got.TimeSpent)
	}
}

func TestExpireOverduePagesThroughFullBatches(t *testing.T) {
	exams, exam, _ := markingExam()
	store := newFakeAttempts()
	for range sweepBatch + 1 {
		a := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: uuid.New(), Status: model.AttemptStatusInProgress, StartedAt: examStart})
		store.overdue[a.ID] = repository.OverdueAttempt{AttemptID: a.ID, ExamID: exam.ID}
	}

	svc := newTestAttemptService(store, exams, &fakeCache{}, examStart.Add(time.Hour))
	n, err := svc.ExpireOverdue(context.Background(), 0)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != sweepBatch+1 {
		t.Errorf("expected %d expired, got %d", sweepBatch+1, n)
	}
	if store.listOverdueCalls != 2 {
		t.Errorf("expected 2 pages, got %d", store.listOverdueCalls)
	}
}

func TestExpireOverdueStopsWithoutProgress(t *testing.T) {
	exams, exam, _ := markingExam()
	exams.getErr = errExamLookup
	store := newFakeAttempts()
	for range sweepBatch {
		a := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: uuid.New(), Status: model.AttemptStatusInProgress, StartedAt: examStart})
		store.overdue[a.ID] = repository.OverdueAttempt{AttemptID: a.ID, ExamID: exam.ID}
	}

	svc := newTestAttemptService(store, exams, &fakeCache{}, examStart.Add(time.Hour))
	n, err := svc.ExpireOverdue(context.Background(), 0)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing expired, got %d", n)
	}
	if store.listOverdueCalls != 1 {
		t.Errorf("expected a single page when nothing progresses, got %d", store.listOverdueCalls)
	}
}

func TestResultKeepsGradesAfterExamEdits(t *testing.T) {
	exams, exam, qs := markingExam()
	store := newFakeAttempts()
	user := uuid.New()
	attempt := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: user, Status: model.AttemptStatusInProgress, StartedAt: examStart})
	svc := newTestAttemptService(store, exams, &fakeCache{}, examStart.Add(4*time.Minute))
	ident := Identity{UserID: user}

	if _, err := svc.Submit(context.Background(), ident, exam.ID, &model.SubmitRequest{
		Answers:   map[string]model.Option{qs[0].ID.String(): model.OptionA, qs[1].ID.String(): model.OptionC},
		TimeSpent: 240,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Re-key and re-mark Q1, then detach Q2.
	edited := qs[0]
	edited.CorrectAnswer = model.OptionB
	edited.Marks = 10
	exams.questions[exam.ID] = []model.ExamQuestionDetail{edited}

	review, err := svc.Result(context.Background(), ident, attempt.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(review.Questions) != 2 || len(review.Analysis.Rows) != 2 {
		t.Fatalf("expected both served questions, got %d questions and %d rows", len(review.Questions), len(review.Analysis.Rows))
	}
	if review.Questions[0].CorrectAnswer != model.OptionA || review.Questions[0].Marks != 4 {
		t.Errorf("expected graded key A worth 4, got %s worth %v", review.Questions[0].CorrectAnswer, review.Questions[0].Marks)
	}

	var sum float64
	for _, row := range review.Analysis.Rows {
		sum += row.MarksObtained
	}
	if sum != 3 || review.Analysis.TotalMarks != 3 {
		t.Errorf("expected rows and total of 3, got rows=%v total=%v", sum, review.Analysis.TotalMarks)
	}
	if !review.Analysis.Rows[0].Correct || review.Analysis.CorrectCount != 1 || review.Analysis.WrongCount != 1 {
		t.Errorf("unexpected analysis: %+v", review.Analysis)
	}
	if review.UserAnswers[qs[1].ID.String()] != model.OptionC {
		t.Errorf("expected Q2 answer C, got %q", review.UserAnswers[qs[1].ID.String()])
	}
}

func TestResultGuards(t *testing.T) {
	exams, exam, _ := markingExam()
	store := newFakeAttempts()
	owner := uuid.New()
	open := store.add(model.ExamAttempt{ExamID: exam.ID, UserID: owner, Status: model.AttemptStatusInProgress, StartedAt: examStart})
	svc := newTestAttemptService(store, exams, &fakeCache{}, examStart)

	if _, err := svc.Result(context.Background(), Identity{UserID: owner}, open.ID); !errors.Is(err, ErrAttemptUnfinished) {
		t.Errorf("expected ErrAttemptUnfinished, got %v", err)
	}
	if _, err := svc.Result(context.Background(), Identity{UserID: uuid.New(), Role: model.RoleUser}, open.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Result(context.Background(), Identity{UserID: owner}, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
