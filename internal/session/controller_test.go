package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
)

var (
	q1 = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	q2 = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fakeBackend struct {
	mu        sync.Mutex
	paper     *model.ExamPaper
	fetchErr  error
	submitErr error
	// release, when set, blocks Submit until closed.
	release  chan struct{}
	submits  []model.SubmitRequest
	attempts int32
}

func (f *fakeBackend) FetchQuestions(ctx context.Context, examID string) (*model.ExamPaper, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.paper, nil
}

func (f *fakeBackend) Submit(ctx context.Context, examID string, req model.SubmitRequest) (*model.SubmitResponse, error) {
	atomic.AddInt32(&f.attempts, 1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.submits = append(f.submits, req)
	err := f.submitErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &model.SubmitResponse{AttemptID: f.paper.AttemptID}, nil
}

func (f *fakeBackend) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

func twoQuestionPaper(minutes int) *model.ExamPaper {
	return &model.ExamPaper{
		AttemptID:       uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		Title:           "Mock",
		DurationMinutes: minutes,
		Questions: []model.QuestionForStudent{
			{ID: q1, QuestionText: "One", Marks: 4, NegativeMarks: 1},
			{ID: q2, QuestionText: "Two", Marks: 4, NegativeMarks: 1},
		},
	}
}

func loaded(t *testing.T, b *fakeBackend) *Controller {
	t.Helper()
	c := New(b, "exam-1")
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Phase() != PhaseActive {
		t.Fatalf("expected active, got %s", c.Phase())
	}
	return c
}

func TestLoadPhases(t *testing.T) {
	t.Run("fetch failure then retry", func(t *testing.T) {
		b := &fakeBackend{fetchErr: errors.New("offline"), paper: twoQuestionPaper(1)}
		c := New(b, "exam-1")
		if err := c.Load(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if c.Phase() != PhaseLoadFailed {
			t.Fatalf("expected load_failed, got %s", c.Phase())
		}
		b.fetchErr = nil
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("retry: %v", err)
		}
		if c.Phase() != PhaseActive {
			t.Fatalf("expected active, got %s", c.Phase())
		}
		if err := c.Load(context.Background()); !errors.Is(err, ErrNotLoadable) {
			t.Errorf("expected ErrNotLoadable, got %v", err)
		}
	})

	t.Run("empty paper", func(t *testing.T) {
		c := New(&fakeBackend{paper: &model.ExamPaper{DurationMinutes: 10}}, "exam-1")
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
		if c.Phase() != PhaseEmpty {
			t.Fatalf("expected empty, got %s", c.Phase())
		}
	})

	t.Run("time left from server", func(t *testing.T) {
		p := twoQuestionPaper(10)
		p.StartedAt = time.Now().Add(-4 * time.Minute)
		p.RemainingSeconds = 360
		c := loaded(t, &fakeBackend{paper: p})
		if got := c.Snapshot().TimeLeft; got != 360 {
			t.Errorf("expected 360s left, got %d", got)
		}
	})

	t.Run("time left falls back to duration", func(t *testing.T) {
		c := loaded(t, &fakeBackend{paper: twoQuestionPaper(10)})
		if got := c.Snapshot().TimeLeft; got != 600 {
			t.Errorf("expected 600s left, got %d", got)
		}
	})
}

func TestSelectAnswerOverwrites(t *testing.T) {
	c := loaded(t, &fakeBackend{paper: twoQuestionPaper(1)})
	ctx := context.Background()

	seq := []struct {
		id  uuid.UUID
		opt model.Option
	}{
		{q1, "A"}, {q2, "D"}, {q1, "C"}, {q1, "C"}, {q2, "B"}, {q1, "B"},
	}
	for _, s := range seq {
		if err := c.SelectAnswer(ctx, s.id.String(), s.opt); err != nil {
			t.Fatalf("select: %v", err)
		}
	}

	got := c.Snapshot().Answers
	if len(got) != 2 || got[q1.String()] != "B" || got[q2.String()] != "B" {
		t.Errorf("expected last selection per question, got %v", got)
	}
}

func TestSelectAnswerRejectsInvalidOption(t *testing.T) {
	c := loaded(t, &fakeBackend{paper: twoQuestionPaper(1)})
	for _, opt := range []model.Option{"E", "a", "", "AB"} {
		if err := c.SelectAnswer(context.Background(), q1.String(), opt); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("option %q: expected ErrInvalidOption, got %v", opt, err)
		}
	}
	if len(c.Snapshot().Answers) != 0 {
		t.Error("invalid options must not be recorded")
	}
}

func TestNavigationIsBounded(t *testing.T) {
	c := loaded(t, &fakeBackend{paper: twoQuestionPaper(1)})

	c.Previous()
	if got := c.Snapshot().Current; got != 0 {
		t.Errorf("previous on first: expected 0, got %d", got)
	}
	c.Next()
	c.Next()
	if got := c.Snapshot().Current; got != 1 {
		t.Errorf("next past last: expected 1, got %d", got)
	}

	c.JumpTo(0)
	c.JumpTo(-1)
	if got := c.Snapshot().Current; got != 0 {
		t.Errorf("jumpTo(-1): expected 0, got %d", got)
	}
	c.JumpTo(2)
	if got := c.Snapshot().Current; got != 0 {
		t.Errorf("jumpTo(len): expected 0, got %d", got)
	}
	c.JumpTo(1)
	if got := c.Snapshot().Current; got != 1 {
		t.Errorf("jumpTo(1): expected 1, got %d", got)
	}
}

func TestToggleFlagIsItsOwnInverse(t *testing.T) {
	c := loaded(t, &fakeBackend{paper: twoQuestionPaper(1)})

	c.ToggleFlag(1)
	if got := c.Snapshot().Flagged; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected [1], got %v", got)
	}
	c.ToggleFlag(1)
	if got := c.Snapshot().Flagged; len(got) != 0 {
		t.Errorf("expected no flags, got %v", got)
	}

	c.ToggleFlag(0)
	c.ToggleFlag(0)
	c.ToggleFlag(0)
	if got := c.Snapshot().Flagged; len(got) != 1 || got[0] != 0 {
		t.Errorf("expected [0], got %v", got)
	}
}

func TestTickDecrementsAndSubmitsOnce(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1)}
	c := loaded(t, b)
	ctx := context.Background()

	for want := 59; want >= 1; want-- {
		if err := c.Tick(ctx); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if got := c.Snapshot().TimeLeft; got != want {
			t.Fatalf("expected %d left, got %d", want, got)
		}
	}
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("final tick: %v", err)
	}
	for i := 0; i < 5; i++ {
		_ = c.Tick(ctx)
	}

	if n := atomic.LoadInt32(&b.attempts); n != 1 {
		t.Fatalf("expected exactly one submission, got %d", n)
	}
	s := c.Snapshot()
	if s.Phase != PhaseCompleted || s.Trigger != TriggerTimeout {
		t.Errorf("expected completed by timeout, got %s/%s", s.Phase, s.Trigger)
	}
	if b.submits[0].TimeSpent != 60 {
		t.Errorf("expected 60s spent, got %d", b.submits[0].TimeSpent)
	}
	if len(b.submits[0].Answers) != 0 {
		t.Errorf("expected empty answers, got %v", b.submits[0].Answers)
	}
}

func TestConcurrentTicksAndManualSubmitSendOnce(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1), release: make(chan struct{})}
	p := b.paper
	p.StartedAt = time.Now()
	p.RemainingSeconds = 1
	c := loaded(t, b)
	ctx := context.Background()

	if err := c.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Tick(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.ConfirmSubmit(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&b.attempts) == 0 {
		select {
		case <-deadline:
			t.Fatal("no submission started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(b.release)
	wg.Wait()

	if n := atomic.LoadInt32(&b.attempts); n != 1 {
		t.Fatalf("expected one network call, got %d", n)
	}
	if c.Phase() != PhaseCompleted {
		t.Errorf("expected completed, got %s", c.Phase())
	}
}

func TestManualSubmitNeedsConfirmation(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1)}
	c := loaded(t, b)
	ctx := context.Background()

	if _, err := c.Submit(ctx, TriggerManual); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	_ = c.RequestSubmit()
	c.CancelSubmit()
	if _, err := c.ConfirmSubmit(ctx); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("cancelled confirmation should not submit, got %v", err)
	}
	if atomic.LoadInt32(&b.attempts) != 0 {
		t.Fatal("nothing should have been sent")
	}

	_ = c.RequestSubmit()
	if _, err := c.ConfirmSubmit(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := c.Submit(ctx, TriggerTimeout); !errors.Is(err, ErrNotActive) {
		t.Errorf("submit after completion: expected ErrNotActive, got %v", err)
	}
}

func TestTimeoutTriggerWaitsForZero(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1)}
	c := loaded(t, b)
	ctx := context.Background()

	if _, err := c.Submit(ctx, TriggerTimeout); !errors.Is(err, ErrTimeRemaining) {
		t.Fatalf("expected ErrTimeRemaining, got %v", err)
	}
	if atomic.LoadInt32(&b.attempts) != 0 || c.Phase() != PhaseActive {
		t.Fatalf("early timeout trigger must not submit (calls=%d phase=%s)", atomic.LoadInt32(&b.attempts), c.Phase())
	}

	for i := 0; i < 60; i++ {
		if err := c.Tick(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&b.attempts); n != 1 {
		t.Fatalf("expected the countdown to submit once, got %d", n)
	}
	if s := c.Snapshot(); s.Phase != PhaseCompleted || s.Trigger != TriggerTimeout {
		t.Errorf("expected completed by timeout, got %s/%s", s.Phase, s.Trigger)
	}
}

func TestManualSubmitScenario(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(10)}
	c := loaded(t, b)
	ctx := context.Background()

	_ = c.SelectAnswer(ctx, q1.String(), "A")
	_ = c.SelectAnswer(ctx, q2.String(), "C")
	for i := 0; i < 90; i++ {
		_ = c.Tick(ctx)
	}
	_ = c.RequestSubmit()
	id, err := c.ConfirmSubmit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != b.paper.AttemptID {
		t.Errorf("expected attempt id %s, got %s", b.paper.AttemptID, id)
	}
	req := b.submits[0]
	if req.TimeSpent != 90 {
		t.Errorf("expected 90s spent, got %d", req.TimeSpent)
	}
	if req.Answers[q1.String()] != "A" || req.Answers[q2.String()] != "C" {
		t.Errorf("unexpected payload %v", req.Answers)
	}
}

func TestFailedSubmitAllowsRetryWithUpdatedTime(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(10), submitErr: errors.New("HTTP 500")}
	c := loaded(t, b)
	ctx := context.Background()

	_ = c.SelectAnswer(ctx, q1.String(), "A")
	for i := 0; i < 30; i++ {
		_ = c.Tick(ctx)
	}
	_ = c.RequestSubmit()
	if _, err := c.ConfirmSubmit(ctx); err == nil {
		t.Fatal("expected failure")
	}

	s := c.Snapshot()
	if s.Phase != PhaseActive {
		t.Fatalf("expected back to active, got %s", s.Phase)
	}
	if s.Err == nil {
		t.Error("expected error to be surfaced")
	}

	for i := 0; i < 5; i++ {
		_ = c.Tick(ctx)
	}
	b.setSubmitErr(nil)
	_ = c.RequestSubmit()
	if _, err := c.ConfirmSubmit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if len(b.submits) != 2 {
		t.Fatalf("expected two submissions, got %d", len(b.submits))
	}
	first, second := b.submits[0], b.submits[1]
	if first.TimeSpent != 30 || second.TimeSpent != 35 {
		t.Errorf("expected time spent 30 then 35, got %d then %d", first.TimeSpent, second.TimeSpent)
	}
	if second.Answers[q1.String()] != "A" || len(second.Answers) != len(first.Answers) {
		t.Errorf("retry should resend the same answers, got %v", second.Answers)
	}
	if c.Snapshot().Err != nil {
		t.Error("error should clear after success")
	}
}

func TestTimeoutFailureDoesNotRefire(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1), submitErr: errors.New("down")}
	p := b.paper
	p.StartedAt = time.Now()
	p.RemainingSeconds = 1
	c := loaded(t, b)
	ctx := context.Background()

	if err := c.Tick(ctx); err == nil {
		t.Fatal("expected timed submission to fail")
	}
	for i := 0; i < 3; i++ {
		_ = c.Tick(ctx)
	}
	if n := atomic.LoadInt32(&b.attempts); n != 1 {
		t.Fatalf("expected one automatic attempt, got %d", n)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("expected active after failure, got %s", c.Phase())
	}
}

type recordingAutosaver struct {
	mu    sync.Mutex
	saved []model.SaveAnswerRequest
}

func (r *recordingAutosaver) SaveAnswer(ctx context.Context, attemptID string, req model.SaveAnswerRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, req)
	return nil
}

func TestSelectionIsAutosaved(t *testing.T) {
	auto := &recordingAutosaver{}
	c := New(&fakeBackend{paper: twoQuestionPaper(1)}, "exam-1", WithAutosave(auto))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	c.JumpTo(1)
	if err := c.SelectCurrent(context.Background(), "D"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(auto.saved) != 1 || auto.saved[0].QuestionID != q2.String() || auto.saved[0].Option != "D" {
		t.Errorf("unexpected autosave calls %v", auto.saved)
	}
}

func TestRunStopsOnCompletion(t *testing.T) {
	b := &fakeBackend{paper: twoQuestionPaper(1)}
	b.paper.StartedAt = time.Now()
	b.paper.RemainingSeconds = 2
	c := loaded(t, b)

	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), tick) }()

	tick <- time.Now()
	tick <- time.Now()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after completion")
	}
	if c.Phase() != PhaseCompleted {
		t.Errorf("expected completed, got %s", c.Phase())
	}
}
