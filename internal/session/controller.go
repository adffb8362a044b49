// Package session drives a single exam attempt on the client side: question
// navigation, answer capture, flagging, the countdown and the one submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotActive            = errors.New("session is not active")
	ErrInvalidOption        = errors.New("option must be one of A, B, C or D")
	ErrConfirmationRequired = errors.New("manual submission must be confirmed first")
	ErrTimeRemaining        = errors.New("timeout submission before time ran out")
	ErrNotLoadable          = errors.New("session has already been loaded")
)

// Backend is the server side of an attempt.
type Backend interface {
	FetchQuestions(ctx context.Context, examID string) (*model.ExamPaper, error)
	Submit(ctx context.Context, examID string, req model.SubmitRequest) (*model.SubmitResponse, error)
}

// Autosaver receives every selection while the attempt runs.
type Autosaver interface {
	SaveAnswer(ctx context.Context, attemptID string, req model.SaveAnswerRequest) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutosave forwards each selection to a.
func WithAutosave(a Autosaver) Option {
	return func(c *Controller) { c.autosave = a }
}

// WithLogger sets the controller logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// Controller is safe for concurrent use; the countdown and user input may
// arrive from different goroutines.
type Controller struct {
	backend  Backend
	autosave Autosaver
	examID   string
	log      zerolog.Logger

	mu           sync.Mutex
	phase        Phase
	trigger      Trigger
	confirming   bool
	timeoutFired bool
	paper        *model.ExamPaper
	questions    []model.QuestionForStudent
	current      int
	answers      map[string]model.Option
	flagged      map[int]struct{}
	duration     int
	timeLeft     int
	lastErr      error
	attemptID    uuid.UUID
}

// New creates a controller in the Loading phase.
func New(backend Backend, examID string, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		examID:  examID,
		log:     zerolog.Nop(),
		phase:   PhaseLoading,
		answers: make(map[string]model.Option),
		flagged: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the paper once. It may be retried after a failure.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseLoading && c.phase != PhaseLoadFailed {
		c.mu.Unlock()
		return ErrNotLoadable
	}
	c.phase = PhaseLoading
	c.mu.Unlock()

	paper, err := c.backend.FetchQuestions(ctx, c.examID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.phase = PhaseLoadFailed
		c.lastErr = err
		return fmt.Errorf("fetch questions: %w", err)
	}

	c.paper = paper
	c.questions = paper.Questions
	c.lastErr = nil
	if len(c.questions) == 0 {
		c.phase = PhaseEmpty
		return nil
	}

	c.duration = paper.DurationMinutes * 60
	c.timeLeft = c.duration
	// A server-issued start time means the deadline is already running.
	if !paper.StartedAt.IsZero() {
		c.timeLeft = min(max(paper.RemainingSeconds, 0), c.duration)
	}
	c.current = 0
	c.phase = PhaseActive

	c.log.Info().
		Str("exam_id", c.examID).
		Str("attempt_id", paper.AttemptID.String()).
		Int("questions", len(c.questions)).
		Int("time_left", c.timeLeft).
		Msg("Exam session loaded")
	return nil
}

// SelectAnswer records option for questionID, overwriting any earlier choice.
func (c *Controller) SelectAnswer(ctx context.Context, questionID string, option model.Option) error {
	if !option.Valid() {
		return ErrInvalidOption
	}

	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	c.answers[questionID] = option
	attemptID := c.paper.AttemptID
	c.mu.Unlock()

	if c.autosave != nil && attemptID != uuid.Nil {
		req := model.SaveAnswerRequest{QuestionID: questionID, Option: string(option)}
		if err := c.autosave.SaveAnswer(ctx, attemptID.String(), req); err != nil {
			c.log.Warn().Err(err).Str("question_id", questionID).Msg("Autosave failed")
		}
	}
	return nil
}

// SelectCurrent answers the question under the cursor.
func (c *Controller) SelectCurrent(ctx context.Context, option model.Option) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	id := c.questions[c.current].ID.String()
	c.mu.Unlock()
	return c.SelectAnswer(ctx, id, option)
}

// Next moves forward one question; a no-op on the last one.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpLocked(c.current + 1)
}

// Previous moves back one question; a no-op on the first one.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpLocked(c.current - 1)
}

// JumpTo moves to index. Out-of-range indices leave the cursor unchanged.
func (c *Controller) JumpTo(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpLocked(index)
}

func (c *Controller) jumpLocked(index int) {
	if index < 0 || index >= len(c.questions) {
		return
	}
	c.current = index
}

// ToggleFlag flips the advisory flag on index.
func (c *Controller) ToggleFlag(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.questions) {
		return
	}
	if _, ok := c.flagged[index]; ok {
		delete(c.flagged, index)
		return
	}
	c.flagged[index] = struct{}{}
}

// Tick advances the countdown by one second. When it reaches zero the
// timeout submission is started, exactly once per attempt.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseActive && c.phase != PhaseSubmitting {
		c.mu.Unlock()
		return nil
	}
	if c.timeLeft > 0 {
		c.timeLeft--
	}
	if c.phase != PhaseActive || c.timeLeft > 0 || c.timeoutFired {
		c.mu.Unlock()
		return nil
	}
	c.timeoutFired = true
	req := c.beginLocked(TriggerTimeout)
	c.mu.Unlock()

	c.log.Info().Str("exam_id", c.examID).Msg("Time is up, submitting")
	_, err := c.send(ctx, req)
	return err
}

// RequestSubmit opens the manual confirmation step.
func (c *Controller) RequestSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive {
		return ErrNotActive
	}
	c.confirming = true
	return nil
}

// CancelSubmit closes the confirmation step without submitting.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirming = false
}

// ConfirmSubmit performs the manual submission the user just confirmed.
func (c *Controller) ConfirmSubmit(ctx context.Context) (uuid.UUID, error) {
	return c.Submit(ctx, TriggerManual)
}

// Submit sends the answer set. Only one submission can be in flight; a
// trigger arriving outside the Active phase is rejected with ErrNotActive.
// A manual trigger additionally requires a pending confirmation, and a
// timeout trigger is only accepted once the countdown has reached zero.
func (c *Controller) Submit(ctx context.Context, trigger Trigger) (uuid.UUID, error) {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return uuid.Nil, ErrNotActive
	}
	if trigger == TriggerManual && !c.confirming {
		c.mu.Unlock()
		return uuid.Nil, ErrConfirmationRequired
	}
	if trigger == TriggerTimeout {
		if c.timeLeft > 0 {
			c.mu.Unlock()
			return uuid.Nil, ErrTimeRemaining
		}
		c.timeoutFired = true
	}
	req := c.beginLocked(trigger)
	c.mu.Unlock()

	return c.send(ctx, req)
}

func (c *Controller) beginLocked(trigger Trigger) model.SubmitRequest {
	c.phase = PhaseSubmitting
	c.trigger = trigger
	c.confirming = false
	c.lastErr = nil

	answers := make(map[string]model.Option, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	return model.SubmitRequest{
		Answers:   answers,
		TimeSpent: c.duration - c.timeLeft,
	}
}

func (c *Controller) send(ctx context.Context, req model.SubmitRequest) (uuid.UUID, error) {
	resp, err := c.backend.Submit(ctx, c.examID, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.phase = PhaseActive
		c.lastErr = err
		c.log.Error().Err(err).Str("trigger", string(c.trigger)).Msg("Submission failed")
		return uuid.Nil, err
	}

	c.phase = PhaseCompleted
	c.attemptID = resp.AttemptID
	c.log.Info().
		Str("attempt_id", resp.AttemptID.String()).
		Str("trigger", string(c.trigger)).
		Int("time_spent", req.TimeSpent).
		Msg("Exam submitted")
	return resp.AttemptID, nil
}

// Run drives the countdown from tick until the attempt completes or ctx ends.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if err := c.Tick(ctx); err != nil {
				c.log.Warn().Err(err).Msg("Timed submission failed; manual retry is possible")
			}
			if c.Phase() == PhaseCompleted {
				return nil
			}
		}
	}
}

// Phase reports the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	Phase         Phase
	Trigger       Trigger
	Confirming    bool
	Title         string
	Current       int
	Total         int
	Question      *model.QuestionForStudent
	Answers       map[string]model.Option
	Flagged       []int
	TimeLeft      int
	TimeSpent     int
	Err           error
	AttemptID     uuid.UUID
	AnsweredSoFar int
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Phase:      c.phase,
		Trigger:    c.trigger,
		Confirming: c.confirming,
		Current:    c.current,
		Total:      len(c.questions),
		Answers:    make(map[string]model.Option, len(c.answers)),
		Flagged:    make([]int, 0, len(c.flagged)),
		TimeLeft:   c.timeLeft,
		TimeSpent:  c.duration - c.timeLeft,
		Err:        c.lastErr,
		AttemptID:  c.attemptID,
	}
	if c.paper != nil {
		s.Title = c.paper.Title
	}
	if len(c.questions) > 0 {
		q := c.questions[c.current]
		s.Question = &q
	}
	for k, v := range c.answers {
		s.Answers[k] = v
	}
	for _, q := range c.questions {
		if _, ok := c.answers[q.ID.String()]; ok {
			s.AnsweredSoFar++
		}
	}
	for i := range c.flagged {
		s.Flagged = append(s.Flagged, i)
	}
	sort.Ints(s.Flagged)
	return s
}
