package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeAttempts keeps attempts, graded rows and drafts in memory.
type fakeAttempts struct {
	attempts map[uuid.UUID]*model.ExamAttempt
	graded   map[uuid.UUID][]model.AttemptAnswer
	drafts   map[uuid.UUID]map[string]model.Option
	overdue  map[uuid.UUID]repository.OverdueAttempt

	listOverdueCalls int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{
		attempts: map[uuid.UUID]*model.ExamAttempt{},
		graded:   map[uuid.UUID][]model.AttemptAnswer{},
		drafts:   map[uuid.UUID]map[string]model.Option{},
		overdue:  map[uuid.UUID]repository.OverdueAttempt{},
	}
}

func (f *fakeAttempts) add(a model.ExamAttempt) *model.ExamAttempt {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.attempts[a.ID] = &a
	return &a
}

func (f *fakeAttempts) get(id uuid.UUID) (*model.ExamAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) Create(_ context.Context, a *model.ExamAttempt) error {
	a.ID = uuid.New()
	a.Status = model.AttemptStatusInProgress
	f.add(*a)
	return nil
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	return f.get(id)
}

func (f *fakeAttempts) GetInProgress(_ context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error) {
	for _, a := range f.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == model.AttemptStatusInProgress {
			return f.get(a.ID)
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttempts) GetLatestFinished(_ context.Context, userID, examID uuid.UUID) (*model.ExamAttempt, error) {
	var latest *model.ExamAttempt
	for _, a := range f.attempts {
		if a.UserID != userID || a.ExamID != examID || a.Status == model.AttemptStatusInProgress || a.EndedAt == nil {
			continue
		}
		if latest == nil || a.EndedAt.After(*latest.EndedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return f.get(latest.ID)
}

func (f *fakeAttempts) LockForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*model.ExamAttempt, error) {
	return f.get(id)
}

func (f *fakeAttempts) Finalise(_ context.Context, _ pgx.Tx, a *model.ExamAttempt) (bool, error) {
	cur, ok := f.attempts[a.ID]
	if !ok || cur.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	cp := *a
	f.attempts[a.ID] = &cp
	return true, nil
}

func (f *fakeAttempts) InsertAnswers(_ context.Context, _ pgx.Tx, attemptID uuid.UUID, answers []model.AttemptAnswer) error {
	f.graded[attemptID] = append([]model.AttemptAnswer(nil), answers...)
	return nil
}

func (f *fakeAttempts) ListAnswers(_ context.Context, attemptID uuid.UUID) (map[string]model.Option, error) {
	return selectedOptions(f.graded[attemptID]), nil
}

func (f *fakeAttempts) ListGradedAnswers(_ context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	return append([]model.AttemptAnswer(nil), f.graded[attemptID]...), nil
}

func (f *fakeAttempts) ListDrafts(_ context.Context, _ repository.DBTX, attemptID uuid.UUID) (map[string]model.Option, error) {
	out := map[string]model.Option{}
	for k, v := range f.drafts[attemptID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeAttempts) DeleteDrafts(_ context.Context, _ pgx.Tx, attemptID uuid.UUID) error {
	delete(f.drafts, attemptID)
	return nil
}

// ListOverdue returns registered overdue attempts that are still open, in a
// stable order.
func (f *fakeAttempts) ListOverdue(_ context.Context, _ time.Duration, limit int) ([]repository.OverdueAttempt, error) {
	f.listOverdueCalls++
	var out []repository.OverdueAttempt
	for id, o := range f.overdue {
		if a, ok := f.attempts[id]; ok && a.Status == model.AttemptStatusInProgress {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptID.String() < out[j].AttemptID.String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAttempts) ListByUser(context.Context, uuid.UUID, int, int) ([]model.AttemptListItem, int, error) {
	return nil, 0, nil
}

// fakeExams serves exams and their questions from memory.
type fakeExams struct {
	exams     map[uuid.UUID]*model.Exam
	questions map[uuid.UUID][]model.ExamQuestionDetail
	getErr    error
}

func (f *fakeExams) Get(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExams) GetActive(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return f.Get(ctx, id)
}

func (f *fakeExams) Paper(_ context.Context, exam *model.Exam) (*model.ExamPaperCache, error) {
	return buildPaper(exam, f.questions[exam.ID])
}

func (f *fakeExams) PaperByID(ctx context.Context, examID uuid.UUID) (*model.ExamPaperCache, error) {
	exam, err := f.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	return f.Paper(ctx, exam)
}

func (f *fakeExams) ServedQuestions(_ context.Context, _ repository.DBTX, exam *model.Exam) ([]model.ExamQuestionDetail, error) {
	qs := f.questions[exam.ID]
	if exam.QuestionCount > 0 && len(qs) > exam.QuestionCount {
		qs = qs[:exam.QuestionCount]
	}
	return append([]model.ExamQuestionDetail(nil), qs...), nil
}

func (f *fakeExams) ReviewQuestions(_ context.Context, graded []model.AttemptAnswer) ([]model.ReviewQuestion, error) {
	var current []model.Question
	for _, qs := range f.questions {
		for _, q := range qs {
			current = append(current, q.Question)
		}
	}
	return reviewQuestions(graded, current)
}

// fakeCache implements the Redis calls the attempt lifecycle makes during
// submission and expiry. Any other call panics on the nil embedded client.
type fakeCache struct {
	redis.Cmdable
	hashes  map[string]map[string]string
	deleted []string
}

func (c *fakeCache) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range c.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (c *fakeCache) Pipeline() redis.Pipeliner {
	return &fakePipe{cache: c}
}

type fakePipe struct {
	redis.Pipeliner
	cache *fakeCache
}

func (p *fakePipe) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(p.cache.hashes, k)
		p.cache.deleted = append(p.cache.deleted, k)
	}
	return redis.NewIntCmd(ctx)
}

func (p *fakePipe) Exec(context.Context) ([]redis.Cmder, error) {
	return nil, nil
}

type noPurchases struct{}

func (noPurchases) HasPurchase(context.Context, repository.DBTX, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

var errExamLookup = errors.New("exam lookup failed")

// newTestAttemptService wires the fakes with a fixed clock. Transactions run
// fn directly.
func newTestAttemptService(store *fakeAttempts, exams *fakeExams, cache *fakeCache, now time.Time) *AttemptService {
	return &AttemptService{
		inTx: func(_ context.Context, fn func(tx pgx.Tx) error) error {
			return fn(nil)
		},
		attemptRepo: store,
		txRepo:      noPurchases{},
		examService: exams,
		rdb:         cache,
		log:         zerolog.Nop(),
		now:         func() time.Time { return now },
	}
}
