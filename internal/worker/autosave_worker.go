package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AutosaveBatchSize    = 100
	AutosaveBatchTimeout = 2 * time.Second
	AutosavePollTimeout  = 1 * time.Second
)

// DraftStore persists autosaved answers. *repository.AttemptRepository
// satisfies it.
type DraftStore interface {
	UpsertDrafts(ctx context.Context, drafts []repository.DraftAnswer) error
	UpsertDraft(ctx context.Context, d repository.DraftAnswer) error
}

// AutosaveWorker consumes persist_answers_queue and UPSERTs drafts to
// PostgreSQL in batches, so a Redis loss never loses more than one batch.
type AutosaveWorker struct {
	store DraftStore
	rdb   *redis.Client
	log   zerolog.Logger

	// requeue puts a payload back on the queue after a failed write.
	requeue func(ctx context.Context, raw []byte)
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(store DraftStore, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	w := &AutosaveWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "autosave_worker").Logger(),
	}
	w.requeue = func(ctx context.Context, raw []byte) {
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed, autosave lost from queue")
		}
	}
	return w
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then drains the queue. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]model.AutosavePayload, 0, AutosaveBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AutosaveBatchSize || time.Since(lastFlush) >= AutosaveBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping, flushing remaining autosaves...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, AutosavePollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			if p, ok := w.decode(item[1]); ok {
				batch = append(batch, p)
			}
		}
	}
}

func (w *AutosaveWorker) decode(raw string) (model.AutosavePayload, bool) {
	var p model.AutosavePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return p, false
	}
	if !p.Option.Valid() {
		w.log.Warn().Str("attempt_id", p.AttemptID.String()).Msg("Dropping autosave with invalid option")
		return p, false
	}
	return p, true
}

// ----------------------------------------------------------------
// Batch upsert with single-row fallback
// ----------------------------------------------------------------

// flushSafe writes batch with one statement, falling back to row-by-row
// writes and requeueing rows that still fail.
func (w *AutosaveWorker) flushSafe(ctx context.Context, batch []model.AutosavePayload) {
	if len(batch) == 0 {
		return
	}

	drafts := toDrafts(batch)
	err := w.store.UpsertDrafts(ctx, drafts)
	if err == nil {
		w.log.Debug().Int("count", len(drafts)).Msg("Autosaves persisted")
		return
	}
	w.log.Warn().Err(err).Msg("Bulk draft upsert failed, using fallback")

	for i, d := range drafts {
		if err := w.store.UpsertDraft(ctx, d); err != nil {
			w.log.Error().Err(err).Str("attempt_id", d.AttemptID.String()).Msg("Single draft upsert failed, requeueing")
			raw, _ := json.Marshal(batch[i])
			w.requeue(ctx, raw)
		}
	}
}

// drain persists everything still queued before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raws, err := w.rdb.LPopCount(ctx, config.WorkerKey.PersistAnswersQueue, AutosaveBatchSize).Result()
		if err != nil || len(raws) == 0 {
			break
		}
		batch := make([]model.AutosavePayload, 0, len(raws))
		for _, raw := range raws {
			if p, ok := w.decode(raw); ok {
				batch = append(batch, p)
			}
		}
		if err := w.store.UpsertDrafts(ctx, toDrafts(batch)); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error, leaving rest queued")
			for _, raw := range raws {
				w.requeue(ctx, []byte(raw))
			}
			break
		}
		drained += len(batch)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func toDrafts(batch []model.AutosavePayload) []repository.DraftAnswer {
	drafts := make([]repository.DraftAnswer, len(batch))
	for i, p := range batch {
		drafts[i] = repository.DraftAnswer{
			AttemptID:  p.AttemptID,
			QuestionID: p.QuestionID,
			Option:     p.Option,
			SavedAt:    p.SavedAt,
		}
	}
	return drafts
}
