package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/model"
)

const (
	AuditBatchSize    = 50
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// AuditWriter persists audit events. *repository.AuditRepository satisfies it.
type AuditWriter interface {
	InsertBatch(ctx context.Context, events []model.AuditEvent) error
	Insert(ctx context.Context, e model.AuditEvent) error
}

// AuditWorker drains the session audit queue into Postgres.
type AuditWorker struct {
	writer AuditWriter
	rdb    *redis.Client
	log    zerolog.Logger
}

func NewAuditWorker(writer AuditWriter, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		writer: writer,
		rdb:    rdb,
		log:    log.With().Str("component", "audit_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]model.AuditEvent, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AuditPollTimeout, config.WorkerKey.SessionAuditQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					// Redis is down; avoid a hot loop.
					time.Sleep(AuditPollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var e model.AuditEvent
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, e)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-row fallback
// ----------------------------------------------------------------

func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.AuditEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.writer.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("batch audit insert failed, using fallback")

		for _, e := range batch {
			if err := w.writer.Insert(ctx, e); err != nil {
				w.log.Error().Err(err).Int("session_id", e.SessionID).Msg("audit insert failed, requeueing")
				raw, _ := json.Marshal(e)
				w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.SessionAuditQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("audit batch persisted")
}
