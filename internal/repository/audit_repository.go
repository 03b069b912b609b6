package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-console/internal/model"
)

// AuditRepository reads and writes the session audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// InsertBatch writes events in one round trip.
func (r *AuditRepository) InsertBatch(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO session_audit_log (session_id, actor_id, action, detail, occurred_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.SessionID, e.ActorID, e.Action, e.Detail, e.OccurredAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// Insert writes a single event.
func (r *AuditRepository) Insert(ctx context.Context, e model.AuditEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_audit_log (session_id, actor_id, action, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.SessionID, e.ActorID, e.Action, e.Detail, e.OccurredAt)
	return err
}

// ListBySession returns the audit trail of a session, newest first.
func (r *AuditRepository) ListBySession(ctx context.Context, sessionID, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, actor_id, action, detail, occurred_at
		 FROM session_audit_log
		 WHERE session_id = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.AuditEvent, 0)
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ActorID, &e.Action, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
