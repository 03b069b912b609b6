package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/model"
)

// Auditor records orchestrator outcomes. Recording never fails the caller.
type Auditor interface {
	Record(ctx context.Context, e model.AuditEvent)
}

// AuditReader lists recorded events.
type AuditReader interface {
	ListBySession(ctx context.Context, sessionID, limit int) ([]model.AuditEvent, error)
}

// AuditService queues audit events on Redis for the audit worker and reads the
// persisted log back.
type AuditService struct {
	rdb    *redis.Client
	reader AuditReader
	log    zerolog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(rdb *redis.Client, reader AuditReader, log zerolog.Logger) *AuditService {
	return &AuditService{
		rdb:    rdb,
		reader: reader,
		log:    log.With().Str("component", "audit").Logger(),
	}
}

// Record pushes e onto the audit queue.
func (s *AuditService) Record(ctx context.Context, e model.AuditEvent) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.log.Error().Err(err).Msg("encode audit event")
		return
	}
	// The request may already be finishing; the event must still land.
	if err := s.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.SessionAuditQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Int("session_id", e.SessionID).Str("action", string(e.Action)).Msg("queue audit event")
	}
}

// List returns the audit trail of a session.
func (s *AuditService) List(ctx context.Context, sessionID, limit int) ([]model.AuditEvent, error) {
	events, err := s.reader.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
