package model

import "time"

// AuditAction names an orchestrator outcome recorded in the session audit log.
type AuditAction string

const (
	AuditSessionCreated           AuditAction = "created"
	AuditSessionUpdated           AuditAction = "updated"
	AuditSessionCancelled         AuditAction = "cancelled"
	AuditSessionDeleted           AuditAction = "deleted"
	AuditProctorAssignmentFailed  AuditAction = "proctor_assignment_failed"
	AuditProctorAssignmentApplied AuditAction = "proctors_assigned"
)

// AuditEvent is one entry of the session audit log.
type AuditEvent struct {
	ID         int64       `json:"id,omitempty"`
	SessionID  int         `json:"session_id"`
	ActorID    int         `json:"actor_id"`
	Action     AuditAction `json:"action"`
	Detail     string      `json:"detail,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
