package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ProctorStore is the upstream violation, incident and issue surface.
type ProctorStore interface {
	Violations(ctx context.Context, token string) ([]model.Violation, error)
	CreateViolation(ctx context.Context, token string, req model.CreateViolationRequest) (*model.Violation, error)
	TransitionViolation(ctx context.Context, token string, id int, req model.ViolationTransitionRequest) error
	Incidents(ctx context.Context, token string) ([]model.Incident, error)
	CreateIncident(ctx context.Context, token string, req model.CreateIncidentRequest) (*model.Incident, error)
	TransitionIncident(ctx context.Context, token string, id int, req model.IncidentTransitionRequest) error
	IssueReports(ctx context.Context, token string) ([]model.IssueReport, error)
	ResolveIssue(ctx context.Context, token string, id int, req model.ResolveIssueRequest) error
}

// AttemptStore exposes session details and attempt locking.
type AttemptStore interface {
	SessionDetails(ctx context.Context, token string, sessionID int) (json.RawMessage, error)
	LockAttempt(ctx context.Context, token string, attemptID int, req model.LockAttemptRequest) error
}

// ProctorService handles proctor-side records. Statuses are server-authoritative:
// transitions are requested and the upstream row is returned as-is.
type ProctorService struct {
	records  ProctorStore
	attempts AttemptStore
}

// NewProctorService creates a new ProctorService.
func NewProctorService(records ProctorStore, attempts AttemptStore) *ProctorService {
	return &ProctorService{records: records, attempts: attempts}
}

// Violations lists violations matching filter.
func (s *ProctorService) Violations(ctx context.Context, auth *model.AuthContext, filter model.ProctorFilter) ([]model.Violation, error) {
	all, err := s.records.Violations(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	out := make([]model.Violation, 0, len(all))
	for _, v := range all {
		if matchesProctorFilter(filter, v.SessionID, string(v.Status), v.Severity) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *ProctorService) CreateViolation(ctx context.Context, auth *model.AuthContext, req model.CreateViolationRequest) (*model.Violation, error) {
	v, err := s.records.CreateViolation(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create violation: %w", err)
	}
	return v, nil
}

func (s *ProctorService) TransitionViolation(ctx context.Context, auth *model.AuthContext, id int, req model.ViolationTransitionRequest) error {
	if err := s.records.TransitionViolation(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("transition violation %d: %w", id, err)
	}
	return nil
}

// Incidents lists incidents matching filter.
func (s *ProctorService) Incidents(ctx context.Context, auth *model.AuthContext, filter model.ProctorFilter) ([]model.Incident, error) {
	all, err := s.records.Incidents(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	out := make([]model.Incident, 0, len(all))
	for _, in := range all {
		if matchesProctorFilter(filter, in.SessionID, string(in.Status), in.Severity) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *ProctorService) CreateIncident(ctx context.Context, auth *model.AuthContext, req model.CreateIncidentRequest) (*model.Incident, error) {
	in, err := s.records.CreateIncident(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return in, nil
}

func (s *ProctorService) TransitionIncident(ctx context.Context, auth *model.AuthContext, id int, req model.IncidentTransitionRequest) error {
	if err := s.records.TransitionIncident(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("transition incident %d: %w", id, err)
	}
	return nil
}

func (s *ProctorService) IssueReports(ctx context.Context, auth *model.AuthContext) ([]model.IssueReport, error) {
	reports, err := s.records.IssueReports(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list issue reports: %w", err)
	}
	return reports, nil
}

func (s *ProctorService) ResolveIssue(ctx context.Context, auth *model.AuthContext, id int, req model.ResolveIssueRequest) error {
	if err := s.records.ResolveIssue(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("resolve issue %d: %w", id, err)
	}
	return nil
}

// SessionDetails returns upstream's detail document for a monitored session.
func (s *ProctorService) SessionDetails(ctx context.Context, auth *model.AuthContext, sessionID int) (json.RawMessage, error) {
	raw, err := s.attempts.SessionDetails(ctx, auth.UpstreamToken, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session details: %w", err)
	}
	return raw, nil
}

// LockAttempt stops a student from continuing an attempt.
func (s *ProctorService) LockAttempt(ctx context.Context, auth *model.AuthContext, attemptID int, req model.LockAttemptRequest) error {
	if err := s.attempts.LockAttempt(ctx, auth.UpstreamToken, attemptID, req); err != nil {
		return fmt.Errorf("lock attempt %d: %w", attemptID, err)
	}
	return nil
}

func matchesProctorFilter(f model.ProctorFilter, sessionID int, status string, severity model.Severity) bool {
	if f.SessionID > 0 && f.SessionID != sessionID {
		return false
	}
	if f.Status != "" && f.Status != status {
		return false
	}
	if f.Severity != "" && f.Severity != severity {
		return false
	}
	return true
}
