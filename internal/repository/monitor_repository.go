package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// MonitorRepository reads live session state for proctors.
type MonitorRepository struct {
	client *Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(up *Upstream) *MonitorRepository {
	return &MonitorRepository{client: up.Client(ScopeProctor)}
}

// SessionStudents lists every student of a session with their attempt state.
func (r *MonitorRepository) SessionStudents(ctx context.Context, token string, sessionID int) ([]model.MonitorStudent, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/sessions/%d/students", sessionID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.MonitorStudent](raw, "students")
}

// SessionDetails returns the session detail document. It is passed through.
func (r *MonitorRepository) SessionDetails(ctx context.Context, token string, sessionID int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/sessions/%d/details", sessionID), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// LockAttempt stops a student attempt.
func (r *MonitorRepository) LockAttempt(ctx context.Context, token string, attemptID int, req model.LockAttemptRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/attempts/%d/lock", attemptID), req, nil)
}
