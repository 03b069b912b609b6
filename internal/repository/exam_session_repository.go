package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ExamSessionRepository talks to the teacher-scoped session endpoints.
type ExamSessionRepository struct {
	client *Client
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(up *Upstream) *ExamSessionRepository {
	return &ExamSessionRepository{client: up.Client(ScopeTeacher)}
}

// List returns every session visible to the caller.
func (r *ExamSessionRepository) List(ctx context.Context, token string) ([]model.ExamSession, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/sessions", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.ExamSession](raw, "sessions")
}

// GetByID retrieves one session.
func (r *ExamSessionRepository) GetByID(ctx context.Context, token string, id int) (*model.ExamSession, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/sessions/%d", id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.ExamSession](raw, "session")
}

// Create inserts a session and returns it as stored upstream.
func (r *ExamSessionRepository) Create(ctx context.Context, token string, p model.UpstreamSessionPayload) (*model.ExamSession, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/sessions", p, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.ExamSession](raw, "session")
}

// Update replaces a session's window and access code.
func (r *ExamSessionRepository) Update(ctx context.Context, token string, id int, p model.UpstreamSessionPayload) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/sessions/%d", id), p, nil)
}

// Cancel asks upstream to cancel a session. Upstream answers 409 for ongoing sessions.
func (r *ExamSessionRepository) Cancel(ctx context.Context, token string, id int) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/sessions/%d/cancel", id), struct{}{}, nil)
}

// Delete removes a session. Upstream answers 409 when attempts exist.
func (r *ExamSessionRepository) Delete(ctx context.Context, token string, id int) error {
	return r.client.Delete(ctx, token, fmt.Sprintf("/sessions/%d", id))
}

// AssignProctors replaces the proctor set of a session.
func (r *ExamSessionRepository) AssignProctors(ctx context.Context, token string, id int, proctorIDs []int) error {
	return r.client.Post(ctx, token, fmt.Sprintf("/sessions/%d/proctors", id), model.AssignProctorsPayload{ProctorIDs: proctorIDs}, nil)
}

// Proctors returns the proctors assigned to a session. Upstream may answer with
// a single object, an array, or null.
func (r *ExamSessionRepository) Proctors(ctx context.Context, token string, id int) ([]model.Proctor, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/sessions/%d/proctor", id), nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		if _, ok := wrapper["proctors"]; ok {
			return decodeList[model.Proctor](raw, "proctors")
		}
		p, err := decodeOne[model.Proctor](raw, "proctor")
		if err != nil {
			return nil, err
		}
		if p.ID == 0 {
			return []model.Proctor{}, nil
		}
		return []model.Proctor{*p}, nil
	}
	return decodeList[model.Proctor](raw, "proctors")
}

// AvailableProctors lists users that can be assigned to sessions.
func (r *ExamSessionRepository) AvailableProctors(ctx context.Context, token string) ([]model.Proctor, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/proctors", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Proctor](raw, "proctors")
}
