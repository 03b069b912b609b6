package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ProctorRepository talks to the violation, incident and issue report endpoints.
type ProctorRepository struct {
	client *Client
}

// NewProctorRepository creates a new ProctorRepository.
func NewProctorRepository(up *Upstream) *ProctorRepository {
	return &ProctorRepository{client: up.Client(ScopeProctor)}
}

func (r *ProctorRepository) Violations(ctx context.Context, token string) ([]model.Violation, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/violations", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Violation](raw, "violations")
}

func (r *ProctorRepository) CreateViolation(ctx context.Context, token string, req model.CreateViolationRequest) (*model.Violation, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/violations", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Violation](raw, "violation")
}

// TransitionViolation requests a status change. Upstream decides whether it is allowed.
func (r *ProctorRepository) TransitionViolation(ctx context.Context, token string, id int, req model.ViolationTransitionRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/violations/%d/status", id), req, nil)
}

func (r *ProctorRepository) Incidents(ctx context.Context, token string) ([]model.Incident, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/incidents", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Incident](raw, "incidents")
}

func (r *ProctorRepository) CreateIncident(ctx context.Context, token string, req model.CreateIncidentRequest) (*model.Incident, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/incidents", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Incident](raw, "incident")
}

// TransitionIncident requests a status change. Upstream decides whether it is allowed.
func (r *ProctorRepository) TransitionIncident(ctx context.Context, token string, id int, req model.IncidentTransitionRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/incidents/%d/status", id), req, nil)
}

func (r *ProctorRepository) IssueReports(ctx context.Context, token string) ([]model.IssueReport, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/issue-reports", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.IssueReport](raw, "reports")
}

func (r *ProctorRepository) ResolveIssue(ctx context.Context, token string, id int, req model.ResolveIssueRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/issue-reports/%d/resolve", id), req, nil)
}
