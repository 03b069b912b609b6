package repository

import (
	"context"
	"encoding/json"

	"github.com/stemsi/exstem-console/internal/model"
)

// DashboardRepository reads the dashboard sources of the proctor and admin roles.
type DashboardRepository struct {
	proctor *Client
	admin   *Client
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(up *Upstream) *DashboardRepository {
	return &DashboardRepository{
		proctor: up.Client(ScopeProctor),
		admin:   up.Client(ScopeAdmin),
	}
}

// ProctorDashboard returns live sessions, recent violations and pending incidents.
func (r *DashboardRepository) ProctorDashboard(ctx context.Context, token string) (*model.ProctorDashboard, error) {
	var out model.ProctorDashboard
	if err := r.proctor.Get(ctx, token, "/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignedSessions lists the sessions the proctor is assigned to.
func (r *DashboardRepository) AssignedSessions(ctx context.Context, token string) ([]model.AssignedSession, error) {
	var raw json.RawMessage
	if err := r.proctor.Get(ctx, token, "/assigned-sessions", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.AssignedSession](raw, "sessions")
}

// AdminDashboard returns the admin stat cards.
func (r *DashboardRepository) AdminDashboard(ctx context.Context, token string) (model.AdminDashboard, error) {
	out := model.AdminDashboard{}
	if err := r.admin.Get(ctx, token, "/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminExams lists every exam for the admin overview.
func (r *DashboardRepository) AdminExams(ctx context.Context, token string) ([]model.Exam, error) {
	var raw json.RawMessage
	if err := r.admin.Get(ctx, token, "/exams", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Exam](raw, "exams")
}
