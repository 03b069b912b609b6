package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// AdminRepository talks to the admin-scoped user management endpoints.
type AdminRepository struct {
	client *Client
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(up *Upstream) *AdminRepository {
	return &AdminRepository{client: up.Client(ScopeAdmin)}
}

// Users lists every account.
func (r *AdminRepository) Users(ctx context.Context, token string) ([]model.User, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/users", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.User](raw, "users")
}

// CreateUser creates an account with one or more roles.
func (r *AdminRepository) CreateUser(ctx context.Context, token string, req model.CreateUserRequest) (*model.User, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/users", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.User](raw, "user")
}

// SetRoles replaces the role set of a user.
func (r *AdminRepository) SetRoles(ctx context.Context, token string, id int, roles []model.Role) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/users/%d/role", id), model.SetRolesRequest{Roles: roles}, nil)
}

// SetStatus activates or deactivates a user.
func (r *AdminRepository) SetStatus(ctx context.Context, token string, id int, status model.UserStatus) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/users/%d/status", id), model.SetStatusRequest{Status: status}, nil)
}

// PendingTeachers lists teacher registrations awaiting approval.
func (r *AdminRepository) PendingTeachers(ctx context.Context, token string) ([]model.User, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/pending-teachers", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.User](raw, "pendingTeachers")
}

// ApproveTeacher activates a pending teacher.
func (r *AdminRepository) ApproveTeacher(ctx context.Context, token string, id int) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/approve-teacher/%d", id), struct{}{}, nil)
}
