package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stemsi/exstem-console/internal/model"
)

// ErrSelfModification is returned when an admin would remove their own admin access.
var ErrSelfModification = errors.New("cannot remove your own admin access")

// UserStore is the upstream admin user surface.
type UserStore interface {
	Users(ctx context.Context, token string) ([]model.User, error)
	CreateUser(ctx context.Context, token string, req model.CreateUserRequest) (*model.User, error)
	SetRoles(ctx context.Context, token string, id int, roles []model.Role) error
	SetStatus(ctx context.Context, token string, id int, status model.UserStatus) error
	PendingTeachers(ctx context.Context, token string) ([]model.User, error)
	ApproveTeacher(ctx context.Context, token string, id int) error
}

// UserListQuery pages and filters the user table.
type UserListQuery struct {
	Page    int        `form:"page" binding:"omitempty,min=1"`
	PerPage int        `form:"per_page" binding:"omitempty,min=1,max=100"`
	Role    model.Role `form:"role" binding:"omitempty,oneof=teacher proctor admin student"`
	Search  string     `form:"q" binding:"omitempty,max=100"`
}

type AdminUserService struct {
	users UserStore
}

func NewAdminUserService(users UserStore) *AdminUserService {
	return &AdminUserService{users: users}
}

// ListUsers retrieves a paginated list of users. Upstream returns the whole table,
// so filtering and paging happen here.
func (s *AdminUserService) ListUsers(ctx context.Context, auth *model.AuthContext, q UserListQuery) ([]model.User, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 10
	}

	all, err := s.users.Users(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]model.User, 0, len(all))
	for _, u := range all {
		if q.Role != "" && !u.Roles.Has(q.Role) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.FullName), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		filtered = append(filtered, u)
	}

	total := len(filtered)
	offset := (q.Page - 1) * q.PerPage
	if offset >= total {
		return []model.User{}, total, nil
	}
	end := offset + q.PerPage
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *AdminUserService) CreateUser(ctx context.Context, auth *model.AuthContext, req model.CreateUserRequest) (*model.User, error) {
	if req.Status == "" {
		req.Status = model.UserStatusActive
	}
	u, err := s.users.CreateUser(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// SetRoles replaces a user's role set. Duplicates are dropped.
func (s *AdminUserService) SetRoles(ctx context.Context, auth *model.AuthContext, id int, roles []model.Role) error {
	set := make(model.Roles, 0, len(roles))
	for _, r := range roles {
		if !set.Has(r) {
			set = append(set, r)
		}
	}
	if id == auth.User.ID && !set.Has(model.RoleAdmin) {
		return ErrSelfModification
	}
	if err := s.users.SetRoles(ctx, auth.UpstreamToken, id, set); err != nil {
		return fmt.Errorf("set roles for user %d: %w", id, err)
	}
	return nil
}

func (s *AdminUserService) SetStatus(ctx context.Context, auth *model.AuthContext, id int, status model.UserStatus) error {
	if id == auth.User.ID && status == model.UserStatusInactive {
		return ErrSelfModification
	}
	if err := s.users.SetStatus(ctx, auth.UpstreamToken, id, status); err != nil {
		return fmt.Errorf("set status for user %d: %w", id, err)
	}
	return nil
}

func (s *AdminUserService) PendingTeachers(ctx context.Context, auth *model.AuthContext) ([]model.User, error) {
	users, err := s.users.PendingTeachers(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list pending teachers: %w", err)
	}
	return users, nil
}

func (s *AdminUserService) ApproveTeacher(ctx context.Context, auth *model.AuthContext, id int) error {
	if err := s.users.ApproveTeacher(ctx, auth.UpstreamToken, id); err != nil {
		return fmt.Errorf("approve teacher %d: %w", id, err)
	}
	return nil
}
