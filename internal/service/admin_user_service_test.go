package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-console/internal/model"
)

type fakeUserStore struct {
	users    []model.User
	roles    map[int][]model.Role
	statuses map[int]model.UserStatus
	created  []model.CreateUserRequest
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: []model.User{
			{ID: 1, FullName: "Admin Satu", Email: "admin@school.id", Roles: model.Roles{model.RoleAdmin}},
			{ID: 2, FullName: "Guru Dua", Email: "guru2@school.id", Roles: model.Roles{model.RoleTeacher}},
			{ID: 3, FullName: "Guru Tiga", Email: "guru3@school.id", Roles: model.Roles{model.RoleTeacher, model.RoleProctor}},
			{ID: 4, FullName: "Pengawas", Email: "proctor@school.id", Roles: model.Roles{model.RoleProctor}},
			{ID: 5, FullName: "Siswa", Email: "siswa@school.id", Roles: model.Roles{model.RoleStudent}},
		},
		roles:    map[int][]model.Role{},
		statuses: map[int]model.UserStatus{},
	}
}

func (f *fakeUserStore) Users(ctx context.Context, token string) ([]model.User, error) {
	return f.users, nil
}

func (f *fakeUserStore) CreateUser(ctx context.Context, token string, req model.CreateUserRequest) (*model.User, error) {
	f.created = append(f.created, req)
	return &model.User{ID: 10, FullName: req.FullName, Email: req.Email, Roles: req.Roles, Status: req.Status}, nil
}

func (f *fakeUserStore) SetRoles(ctx context.Context, token string, id int, roles []model.Role) error {
	f.roles[id] = roles
	return nil
}

func (f *fakeUserStore) SetStatus(ctx context.Context, token string, id int, status model.UserStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeUserStore) PendingTeachers(ctx context.Context, token string) ([]model.User, error) {
	return f.users[1:2], nil
}

func (f *fakeUserStore) ApproveTeacher(ctx context.Context, token string, id int) error { return nil }

var adminAuth = &model.AuthContext{UpstreamToken: "admin-token", User: model.User{ID: 1, Roles: model.Roles{model.RoleAdmin}}}

func TestListUsersFiltersAndPages(t *testing.T) {
	svc := NewAdminUserService(newFakeUserStore())

	tests := []struct {
		name      string
		q         UserListQuery
		wantIDs   []int
		wantTotal int
	}{
		{"defaults", UserListQuery{}, []int{1, 2, 3, 4, 5}, 5},
		{"by role", UserListQuery{Role: model.RoleProctor}, []int{3, 4}, 2},
		{"search", UserListQuery{Search: "GURU"}, []int{2, 3}, 2},
		{"second page", UserListQuery{Page: 2, PerPage: 2}, []int{3, 4}, 5},
		{"past the end", UserListQuery{Page: 9, PerPage: 2}, []int{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, total, err := svc.ListUsers(context.Background(), adminAuth, tt.q)
			require.NoError(t, err)

			ids := make([]int, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestSetRolesDedupesAndProtectsSelf(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAdminUserService(store)

	err := svc.SetRoles(context.Background(), adminAuth, 3, []model.Role{model.RoleTeacher, model.RoleProctor, model.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleTeacher, model.RoleProctor}, store.roles[3])

	err = svc.SetRoles(context.Background(), adminAuth, 1, []model.Role{model.RoleTeacher})
	assert.ErrorIs(t, err, ErrSelfModification)
	assert.NotContains(t, store.roles, 1)

	err = svc.SetStatus(context.Background(), adminAuth, 1, model.UserStatusInactive)
	assert.ErrorIs(t, err, ErrSelfModification)

	require.NoError(t, svc.SetStatus(context.Background(), adminAuth, 4, model.UserStatusInactive))
	assert.Equal(t, model.UserStatusInactive, store.statuses[4])
}

func TestCreateUserDefaultsToActive(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAdminUserService(store)

	u, err := svc.CreateUser(context.Background(), adminAuth, model.CreateUserRequest{
		FullName: "Baru", Email: "baru@school.id", Password: "secret1", Roles: []model.Role{model.RoleTeacher},
	})

	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, u.Status)
}
