package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Role is a platform role. A user may hold several at once.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleProctor Role = "proctor"
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Roles decodes from a JSON array, a single string, or a string holding a
// JSON array (`"[\"teacher\",\"proctor\"]"`), which older upstream rows use.
type Roles []Role

// UnmarshalJSON implements json.Unmarshaler.
func (r *Roles) UnmarshalJSON(data []byte) error {
	var list []Role
	if err := json.Unmarshal(data, &list); err == nil {
		*r = compactRoles(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		*r = nil
		return nil
	}
	single = strings.TrimSpace(single)
	if strings.HasPrefix(single, "[") {
		if err := json.Unmarshal([]byte(single), &list); err == nil {
			*r = compactRoles(list)
			return nil
		}
	}
	*r = compactRoles([]Role{Role(single)})
	return nil
}

func compactRoles(in []Role) Roles {
	out := make(Roles, 0, len(in))
	seen := make(map[Role]struct{}, len(in))
	for _, role := range in {
		role = Role(strings.ToLower(strings.TrimSpace(string(role))))
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// Has reports whether role is in r.
func (r Roles) Has(role Role) bool {
	for _, x := range r {
		if x == role {
			return true
		}
	}
	return false
}

// HasAny reports whether r shares at least one role with allowed.
func (r Roles) HasAny(allowed ...Role) bool {
	for _, a := range allowed {
		if r.Has(a) {
			return true
		}
	}
	return false
}

// UserStatus is an account state. Upstream sends either the string or 1/0.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// UnmarshalJSON implements json.Unmarshaler.
func (s *UserStatus) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(raw) {
	case "1", "true", string(UserStatusActive):
		*s = UserStatusActive
	case "0", "false", string(UserStatusInactive):
		*s = UserStatusInactive
	default:
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			*s = UserStatusActive
			return nil
		}
		*s = UserStatusInactive
	}
	return nil
}

// User is a platform account.
type User struct {
	ID       int        `json:"id"`
	FullName string     `json:"full_name"`
	Email    string     `json:"email"`
	Roles    Roles      `json:"role"`
	Status   UserStatus `json:"status,omitempty"`
}

// AuthContext is the identity a request acts under. It is populated at login,
// stored server-side, and passed explicitly to every service call.
type AuthContext struct {
	UpstreamToken string    `json:"upstream_token"`
	User          User      `json:"user"`
	IssuedAt      time.Time `json:"issued_at"`
}

// LoginRequest is the payload for console authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// UpstreamLoginResponse is what upstream POST /auth/login returns.
type UpstreamLoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// LoginResponse is returned to the browser after login.
type LoginResponse struct {
	Token      string            `json:"token"`
	ExpiresAt  time.Time         `json:"expires_at"`
	User       User              `json:"user"`
	Navigation []NavigationEntry `json:"navigation"`
}

// RegisterRequest is forwarded to upstream POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Role     Role   `json:"role" binding:"omitempty,oneof=teacher proctor student"`
}

// CreateUserRequest is the admin payload for creating an account.
type CreateUserRequest struct {
	FullName string     `json:"full_name" binding:"required,min=2,max=100"`
	Email    string     `json:"email" binding:"required,email,max=255"`
	Password string     `json:"password" binding:"required,min=6,max=128"`
	Roles    []Role     `json:"role" binding:"required,min=1,dive,oneof=teacher proctor admin student"`
	Status   UserStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

// SetRolesRequest replaces a user's role set.
type SetRolesRequest struct {
	Roles []Role `json:"role" binding:"required,min=1,dive,oneof=teacher proctor admin student"`
}

// SetStatusRequest toggles an account.
type SetStatusRequest struct {
	Status UserStatus `json:"status" binding:"required,oneof=active inactive"`
}

// NavigationEntry is one menu item the browser renders.
type NavigationEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Role  Role   `json:"role"`
}

var roleNavigation = map[Role][]NavigationEntry{
	RoleTeacher: {
		{Key: "/subjects", Label: "Subjects"},
		{Key: "/questions", Label: "Question bank"},
		{Key: "/exams", Label: "Exams"},
		{Key: "/sessions", Label: "Exam sessions"},
		{Key: "/results", Label: "Results"},
	},
	RoleProctor: {
		{Key: "/proctor/dashboard", Label: "Proctor dashboard"},
		{Key: "/proctor/sessions", Label: "Assigned sessions"},
		{Key: "/proctor/violations", Label: "Violations"},
		{Key: "/proctor/incidents", Label: "Incidents"},
	},
	RoleAdmin: {
		{Key: "/admin/dashboard", Label: "Admin dashboard"},
		{Key: "/admin/users", Label: "User management"},
	},
}

// NavigationFor returns the union of menu entries for roles, in teacher,
// proctor, admin order, without duplicate keys.
func NavigationFor(roles Roles) []NavigationEntry {
	out := make([]NavigationEntry, 0, 12)
	seen := make(map[string]struct{})
	for _, role := range []Role{RoleTeacher, RoleProctor, RoleAdmin} {
		if !roles.Has(role) {
			continue
		}
		for _, e := range roleNavigation[role] {
			if _, dup := seen[e.Key]; dup {
				continue
			}
			seen[e.Key] = struct{}{}
			e.Role = role
			out = append(out, e)
		}
	}
	return out
}
