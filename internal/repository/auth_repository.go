package repository

import (
	"context"

	"github.com/stemsi/exstem-console/internal/model"
)

// AuthRepository talks to the public auth endpoints.
type AuthRepository struct {
	client *Client
}

// NewAuthRepository creates a new AuthRepository.
func NewAuthRepository(up *Upstream) *AuthRepository {
	return &AuthRepository{client: up.Client(ScopePublic)}
}

// Login exchanges credentials for an upstream token and user record.
func (r *AuthRepository) Login(ctx context.Context, email, password string) (*model.UpstreamLoginResponse, error) {
	var out model.UpstreamLoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := r.client.Post(ctx, "", "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account upstream.
func (r *AuthRepository) Register(ctx context.Context, req model.RegisterRequest) (*model.UpstreamLoginResponse, error) {
	var out model.UpstreamLoginResponse
	if err := r.client.Post(ctx, "", "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
