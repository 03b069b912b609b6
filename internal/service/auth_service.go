package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/repository"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoConsoleRole      = errors.New("account has no teacher, proctor or admin role")
	ErrSessionInvalidated = errors.New("console session expired or logged out")
)

// Claims are carried by the console token. The upstream token never leaves the server.
type Claims struct {
	jwt.RegisteredClaims
	UserID int          `json:"user_id"`
	Roles  []model.Role `json:"roles"`
}

// AuthUpstream is the upstream surface the auth service needs.
type AuthUpstream interface {
	Login(ctx context.Context, email, password string) (*model.UpstreamLoginResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.UpstreamLoginResponse, error)
}

// AuthService issues console tokens and keeps the matching AuthContext in Redis.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	upstream AuthUpstream
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, upstream AuthUpstream) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, upstream: upstream, now: time.Now}
}

// Login authenticates against upstream, then issues a console token bound to
// an AuthContext stored under auth:{jti} for the token's lifetime.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	up, err := s.upstream.Login(ctx, req.Email, req.Password)
	if err != nil {
		if repository.IsStatus(err, http.StatusUnauthorized) || repository.IsStatus(err, http.StatusBadRequest) ||
			repository.IsStatus(err, http.StatusNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("upstream login: %w", err)
	}
	if up.Token == "" {
		return nil, fmt.Errorf("upstream login: empty token")
	}
	if !up.User.Roles.HasAny(model.RoleTeacher, model.RoleProctor, model.RoleAdmin) {
		return nil, ErrNoConsoleRole
	}

	now := s.now()
	jti := uuid.New().String()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(up.User.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: up.User.ID,
		Roles:  up.User.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	authCtx := model.AuthContext{UpstreamToken: up.Token, User: up.User, IssuedAt: now}
	raw, err := json.Marshal(authCtx)
	if err != nil {
		return nil, fmt.Errorf("encode auth context: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AuthContextKey(jti), raw, s.cfg.JWTExpiry).Err(); err != nil {
		return nil, fmt.Errorf("store auth context: %w", err)
	}

	return &model.LoginResponse{
		Token:      signed,
		ExpiresAt:  expiresAt,
		User:       up.User,
		Navigation: model.NavigationFor(up.User.Roles),
	}, nil
}

// Register forwards a self-registration to upstream. It does not log the user in:
// teacher accounts wait for admin approval.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	up, err := s.upstream.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upstream register: %w", err)
	}
	return &up.User, nil
}

// ValidateToken parses and validates a console JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Resolve loads the AuthContext bound to a validated token.
func (s *AuthService) Resolve(ctx context.Context, claims *Claims) (*model.AuthContext, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.AuthContextKey(claims.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionInvalidated
		}
		return nil, fmt.Errorf("load auth context: %w", err)
	}
	var authCtx model.AuthContext
	if err := json.Unmarshal(raw, &authCtx); err != nil {
		return nil, fmt.Errorf("decode auth context: %w", err)
	}
	return &authCtx, nil
}

// Logout drops the AuthContext so the console token stops working immediately.
func (s *AuthService) Logout(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, config.CacheKey.AuthContextKey(jti)).Err()
}

// Me returns the current user and the navigation built from their roles.
func (s *AuthService) Me(authCtx *model.AuthContext) (model.User, []model.NavigationEntry) {
	return authCtx.User, model.NavigationFor(authCtx.User.Roles)
}
