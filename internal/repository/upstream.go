package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrUpstreamUnavailable wraps every transport-level failure talking to upstream.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// APIError is a non-2xx answer from upstream.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is an upstream APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Scope selects the role-scoped base path of an upstream client.
type Scope string

const (
	ScopePublic  Scope = ""
	ScopeTeacher Scope = "teacher"
	ScopeProctor Scope = "proctor"
	ScopeAdmin   Scope = "admin"
)

// Upstream builds role-scoped clients that share one http.Client.
type Upstream struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewUpstream creates an Upstream rooted at baseURL (e.g. http://localhost:3000/api).
func NewUpstream(baseURL string, timeout time.Duration, log zerolog.Logger) *Upstream {
	return &Upstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "upstream").Logger(),
	}
}

// Client returns the client for scope.
func (u *Upstream) Client(scope Scope) *Client {
	base := u.baseURL
	if scope != ScopePublic {
		base += "/" + string(scope)
	}
	return &Client{base: base, http: u.http, log: u.log}
}

// Client issues JSON requests against one base path. The bearer token is
// passed per call; the client itself holds no credentials.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// Get decodes GET path?query into out.
func (c *Client) Get(ctx context.Context, token, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, token, path, nil, out)
}

// Post sends body and decodes the answer into out. out may be nil.
func (c *Client) Post(ctx context.Context, token, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, token, path, body, out)
}

// Put sends body and decodes the answer into out. out may be nil.
func (c *Client) Put(ctx context.Context, token, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, token, path, body, out)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, token, path string) error {
	return c.do(ctx, http.MethodDelete, token, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, token, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("upstream request failed")
		return fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("upstream")

	if resp.StatusCode/100 != 2 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
			Method:     method,
			Path:       path,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of an upstream error body.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			return e
		case map[string]any:
			if m, ok := e["message"].(string); ok {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

// decodeList accepts either a bare JSON array or an object wrapping the array
// under key, which is how several upstream list endpoints answer.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	inner, ok := wrapper[key]
	if !ok {
		return []T{}, nil
	}
	return decodeList[T](inner, key)
}

// decodeOne accepts a bare object or one wrapped under key.
func decodeOne[T any](raw json.RawMessage, key string) (*T, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		if inner, ok := wrapper[key]; ok && len(inner) > 0 && inner[0] == '{' {
			raw = inner
		}
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
