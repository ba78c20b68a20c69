// Package client is the HTTP client of the useradmin API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/inflight"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/rbac"
	"github.com/daap14/useradmin/internal/users"
)

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// codeErrors maps error codes to the sentinel errors they stand for so callers
// can use errors.Is on an *APIError.
var codeErrors = map[string]error{
	"NOT_FOUND":                  auth.ErrUserNotFound,
	"TRANSFER_PROJECT_NOT_FOUND": users.ErrTransferProjectNotFound,
	"INVALID_TRANSFER":           users.ErrTransferToOwnProject,
	"FEATURE_DISABLED":           users.ErrFeatureDisabled,
	"INVALID_ROLE":               users.ErrInvalidRole,
	"IN_PROGRESS":                inflight.ErrInFlight,
	"DUPLICATE_EMAIL":            auth.ErrDuplicateEmail,
}

// Unwrap returns the sentinel error matching the error code, if any.
func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

type wireUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireUser) toUser() auth.User {
	return auth.User{
		ID:        w.ID,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Role:      w.Role,
		CreatedAt: w.CreatedAt,
	}
}

type wireProject struct {
	ID      uuid.UUID    `json:"id"`
	Name    string       `json:"name"`
	Type    project.Type `json:"type"`
	OwnerID *uuid.UUID   `json:"ownerId"`
}

// Role is an assignable role as described by the server.
type Role struct {
	Name  rbac.Role `json:"name"`
	Label string    `json:"label"`
}

// Settings are the server's feature toggles and user administration constants.
type Settings struct {
	Features           config.Features `json:"features"`
	ConfirmationPhrase string          `json:"confirmationPhrase"`
	AssignableRoles    []Role          `json:"assignableRoles"`
}

// Client calls the useradmin API. Requests are never retried.
type Client struct {
	http *resty.Client
}

// New creates a Client for the configured server.
func New(cfg config.CLIConfig) (*Client, error) {
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("server URL must be an absolute http(s) URL, got %q", cfg.Server)
	}

	rc := resty.New().
		SetBaseURL(cfg.Server).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", cfg.APIKey).
		SetRetryCount(0)

	return &Client{http: rc}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	if env, ok := resp.Error().(*errorEnvelope); ok && env != nil && env.Error != nil {
		env.Error.Status = resp.StatusCode()
		return env.Error
	}
	return &APIError{Status: resp.StatusCode(), Code: "HTTP_ERROR", Message: resp.Status()}
}

// GetUsers lists users in store order.
func (c *Client) GetUsers(ctx context.Context) ([]auth.User, error) {
	var env envelope[[]wireUser]
	if err := c.do(ctx, resty.MethodGet, "/users", nil, &env); err != nil {
		return nil, err
	}
	out := make([]auth.User, 0, len(env.Data))
	for _, u := range env.Data {
		out = append(out, u.toUser())
	}
	return out, nil
}

// GetUserByEmail returns the user with email or an error wrapping auth.ErrUserNotFound.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var env envelope[wireUser]
	if err := c.do(ctx, resty.MethodGet, "/users/by-email/"+url.PathEscape(email), nil, &env); err != nil {
		return nil, err
	}
	u := env.Data.toUser()
	return &u, nil
}

// DeleteUser sends the deletion payload as the request body.
func (c *Client) DeleteUser(ctx context.Context, p users.DeletePayload) error {
	return c.do(ctx, resty.MethodDelete, "/users/"+p.ID.String(), p, nil)
}

// UpdateGlobalRole sends the role change payload as the request body.
func (c *Client) UpdateGlobalRole(ctx context.Context, p users.RoleChangePayload) error {
	return c.do(ctx, resty.MethodPatch, "/users/"+p.ID.String()+"/role", p, nil)
}

// ListTransferCandidates lists the projects that may receive the data of excludingOwnerID.
func (c *Client) ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error) {
	var env envelope[[]wireProject]
	path := "/projects/transfer-candidates?excludingOwnerId=" + url.QueryEscape(excludingOwnerID.String())
	if err := c.do(ctx, resty.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	out := make([]project.Project, 0, len(env.Data))
	for _, p := range env.Data {
		out = append(out, project.Project{ID: p.ID, Name: p.Name, Type: p.Type, OwnerID: p.OwnerID})
	}
	return out, nil
}

// Settings fetches the server settings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var env envelope[Settings]
	if err := c.do(ctx, resty.MethodGet, "/settings", nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
