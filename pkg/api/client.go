// Package api is the thin client for the immigration-services backend's
// auth endpoints. It attaches bearer tokens, correlates requests with an
// X-Request-ID, and normalizes the backend's error bodies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearpath-immigration/authkit/pkg/logging"
	"github.com/clearpath-immigration/authkit/pkg/user"
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend API root, e.g. "https://api.example.com".
	BaseURL string

	// Timeout bounds each request. Default 15s.
	Timeout time.Duration
}

// Client calls the backend auth endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// NewClient creates a backend API client.
func NewClient(cfg Config, log logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.WithModule("api"),
	}
}

// RegisterRequest is the payload for POST /auth/register. The backend
// creates the identity-provider account server-side and returns a one-time
// sign-in token.
type RegisterRequest struct {
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Password         string    `json:"password"`
	TermsAccepted    bool      `json:"termsAccepted"`
	PrivacyAccepted  bool      `json:"privacyAccepted"`
	ConsentTimestamp time.Time `json:"consentTimestamp"`
}

// RegisterResponse is the success body of POST /auth/register.
type RegisterResponse struct {
	User        *user.User `json:"user"`
	CustomToken string     `json:"customToken"`
}

// GoogleSyncRequest is the body for POST /auth/google.
type GoogleSyncRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	IsNewUser   bool   `json:"isNewUser"`
}

type userEnvelope struct {
	User *user.User `json:"user"`
}

// Register creates an account. The provider account is created server-side
// so validation and role assignment happen before any credential exists.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginSync tells the backend a password login happened and fetches the
// canonical user record. The backend may assign role claims as a side
// effect; callers must force a token refresh afterwards.
func (c *Client) LoginSync(ctx context.Context, token string) (*user.User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/login", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// GoogleSync registers or refreshes a federated identity with the backend.
func (c *Client) GoogleSync(ctx context.Context, token string, req GoogleSyncRequest) (*user.User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/google", token, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout notifies the backend of a sign-out. Best-effort; callers clear the
// local session regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// Me fetches the current user record.
func (c *Client) Me(ctx context.Context, token string) (*user.User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: failed to decode %s response: %w", path, err)
		}
	}
	return nil
}
