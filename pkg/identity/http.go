package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clearpath-immigration/authkit/pkg/logging"
)

// Config configures the HTTP provider client.
type Config struct {
	// Endpoint is the provider's REST base URL.
	Endpoint string

	// APIKey is the project API key appended to every call.
	APIKey string

	// Timeout bounds each provider call. Default 15s.
	Timeout time.Duration
}

// HTTPProvider talks to the identity provider's REST token endpoints.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      logging.Logger
}

// NewHTTPProvider creates a provider client.
func NewHTTPProvider(cfg Config, log logging.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		log:      log.WithModule("identity"),
	}
}

type tokenResponse struct {
	IDToken     string `json:"idToken"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
	IsNewUser   bool   `json:"isNewUser"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword verifies an email/password pair.
func (p *HTTPProvider) SignInWithPassword(ctx context.Context, email, password string) (string, error) {
	resp, err := p.post(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", err
	}
	return resp.IDToken, nil
}

// SignInWithToken exchanges a backend-issued one-time sign-in token.
func (p *HTTPProvider) SignInWithToken(ctx context.Context, signInToken string) (string, error) {
	resp, err := p.post(ctx, "accounts:signInWithCustomToken", map[string]interface{}{
		"token":             signInToken,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", err
	}
	return resp.IDToken, nil
}

// SignInWithIDToken exchanges a federated ID token for a provider token.
func (p *HTTPProvider) SignInWithIDToken(ctx context.Context, idToken string) (*FederatedResult, error) {
	resp, err := p.post(ctx, "accounts:signInWithIdp", map[string]interface{}{
		"postBody":            "id_token=" + idToken + "&providerId=google.com",
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
	if err != nil {
		return nil, err
	}
	return &FederatedResult{
		Token:       resp.IDToken,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
		IsNewUser:   resp.IsNewUser,
	}, nil
}

// Refresh forces a token re-issuance. The provider mints a new token with
// whatever custom claims the account carries right now.
func (p *HTTPProvider) Refresh(ctx context.Context, token string) (string, error) {
	resp, err := p.post(ctx, "accounts:refresh", map[string]interface{}{
		"token":             token,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", err
	}
	return resp.IDToken, nil
}

// SignOut revokes the token provider-side.
func (p *HTTPProvider) SignOut(ctx context.Context, token string) error {
	_, err := p.post(ctx, "accounts:signOut", map[string]interface{}{
		"token": token,
	})
	return err
}

func (p *HTTPProvider) post(ctx context.Context, action string, body map[string]interface{}) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s?key=%s", p.endpoint, action, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("identity: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: %s request failed: %w", action, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to read %s response: %w", action, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, p.mapError(action, httpResp.StatusCode, data)
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("identity: failed to decode %s response: %w", action, err)
	}
	return &resp, nil
}

// mapError converts the provider's error body to a sentinel error where the
// code is recognized.
func (p *HTTPProvider) mapError(action string, status int, body []byte) error {
	var perr providerError
	if err := json.Unmarshal(body, &perr); err != nil || perr.Error.Message == "" {
		return fmt.Errorf("identity: %s failed with status %d", action, status)
	}

	code := perr.Error.Message
	// Codes may carry a trailing detail, e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		code = code[:idx]
	}

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ErrInvalidCredentials
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	case "USER_DISABLED":
		return ErrUserDisabled
	default:
		p.log.Debug("Unrecognized provider error code", "action", action, "code", code)
		return fmt.Errorf("identity: %s failed: %s", action, perr.Error.Message)
	}
}
