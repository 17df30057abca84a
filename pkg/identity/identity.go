// Package identity wraps the external identity provider: password
// verification, one-time token exchange, federated sign-in and token
// re-issuance. The rest of authkit only sees opaque bearer tokens.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials means the provider rejected the email/password
	// pair (unknown account or wrong password; the provider does not say
	// which).
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrTooManyAttempts means the provider is rate limiting sign-in
	// attempts for this account.
	ErrTooManyAttempts = errors.New("identity: too many attempts")

	// ErrUserDisabled means the account has been disabled by an
	// administrator.
	ErrUserDisabled = errors.New("identity: account disabled")
)

// FederatedResult is what a federated sign-in yields: a provider token plus
// the identity attributes the backend sync endpoint wants.
type FederatedResult struct {
	Token       string
	Email       string
	DisplayName string
	PhotoURL    string
	IsNewUser   bool
}

// Provider is the identity-provider port. Implementations must map their
// own error shapes to the sentinel errors above where applicable.
type Provider interface {
	// SignInWithPassword verifies an email/password pair and returns a
	// bearer token.
	SignInWithPassword(ctx context.Context, email, password string) (string, error)

	// SignInWithToken exchanges a one-time sign-in token (issued by the
	// backend during registration) for a bearer token.
	SignInWithToken(ctx context.Context, signInToken string) (string, error)

	// SignInWithIDToken exchanges a federated identity's ID token for a
	// provider bearer token.
	SignInWithIDToken(ctx context.Context, idToken string) (*FederatedResult, error)

	// Refresh forces re-issuance of a token so it reflects claims the
	// backend may have assigned since the token was minted.
	Refresh(ctx context.Context, token string) (string, error)

	// SignOut revokes the token provider-side. Best-effort.
	SignOut(ctx context.Context, token string) error
}
