// Package auth implements the credential-exchange flows: password login,
// registration, federated Google login and logout. Each flow adapts the
// identity provider and the backend to the uniform session shape; the
// session is persisted only when the whole sequence succeeded.
package auth

import (
	"context"
	"errors"

	"github.com/clearpath-immigration/authkit/pkg/api"
	"github.com/clearpath-immigration/authkit/pkg/auth/google"
	"github.com/clearpath-immigration/authkit/pkg/identity"
	"github.com/clearpath-immigration/authkit/pkg/logging"
	"github.com/clearpath-immigration/authkit/pkg/session"
	"github.com/clearpath-immigration/authkit/pkg/user"
)

// ConsentFlow runs an interactive federated sign-in and returns the external
// provider's ID token. *google.Launcher is the production implementation.
type ConsentFlow interface {
	Authorize(ctx context.Context) (string, error)
}

// Result is the outcome of a successful entry flow.
type Result struct {
	User      *user.User
	Token     string
	IsNewUser bool
}

// Service is the credential exchange client.
type Service struct {
	provider identity.Provider
	backend  *api.Client
	sessions *session.Manager
	consent  ConsentFlow
	log      logging.Logger
}

// NewService wires the credential exchange client. consent may be nil if
// federated login is not configured; LoginWithGoogle then fails with
// KindConsentBlocked.
func NewService(provider identity.Provider, backend *api.Client, sessions *session.Manager, consent ConsentFlow, log logging.Logger) *Service {
	return &Service{
		provider: provider,
		backend:  backend,
		sessions: sessions,
		consent:  consent,
		log:      log.WithModule("auth"),
	}
}

// LoginWithPassword signs in with an email/password pair.
//
// Sequence: provider password sign-in, backend login sync (which may assign
// role claims server-side), then a forced token re-issuance so the session
// token carries those claims. The session is persisted only after all three
// steps succeeded.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*Result, error) {
	token, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, s.mapProviderError(err)
	}

	u, err := s.backend.LoginSync(ctx, token)
	if err != nil {
		s.log.Warn("Backend login sync failed", "error", err)
		return nil, newError(KindBackendSyncFailed, backendMessage(err, msgBackendSyncFailed), err)
	}

	fresh, err := s.provider.Refresh(ctx, token)
	if err != nil {
		s.log.Warn("Token re-issuance after login failed", "error", err)
		return nil, newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}

	s.sessions.SetAuth(ctx, u, fresh, fresh)
	s.log.Info("Password login succeeded", "email", u.Email, "role", u.Role)
	return &Result{User: u, Token: fresh}, nil
}

// Register creates an account. The backend creates the identity-provider
// account server-side so validation and role assignment happen before any
// credential exists; the client only exchanges the returned one-time token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.backend.Register(ctx, input.request())
	if err != nil {
		return nil, s.mapRegisterError(err)
	}

	token, err := s.provider.SignInWithToken(ctx, resp.CustomToken)
	if err != nil {
		s.log.Warn("Sign-in token exchange failed", "error", err)
		return nil, newError(KindRegistrationFailed, msgRegistrationFailed, err)
	}

	fresh, err := s.provider.Refresh(ctx, token)
	if err != nil {
		s.log.Warn("Token re-issuance after registration failed", "error", err)
		return nil, newError(KindRegistrationFailed, msgRegistrationFailed, err)
	}

	s.sessions.SetAuth(ctx, resp.User, fresh, fresh)
	s.log.Info("Registration succeeded", "email", resp.User.Email)
	return &Result{User: resp.User, Token: fresh}, nil
}

// LoginWithGoogle signs in via the federated consent flow, syncs the
// federated identity with the backend, then forces a token re-issuance
// exactly as password login does.
func (s *Service) LoginWithGoogle(ctx context.Context) (*Result, error) {
	if s.consent == nil {
		return nil, newError(KindConsentBlocked, msgConsentBlocked, nil)
	}

	idToken, err := s.consent.Authorize(ctx)
	if err != nil {
		return nil, s.mapConsentError(err)
	}

	fed, err := s.provider.SignInWithIDToken(ctx, idToken)
	if err != nil {
		s.log.Warn("Federated token exchange failed", "error", err)
		return nil, newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}

	u, err := s.backend.GoogleSync(ctx, fed.Token, api.GoogleSyncRequest{
		Email:       fed.Email,
		DisplayName: fed.DisplayName,
		PhotoURL:    fed.PhotoURL,
		IsNewUser:   fed.IsNewUser,
	})
	if err != nil {
		s.log.Warn("Backend google sync failed", "error", err)
		return nil, newError(KindBackendSyncFailed, backendMessage(err, msgBackendSyncFailed), err)
	}

	fresh, err := s.provider.Refresh(ctx, fed.Token)
	if err != nil {
		s.log.Warn("Token re-issuance after federated login failed", "error", err)
		return nil, newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}

	s.sessions.SetAuth(ctx, u, fresh, fresh)
	s.log.Info("Federated login succeeded", "email", u.Email, "new_user", fed.IsNewUser)
	return &Result{User: u, Token: fresh, IsNewUser: fed.IsNewUser}, nil
}

// Logout signs out provider-side and notifies the backend, both
// best-effort. The local session is always cleared, even when every remote
// call fails: the user must be able to leave an authenticated state with
// the server unreachable.
func (s *Service) Logout(ctx context.Context) {
	snap := s.sessions.Snapshot()

	if snap.AccessToken != "" {
		if err := s.provider.SignOut(ctx, snap.AccessToken); err != nil {
			s.log.Warn("Provider sign-out failed, clearing local session anyway", "error", err)
		}
		if err := s.backend.Logout(ctx, snap.AccessToken); err != nil {
			s.log.Warn("Backend logout failed, clearing local session anyway", "error", err)
		}
	}

	s.sessions.Logout(ctx)
	s.log.Info("Logged out")
}

// CurrentUser fetches the canonical user record for the active session.
func (s *Service) CurrentUser(ctx context.Context) (*user.User, error) {
	snap := s.sessions.Snapshot()
	if !snap.IsAuthenticated {
		return nil, errors.New("auth: not signed in")
	}

	u, err := s.backend.Me(ctx, snap.AccessToken)
	if err != nil {
		return nil, newError(KindBackendSyncFailed, backendMessage(err, msgBackendSyncFailed), err)
	}
	return u, nil
}

// RefreshProfile re-fetches the user record and stores it in the session.
// Tokens and the auth timestamp are untouched.
func (s *Service) RefreshProfile(ctx context.Context) (*user.User, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions.SetUser(ctx, u)
	return u, nil
}

// RefreshToken forces a token re-issuance for the active session and stores
// the fresh token. Used when the backend signals a claims change outside a
// login flow.
func (s *Service) RefreshToken(ctx context.Context) error {
	snap := s.sessions.Snapshot()
	if !snap.IsAuthenticated {
		return errors.New("auth: not signed in")
	}

	fresh, err := s.provider.Refresh(ctx, snap.AccessToken)
	if err != nil {
		return newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}
	s.sessions.SetTokens(ctx, fresh, fresh)
	return nil
}

func (s *Service) mapProviderError(err error) *Error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return newError(KindInvalidCredentials, msgInvalidCredentials, err)
	case errors.Is(err, identity.ErrTooManyAttempts):
		return newError(KindRateLimited, msgRateLimited, err)
	case errors.Is(err, identity.ErrUserDisabled):
		return newError(KindAccountDisabled, msgAccountDisabled, err)
	default:
		s.log.Warn("Provider sign-in failed", "error", err)
		return newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}
}

func (s *Service) mapRegisterError(err error) *Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return validationError(apiErr.Fields, apiErr.FieldMessages(), err)
	}
	s.log.Warn("Backend registration failed", "error", err)
	return newError(KindRegistrationFailed, backendMessage(err, msgRegistrationFailed), err)
}

func (s *Service) mapConsentError(err error) *Error {
	switch {
	case errors.Is(err, google.ErrCancelled):
		return newError(KindConsentCancelled, msgConsentCancelled, err)
	case errors.Is(err, google.ErrBlocked):
		return newError(KindConsentBlocked, msgConsentBlocked, err)
	default:
		s.log.Warn("Consent flow failed", "error", err)
		return newError(KindBackendSyncFailed, msgBackendSyncFailed, err)
	}
}

// backendMessage prefers the backend's own error message over the fixed
// fallback.
func backendMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
