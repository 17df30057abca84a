package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpath-immigration/authkit/pkg/api"
	"github.com/clearpath-immigration/authkit/pkg/auth/google"
	"github.com/clearpath-immigration/authkit/pkg/identity"
	"github.com/clearpath-immigration/authkit/pkg/kvs"
	"github.com/clearpath-immigration/authkit/pkg/logging"
	"github.com/clearpath-immigration/authkit/pkg/session"
)

func testLogger() logging.Logger {
	return logging.NewSimpleLogger("auth-test", logging.LevelError, false)
}

// fakeProvider scripts the identity provider's responses.
type fakeProvider struct {
	signInToken string
	signInErr   error

	customToken string
	customErr   error

	federated    *identity.FederatedResult
	federatedErr error

	refreshToken string
	refreshErr   error

	signOutErr    error
	signOutCalled bool
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (string, error) {
	return f.signInToken, f.signInErr
}

func (f *fakeProvider) SignInWithToken(ctx context.Context, signInToken string) (string, error) {
	return f.customToken, f.customErr
}

func (f *fakeProvider) SignInWithIDToken(ctx context.Context, idToken string) (*identity.FederatedResult, error) {
	return f.federated, f.federatedErr
}

func (f *fakeProvider) Refresh(ctx context.Context, token string) (string, error) {
	return f.refreshToken, f.refreshErr
}

func (f *fakeProvider) SignOut(ctx context.Context, token string) error {
	f.signOutCalled = true
	return f.signOutErr
}

// fakeConsent scripts the federated consent flow.
type fakeConsent struct {
	idToken string
	err     error
}

func (f *fakeConsent) Authorize(ctx context.Context) (string, error) {
	return f.idToken, f.err
}

type fixture struct {
	provider *fakeProvider
	consent  *fakeConsent
	store    kvs.Store
	sessions *session.Manager
	service  *Service
}

func newFixture(t *testing.T, backend http.Handler) *fixture {
	t.Helper()

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	provider := &fakeProvider{}
	consent := &fakeConsent{}
	store := kvs.NewMemoryStore("")
	sessions := session.NewManager(store, testLogger())
	client := api.NewClient(api.Config{BaseURL: server.URL}, testLogger())

	return &fixture{
		provider: provider,
		consent:  consent,
		store:    store,
		sessions: sessions,
		service:  NewService(provider, client, sessions, consent, testLogger()),
	}
}

func userHandler(t *testing.T, path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, path, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{
				"id":    "u-1",
				"email": "amara@example.com",
				"role":  "client",
			},
		})
	})
}

func TestLoginWithPasswordStoresRefreshedToken(t *testing.T) {
	f := newFixture(t, userHandler(t, "/auth/login"))
	f.provider.signInToken = "initial-token"
	f.provider.refreshToken = "refreshed-token"

	result, err := f.service.LoginWithPassword(context.Background(), "amara@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.User.ID)

	// The session must carry the re-issued token, not the pre-sync one:
	// the backend assigns role claims during the sync call.
	assert.Equal(t, "refreshed-token", result.Token)

	snap := f.sessions.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "refreshed-token", snap.AccessToken)
	assert.Equal(t, "refreshed-token", snap.RefreshToken)
}

func TestLoginWithPasswordProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"invalid credentials", identity.ErrInvalidCredentials, KindInvalidCredentials},
		{"rate limited", identity.ErrTooManyAttempts, KindRateLimited},
		{"disabled account", identity.ErrUserDisabled, KindAccountDisabled},
		{"network failure", errors.New("connection refused"), KindBackendSyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, userHandler(t, "/auth/login"))
			f.provider.signInErr = tt.err

			_, err := f.service.LoginWithPassword(context.Background(), "a@b.c", "pw")
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.False(t, f.sessions.Snapshot().IsAuthenticated)
		})
	}
}

func TestLoginBackendFailureLeavesNoSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	f.provider.signInToken = "initial-token"

	_, err := f.service.LoginWithPassword(context.Background(), "a@b.c", "pw")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindBackendSyncFailed, kind)

	// No partial session: neither memory nor the durable store changed.
	assert.False(t, f.sessions.Snapshot().IsAuthenticated)
	keys, kerr := f.store.Keys(context.Background(), "")
	require.NoError(t, kerr)
	assert.Empty(t, keys)
}

func TestLoginRefreshFailureLeavesNoSession(t *testing.T) {
	f := newFixture(t, userHandler(t, "/auth/login"))
	f.provider.signInToken = "initial-token"
	f.provider.refreshErr = errors.New("token endpoint down")

	_, err := f.service.LoginWithPassword(context.Background(), "a@b.c", "pw")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindBackendSyncFailed, kind)
	assert.False(t, f.sessions.Snapshot().IsAuthenticated)
}

func TestRegisterSuccess(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user":        map[string]interface{}{"id": "u-2", "email": "new@example.com"},
			"customToken": "one-time",
		})
	}))
	f.provider.customToken = "exchanged-token"
	f.provider.refreshToken = "refreshed-token"

	result, err := f.service.Register(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "u-2", result.User.ID)
	assert.Equal(t, "refreshed-token", result.Token)
	assert.True(t, f.sessions.Snapshot().IsAuthenticated)
}

func TestRegisterBackendValidationErrors(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": map[string][]string{
				"email":    {"already taken"},
				"password": {"too weak"},
			},
		})
	}))

	_, err := f.service.Register(context.Background(), validInput())
	require.Error(t, err)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindValidationFailed, authErr.Kind)
	assert.Equal(t, "Validation errors: Email: already taken; Password: too weak", authErr.Message)
	assert.False(t, f.sessions.Snapshot().IsAuthenticated)
}

func TestRegisterSingleFieldErrorIsNotPrefixed(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": map[string][]string{"email": {"already taken"}},
		})
	}))

	_, err := f.service.Register(context.Background(), validInput())

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindValidationFailed, authErr.Kind)
	assert.Equal(t, "Email: already taken", authErr.Message)
}

func TestRegisterGenericBackendError(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "temporarily unavailable"})
	}))

	_, err := f.service.Register(context.Background(), validInput())

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindRegistrationFailed, authErr.Kind)
	assert.Equal(t, "temporarily unavailable", authErr.Message)
}

func TestLoginWithGoogle(t *testing.T) {
	var syncBody api.GoogleSyncRequest
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/google", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&syncBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": "u-3", "email": "amara@gmail.com", "role": "client"},
		})
	}))
	f.consent.idToken = "google-id-token"
	f.provider.federated = &identity.FederatedResult{
		Token:       "fed-token",
		Email:       "amara@gmail.com",
		DisplayName: "Amara Okafor",
		PhotoURL:    "https://example.com/p.jpg",
		IsNewUser:   true,
	}
	f.provider.refreshToken = "refreshed-token"

	result, err := f.service.LoginWithGoogle(context.Background())
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.Equal(t, "refreshed-token", result.Token)

	// The sync body mirrors the federated identity.
	assert.Equal(t, "amara@gmail.com", syncBody.Email)
	assert.Equal(t, "Amara Okafor", syncBody.DisplayName)
	assert.True(t, syncBody.IsNewUser)

	assert.Equal(t, "refreshed-token", f.sessions.Snapshot().AccessToken)
}

func TestLoginWithGoogleConsentErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"cancelled", google.ErrCancelled, KindConsentCancelled},
		{"blocked", google.ErrBlocked, KindConsentBlocked},
		{"other failure", errors.New("exchange failed"), KindBackendSyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, userHandler(t, "/auth/google"))
			f.consent.err = tt.err

			_, err := f.service.LoginWithGoogle(context.Background())
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.False(t, f.sessions.Snapshot().IsAuthenticated)
		})
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	tests := []struct {
		name    string
		backend http.HandlerFunc
		signOut error
	}{
		{
			name:    "all remote calls succeed",
			backend: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
		},
		{
			name:    "backend revocation fails",
			backend: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		},
		{
			name:    "provider sign-out fails too",
			backend: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			signOut: errors.New("provider unreachable"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.backend)
			f.provider.signOutErr = tt.signOut
			f.sessions.SetAuth(context.Background(), &userRecord, "tok", "tok")

			f.service.Logout(context.Background())

			snap := f.sessions.Snapshot()
			assert.False(t, snap.IsAuthenticated)
			assert.Nil(t, snap.User)
			assert.Empty(t, snap.AccessToken)
			assert.Empty(t, snap.RefreshToken)

			keys, err := f.store.Keys(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, keys)
			assert.True(t, f.provider.signOutCalled)
		})
	}
}

func TestRefreshTokenUpdatesSession(t *testing.T) {
	f := newFixture(t, userHandler(t, "/auth/me"))
	f.sessions.SetAuth(context.Background(), &userRecord, "old", "old")
	f.provider.refreshToken = "new"

	require.NoError(t, f.service.RefreshToken(context.Background()))
	assert.Equal(t, "new", f.sessions.Snapshot().AccessToken)
}

func TestCurrentUserRequiresSession(t *testing.T) {
	f := newFixture(t, userHandler(t, "/auth/me"))

	_, err := f.service.CurrentUser(context.Background())
	assert.Error(t, err)
}

func TestRefreshProfileUpdatesUserOnly(t *testing.T) {
	f := newFixture(t, userHandler(t, "/auth/me"))
	f.sessions.SetAuth(context.Background(), &userRecord, "tok", "tok")

	u, err := f.service.RefreshProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	snap := f.sessions.Snapshot()
	assert.Equal(t, "u-1", snap.User.ID)
	assert.Equal(t, "tok", snap.AccessToken)
}
