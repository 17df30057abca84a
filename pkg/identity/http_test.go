package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpath-immigration/authkit/pkg/logging"
)

func testLogger() logging.Logger {
	return logging.NewSimpleLogger("identity-test", logging.LevelError, false)
}

func newTestProvider(t *testing.T, handler http.Handler) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPProvider(Config{Endpoint: server.URL, APIKey: "test-key"}, testLogger())
}

func TestSignInWithPassword(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "amara@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]string{"idToken": "provider-token"})
	}))

	token, err := provider.SignInWithPassword(context.Background(), "amara@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "provider-token", token)
}

func TestSignInErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"unknown email", "EMAIL_NOT_FOUND", ErrInvalidCredentials},
		{"wrong password", "INVALID_PASSWORD", ErrInvalidCredentials},
		{"combined credential code", "INVALID_LOGIN_CREDENTIALS", ErrInvalidCredentials},
		{"throttled", "TOO_MANY_ATTEMPTS_TRY_LATER", ErrTooManyAttempts},
		{"throttled with detail", "TOO_MANY_ATTEMPTS_TRY_LATER : try again later", ErrTooManyAttempts},
		{"disabled account", "USER_DISABLED", ErrUserDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{"code": 400, "message": tt.code},
				})
			}))

			_, err := provider.SignInWithPassword(context.Background(), "a@b.c", "pw")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignInUnknownErrorCode(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "SOMETHING_NEW"},
		})
	}))

	_, err := provider.SignInWithPassword(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "SOMETHING_NEW")
}

func TestSignInWithIDToken(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signInWithIdp", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"idToken":     "provider-token",
			"email":       "amara@gmail.com",
			"displayName": "Amara Okafor",
			"photoUrl":    "https://example.com/p.jpg",
			"isNewUser":   true,
		})
	}))

	result, err := provider.SignInWithIDToken(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "provider-token", result.Token)
	assert.Equal(t, "amara@gmail.com", result.Email)
	assert.Equal(t, "Amara Okafor", result.DisplayName)
	assert.True(t, result.IsNewUser)
}

func TestRefresh(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:refresh", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"idToken": "fresh-token"})
	}))

	token, err := provider.Refresh(context.Background(), "stale-token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

func TestErrorWithoutProviderBody(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))

	_, err := provider.Refresh(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
