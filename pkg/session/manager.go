package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/clearpath-immigration/authkit/pkg/kvs"
	"github.com/clearpath-immigration/authkit/pkg/logging"
	"github.com/clearpath-immigration/authkit/pkg/user"
)

// Manager is the single owner of session state. All mutations go through it;
// the rest of the application only reads snapshots. A mutex serializes
// writers, so a durable write and its in-memory update are atomic from the
// caller's point of view.
//
// Durable writes are best-effort: a storage failure is logged and the
// in-memory state still updates, so a broken disk degrades to a
// per-process session rather than a login failure.
type Manager struct {
	mu    sync.Mutex
	store kvs.Store
	log   logging.Logger
	now   func() time.Time

	state Session
	phase Phase
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Tests use this to place "now"
// relative to stored timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager backed by the given durable store.
func NewManager(store kvs.Store, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   log.WithModule("session"),
		now:   time.Now,
		phase: PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	s := m.state
	if m.state.User != nil {
		u := *m.state.User
		s.User = &u
	}
	return s
}

// Phase returns the bootstrapper's current state.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// SetAuth establishes a session: persists user, both tokens and the current
// time to the durable store, then marks the in-memory state authenticated.
func (m *Manager) SetAuth(ctx context.Context, u *user.User, accessToken, refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(u)
	if err != nil {
		m.log.Error("Failed to serialize user for persistence", "error", err)
	} else {
		m.persist(ctx, KeyUser, raw)
	}
	m.persist(ctx, KeyAccessToken, []byte(accessToken))
	m.persist(ctx, KeyRefreshToken, []byte(refreshToken))
	m.persist(ctx, KeyAuthTimestamp, []byte(strconv.FormatInt(m.now().UnixMilli(), 10)))

	m.state = Session{
		User:            u,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		IsAuthenticated: true,
		IsLoading:       false,
	}
}

// SetUser replaces only the user record, in memory and in the durable
// store. Tokens and the auth timestamp are untouched. Used after profile
// edits.
func (m *Manager) SetUser(ctx context.Context, u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(u)
	if err != nil {
		m.log.Error("Failed to serialize user for persistence", "error", err)
	} else {
		m.persist(ctx, KeyUser, raw)
	}
	m.state.User = u
}

// SetTokens replaces only the token fields after a forced re-issuance.
// The auth timestamp keeps its original value: a refresh does not extend
// the session's lifetime.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.persist(ctx, KeyAccessToken, []byte(accessToken))
	m.persist(ctx, KeyRefreshToken, []byte(refreshToken))
	m.state.AccessToken = accessToken
	m.state.RefreshToken = refreshToken
}

// SetLoading flips the loading flag. The bootstrapper owns this signal.
func (m *Manager) SetLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsLoading = loading
}

// Logout clears the durable keys and resets in-memory state to the
// unauthenticated default. It always succeeds from the caller's point of
// view; storage errors are logged only.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearDurable(ctx)
	m.state = Session{}
	if m.phase != PhaseUninitialized {
		m.phase = PhaseCleared
	}
}

// Init restores a persisted session, once per process. It reads the four
// durable keys, applies the expiry policy and lands in PhaseRestored or
// PhaseCleared. Re-invoking after completion is a no-op and returns the
// terminal phase reached the first time.
func (m *Manager) Init(ctx context.Context) Phase {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseRestored || m.phase == PhaseCleared {
		return m.phase
	}

	m.phase = PhaseRestoring
	m.state.IsLoading = true

	accessToken, okAccess := m.read(ctx, KeyAccessToken)
	refreshToken, okRefresh := m.read(ctx, KeyRefreshToken)
	rawUser, okUser := m.read(ctx, KeyUser)
	timestamp, _ := m.read(ctx, KeyAuthTimestamp)

	if !okAccess || !okRefresh || !okUser {
		return m.clearLocked("no stored session")
	}

	if Expired(string(timestamp), m.now()) {
		m.clearDurable(ctx)
		return m.clearLocked("stored session expired")
	}

	var u user.User
	if err := json.Unmarshal(rawUser, &u); err != nil {
		// A corrupt user record is treated the same as no session.
		m.log.Debug("Stored user record failed to deserialize", "error", err)
		return m.clearLocked("stored user unreadable")
	}

	m.state = Session{
		User:            &u,
		AccessToken:     string(accessToken),
		RefreshToken:    string(refreshToken),
		IsAuthenticated: true,
		IsLoading:       false,
	}
	m.phase = PhaseRestored
	m.log.Info("Session restored", "email", u.Email, "role", u.Role)
	return m.phase
}

// read fetches a durable key, mapping absence to ok=false. Read errors are
// logged and treated as absence, never escalated.
func (m *Manager) read(ctx context.Context, key string) ([]byte, bool) {
	value, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvs.ErrNotFound) {
			m.log.Warn("Failed to read durable key", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (m *Manager) persist(ctx context.Context, key string, value []byte) {
	if err := m.store.Set(ctx, key, value, 0); err != nil {
		m.log.Warn("Failed to persist durable key", "key", key, "error", err)
	}
}

func (m *Manager) clearDurable(ctx context.Context) {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyAuthTimestamp} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn("Failed to clear durable key", "key", key, "error", err)
		}
	}
}

func (m *Manager) clearLocked(reason string) Phase {
	m.state = Session{}
	m.phase = PhaseCleared
	m.log.Debug("Session cleared", "reason", reason)
	return m.phase
}
