// Package session holds the client's durable authentication state: who is
// logged in, their bearer token, and when the session was established. State
// lives in memory for the lifetime of the process and is mirrored to a
// kvs.Store so it survives restarts.
package session

import (
	"time"

	"github.com/clearpath-immigration/authkit/pkg/user"
)

// Durable storage keys. Written and cleared as a group by the Manager;
// no other component touches them.
const (
	KeyAccessToken   = "accessToken"
	KeyRefreshToken  = "refreshToken"
	KeyUser          = "user"
	KeyAuthTimestamp = "authTimestamp"
)

// TTL is the fixed lifetime of a persisted session. A session older than
// this is invalidated at bootstrap, never silently extended.
const TTL = 7 * 24 * time.Hour

// Session is a read-only snapshot of the current authentication state.
type Session struct {
	User            *user.User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
}

// Phase is the bootstrapper's state.
type Phase int

const (
	// PhaseUninitialized means Init has not run yet.
	PhaseUninitialized Phase = iota
	// PhaseRestoring means Init is reading the durable store.
	PhaseRestoring
	// PhaseRestored means a valid persisted session was loaded.
	PhaseRestored
	// PhaseCleared means no valid persisted session existed.
	PhaseCleared
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseRestored:
		return "restored"
	case PhaseCleared:
		return "cleared"
	default:
		return "unknown"
	}
}
