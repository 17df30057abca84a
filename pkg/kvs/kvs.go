// Package kvs abstracts the durable key-value medium that session state is
// mirrored to so it survives application restarts. Backends: Memory (volatile,
// used in tests), LevelDB (local on-disk, the default for a client install)
// and Redis (shared profile).
package kvs

import (
	"context"
	"errors"
	"time"
)

// Store is the key-value port session state is persisted through.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A ttl of 0 means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key exists and has not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns all live keys matching a prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources. Operations after Close return ErrClosed.
	Close() error
}

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("kvs: key not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("kvs: store is closed")
)

// Config selects and configures a backend.
type Config struct {
	// Type is "memory", "leveldb" or "redis". Empty defaults to memory.
	Type string `yaml:"type" json:"type"`

	// Namespace isolates this application's keys from other users of the
	// same medium. Memory and LevelDB treat it as a key prefix inside their
	// own storage; Redis prepends it as "namespace:" to every key.
	Namespace string `yaml:"namespace" json:"namespace"`

	LevelDB LevelDBConfig `yaml:"leveldb" json:"leveldb"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// LevelDBConfig configures the on-disk backend.
type LevelDBConfig struct {
	// Path is the database directory. Empty derives a per-user directory
	// from the OS config dir.
	Path string `yaml:"path" json:"path"`

	// SyncWrites forces fsync on every write. Slower, but session state is
	// tiny and losing it costs the user a re-login.
	SyncWrites bool `yaml:"sync_writes" json:"sync_writes"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// New creates a Store from config.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(cfg.Namespace), nil
	case "leveldb":
		return NewLevelDBStore(cfg.Namespace, cfg.LevelDB)
	case "redis":
		return NewRedisStore(cfg.Namespace, cfg.Redis)
	default:
		return nil, errors.New("kvs: unsupported store type: " + cfg.Type)
	}
}
