package kvs

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists keys on the local filesystem. It is the standing
// replacement for browser localStorage: per-user, survives restarts, and
// needs no server.
//
// Values are stored with an 8-byte big-endian expiration header
// (unix nanos, 0 = never) so TTLs survive process restarts.
type LevelDBStore struct {
	mu     sync.RWMutex
	prefix string
	db     *leveldb.DB
	closed bool
}

// NewLevelDBStore opens (or creates) the database directory.
func NewLevelDBStore(namespace string, cfg LevelDBConfig) (*LevelDBStore, error) {
	path := cfg.Path
	if path == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		path = filepath.Join(base, "authkit", "state")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: failed to create directory: %w", err)
	}

	opts := &opt.Options{NoSync: !cfg.SyncWrites}
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		if _, corrupted := err.(*lderrors.ErrCorrupted); corrupted {
			db, err = leveldb.RecoverFile(path, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("kvs/leveldb: failed to open %s: %w", path, err)
		}
	}

	return &LevelDBStore{
		prefix: namespacePrefix(namespace),
		db:     db,
	}, nil
}

func encodeEntry(value []byte, ttl time.Duration) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}

	encoded := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(encoded[:8], uint64(expiresAt))
	copy(encoded[8:], value)
	return encoded
}

// decodeEntry splits the expiration header off and reports expiry.
func decodeEntry(encoded []byte) (value []byte, expired bool, err error) {
	if len(encoded) < 8 {
		return nil, false, fmt.Errorf("kvs/leveldb: malformed entry (%d bytes)", len(encoded))
	}

	expiresAt := int64(binary.BigEndian.Uint64(encoded[:8]))
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		return nil, true, nil
	}
	return encoded[8:], false, nil
}

func (l *LevelDBStore) checkClosed() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// Get retrieves a value by key.
func (l *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := l.checkClosed(); err != nil {
		return nil, err
	}

	encoded, err := l.db.Get([]byte(l.prefix+key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kvs/leveldb: get failed: %w", err)
	}

	value, expired, err := decodeEntry(encoded)
	if err != nil {
		return nil, err
	}
	if expired {
		_ = l.db.Delete([]byte(l.prefix+key), nil)
		return nil, ErrNotFound
	}
	return value, nil
}

// Set stores a value with optional TTL.
func (l *LevelDBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := l.checkClosed(); err != nil {
		return err
	}

	if err := l.db.Put([]byte(l.prefix+key), encodeEntry(value, ttl), nil); err != nil {
		return fmt.Errorf("kvs/leveldb: set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (l *LevelDBStore) Delete(ctx context.Context, key string) error {
	if err := l.checkClosed(); err != nil {
		return err
	}

	if err := l.db.Delete([]byte(l.prefix+key), nil); err != nil && err != leveldb.ErrNotFound {
		return fmt.Errorf("kvs/leveldb: delete failed: %w", err)
	}
	return nil
}

// Exists reports whether a key exists and has not expired.
func (l *LevelDBStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := l.checkClosed(); err != nil {
		return false, err
	}

	encoded, err := l.db.Get([]byte(l.prefix+key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("kvs/leveldb: exists check failed: %w", err)
	}

	_, expired, err := decodeEntry(encoded)
	if err != nil {
		return false, err
	}
	return !expired, nil
}

// Keys returns all live keys matching a prefix.
func (l *LevelDBStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := l.checkClosed(); err != nil {
		return nil, err
	}

	iter := l.db.NewIterator(util.BytesPrefix([]byte(l.prefix+prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		_, expired, err := decodeEntry(iter.Value())
		if err != nil || expired {
			continue
		}
		keys = append(keys, strings.TrimPrefix(string(iter.Key()), l.prefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: iteration failed: %w", err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (l *LevelDBStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.closed = true

	if err := l.db.Close(); err != nil {
		return fmt.Errorf("kvs/leveldb: close failed: %w", err)
	}
	return nil
}
