package kvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errContains string
	}{
		{
			name:   "empty type defaults to memory",
			config: Config{},
		},
		{
			name:   "memory store explicitly",
			config: Config{Type: "memory"},
		},
		{
			name: "leveldb store",
			config: Config{
				Type:    "leveldb",
				LevelDB: LevelDBConfig{Path: t.TempDir() + "/db"},
			},
		},
		{
			name:        "unsupported store type",
			config:      Config{Type: "postgres"},
			expectError: true,
			errContains: "unsupported store type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.config)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.NoError(t, store.Close())
		})
	}
}
