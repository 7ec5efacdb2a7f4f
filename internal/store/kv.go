package store

import (
	"context"
	"fmt"
)

// Key names used in the store.
const (
	KeyBlockedPhrase          = "blockedPhrase"
	KeyAPIKey                 = "apiKey"
	KeyExtensionEnabled       = "extensionEnabled"
	KeyBlockedWords           = "blockedWords"
	KeyBlockedPhraseEmbedding = "blockedPhraseEmbedding"
	KeyEmbeddedBlockedPhrase  = "embeddedBlockedPhrase"
	KeyEmbeddingModel         = "embeddedModel"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// KV is a string key-value store.
// Get returns only the keys that exist. Set writes all items or none.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, items map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	// Backend is one of BackendSQLite, BackendRedis or BackendMemory.
	// Empty means BackendSQLite.
	Backend string

	// DBDir is the directory holding the SQLite file.
	DBDir string

	// RedisURL is a redis:// URL.
	RedisURL string
}

// Open opens the backend described by opts.
func Open(ctx context.Context, opts OpenOptions) (KV, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return OpenSQLite(opts.DBDir, DefaultSQLiteOptions())
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}
