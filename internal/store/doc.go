// Package store persists blockphrase settings and the cached phrase
// embedding in a small key-value store.
//
// KV is the raw string store. Three backends are provided:
//   - SQLiteKV: a single-file database under the XDG data directory (default)
//   - RedisKV: a Redis hash, for sharing settings between machines
//   - MemoryKV: an in-process map used by tests
//
// Storage wraps a KV and converts between stored strings and the typed
// model.Settings and model.CachedEmbedding values.
package store
