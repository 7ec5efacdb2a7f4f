package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nao1215/blockphrase/internal/model"
)

// Storage reads and writes typed values on top of a KV.
type Storage struct {
	kv KV
}

// New creates a Storage backed by kv.
func New(kv KV) *Storage {
	return &Storage{kv: kv}
}

// Close closes the underlying KV.
func (s *Storage) Close() error {
	return s.kv.Close()
}

// Settings loads the user settings. Missing keys yield zero values, except
// ExtensionEnabled which defaults to true.
func (s *Storage) Settings(ctx context.Context) (model.Settings, error) {
	values, err := s.kv.Get(ctx, KeyBlockedPhrase, KeyAPIKey, KeyExtensionEnabled, KeyBlockedWords)
	if err != nil {
		return model.Settings{}, err
	}

	settings := model.Settings{
		BlockedPhrase:    values[KeyBlockedPhrase],
		APIKey:           values[KeyAPIKey],
		ExtensionEnabled: true,
	}

	if raw, ok := values[KeyExtensionEnabled]; ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return model.Settings{}, fmt.Errorf("%w: %s=%q", ErrCorruptValue, KeyExtensionEnabled, raw)
		}
		settings.ExtensionEnabled = enabled
	}

	if raw, ok := values[KeyBlockedWords]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings.BlockedWords); err != nil {
			return model.Settings{}, fmt.Errorf("%w: %s: %w", ErrCorruptValue, KeyBlockedWords, err)
		}
	}
	return settings, nil
}

// SetBlockedPhrase stores the blocked phrase.
func (s *Storage) SetBlockedPhrase(ctx context.Context, phrase string) error {
	return s.kv.Set(ctx, map[string]string{KeyBlockedPhrase: phrase})
}

// SetAPIKey stores the embedding service credential.
func (s *Storage) SetAPIKey(ctx context.Context, key string) error {
	return s.kv.Set(ctx, map[string]string{KeyAPIKey: key})
}

// SetExtensionEnabled stores the on/off switch.
func (s *Storage) SetExtensionEnabled(ctx context.Context, enabled bool) error {
	return s.kv.Set(ctx, map[string]string{KeyExtensionEnabled: strconv.FormatBool(enabled)})
}

// SetBlockedWords stores the literal-mode word list.
func (s *Storage) SetBlockedWords(ctx context.Context, words []string) error {
	if words == nil {
		words = []string{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("failed to encode blocked words: %w", err)
	}
	return s.kv.Set(ctx, map[string]string{KeyBlockedWords: string(data)})
}

// CachedEmbedding loads the cached phrase vector. It returns nil when either
// the vector or the phrase it belongs to is missing. A missing model leaves
// Model empty, which makes the cache stale.
func (s *Storage) CachedEmbedding(ctx context.Context) (*model.CachedEmbedding, error) {
	values, err := s.kv.Get(ctx, KeyBlockedPhraseEmbedding, KeyEmbeddedBlockedPhrase, KeyEmbeddingModel)
	if err != nil {
		return nil, err
	}

	rawVector, hasVector := values[KeyBlockedPhraseEmbedding]
	phrase, hasPhrase := values[KeyEmbeddedBlockedPhrase]
	if !hasVector || !hasPhrase {
		return nil, nil
	}

	var vector []float64
	if err := json.Unmarshal([]byte(rawVector), &vector); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptValue, KeyBlockedPhraseEmbedding, err)
	}
	return &model.CachedEmbedding{Phrase: phrase, Model: values[KeyEmbeddingModel], Vector: vector}, nil
}

// SaveCachedEmbedding stores the vector, its phrase and its model in one write.
func (s *Storage) SaveCachedEmbedding(ctx context.Context, cache model.CachedEmbedding) error {
	data, err := json.Marshal(cache.Vector)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	return s.kv.Set(ctx, map[string]string{
		KeyBlockedPhraseEmbedding: string(data),
		KeyEmbeddedBlockedPhrase:  cache.Phrase,
		KeyEmbeddingModel:         cache.Model,
	})
}

// ClearCachedEmbedding removes the cached vector.
func (s *Storage) ClearCachedEmbedding(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyBlockedPhraseEmbedding, KeyEmbeddedBlockedPhrase, KeyEmbeddingModel)
}
