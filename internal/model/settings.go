package model

// Settings is the user configuration read from persistent storage.
// The classifier only reads it; the options command writes it.
type Settings struct {
	// BlockedPhrase is the phrase whose meaning is hidden from pages.
	BlockedPhrase string `json:"blocked_phrase"`

	// APIKey is the credential for the embedding service.
	APIKey string `json:"-"`

	// ExtensionEnabled turns redaction on or off. It defaults to true when
	// the stored value is missing.
	ExtensionEnabled bool `json:"extension_enabled"`

	// BlockedWords is the word list used in literal mode.
	BlockedWords []string `json:"blocked_words,omitempty"`
}

// CachedEmbedding is the stored vector of the blocked phrase together with
// the phrase and the embedding model it was computed from.
type CachedEmbedding struct {
	Phrase string    `json:"phrase"`
	Model  string    `json:"model"`
	Vector []float64 `json:"vector"`
}

// Stale reports whether the cache must be recomputed for phrase embedded
// with model. A nil cache is always stale, and so is a cache written
// without a model.
func (c *CachedEmbedding) Stale(phrase, model string) bool {
	return c == nil || len(c.Vector) == 0 || c.Phrase != phrase || c.Model == "" || c.Model != model
}

// EmbeddingModelID identifies the vectors produced by model on provider.
func EmbeddingModelID(provider, model string) string {
	return provider + "/" + model
}
