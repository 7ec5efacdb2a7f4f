package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "blockphrase"

	// DefaultMode compares embeddings.
	DefaultMode = "semantic"

	// DefaultProvider is the embedding service.
	DefaultProvider = "openai"

	// DefaultModel is the OpenAI embedding model.
	DefaultModel = "text-embedding-3-small"

	// DefaultMinCharacters is the shortest text block that is matched.
	DefaultMinCharacters = 30

	// DefaultMinSimilarity is the cosine similarity at which a block is hidden.
	DefaultMinSimilarity = 0.20

	// DefaultStore keeps settings in SQLite under the XDG data directory.
	DefaultStore = "sqlite"

	// DefaultConcurrency is the number of embedding requests in flight per page.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of pages processed at once.
	DefaultBatchSize = 4

	// DefaultRequestTimeout bounds one embedding request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultTimeout bounds one page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits the page size read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSelector scans the whole body.
	DefaultSelector = "body"

	// DefaultUserAgent is sent when fetching pages.
	DefaultUserAgent = "blockphrase/1.0 (+https://github.com/nao1215/blockphrase)"
)

// Config holds all configuration options for blockphrase.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// Mode is "semantic" (embeddings) or "literal" (blocked words).
	Mode string

	// Provider is the embedding service: "openai" or "ollama".
	Provider string

	// Model is the embedding model name. Empty means the provider default.
	Model string

	// BaseURL overrides the embedding service endpoint.
	BaseURL string

	// MinCharacters is the shortest own text, in characters, that is matched.
	MinCharacters int

	// MinSimilarity is the inclusive similarity threshold for hiding a block.
	MinSimilarity float64

	// Store is the settings backend: "sqlite", "redis" or "memory".
	Store string

	// DBDir is the directory holding the SQLite settings database.
	// Defaults to the XDG data directory (~/.local/share/blockphrase on Linux).
	DBDir string

	// RedisURL is the redis:// URL used by the redis store.
	RedisURL string

	// Concurrency limits embedding requests in flight per page.
	Concurrency int

	// BatchSize is the number of pages processed concurrently.
	BatchSize int

	// RequestTimeout bounds each embedding request. A request that times
	// out counts as a failed attempt.
	RequestTimeout time.Duration

	// Timeout bounds each page fetch.
	Timeout time.Duration

	// MaxBodySize is the maximum page size in bytes. 0 uses the default.
	MaxBodySize int64

	// Selector is the CSS selector of the scan root.
	Selector string

	// ProxyAddress routes page fetches through a SOCKS5 proxy (host:port).
	ProxyAddress string

	// UserAgent is sent when fetching pages.
	UserAgent string

	// Verbose enables debug logging, including one record per text block.
	Verbose bool

	// Targets are the pages to redact: file paths, URLs or "-".
	Targets []string

	// OutputDir receives redacted pages. Empty writes a single page to stdout.
	OutputDir string

	// ReportFile is the report output path. Empty writes to stderr.
	ReportFile string

	// JSONReport writes the report as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the report as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .blockphrase in the current directory and then in
	// the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Mode:           DefaultMode,
		Provider:       DefaultProvider,
		MinCharacters:  DefaultMinCharacters,
		MinSimilarity:  DefaultMinSimilarity,
		Store:          DefaultStore,
		DBDir:          XDGDataDir(),
		Concurrency:    DefaultConcurrency,
		BatchSize:      DefaultBatchSize,
		RequestTimeout: DefaultRequestTimeout,
		Timeout:        DefaultTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		Selector:       DefaultSelector,
		UserAgent:      DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for blockphrase.
// On Linux: ~/.local/share/blockphrase
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for blockphrase.
// On Linux: ~/.config/blockphrase
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for blockphrase.
// On Linux: ~/.cache/blockphrase
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ValidateSettings checks everything except the targets. The options
// command uses it, since it opens the store but redacts nothing.
func (c *Config) ValidateSettings() error {
	switch c.Mode {
	case "semantic", "literal":
	default:
		return ErrInvalidMode
	}

	switch c.Provider {
	case "openai", "ollama":
	default:
		return ErrInvalidProvider
	}

	switch c.Store {
	case "sqlite", "memory":
	case "redis":
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return ErrInvalidStore
	}

	if c.MinCharacters < 0 {
		return ErrInvalidMinCharacters
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return ErrInvalidMinSimilarity
	}
	if c.Timeout <= 0 || c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// Validate checks the configuration for the redact command and returns the
// first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if len(c.Targets) > 1 && c.OutputDir == "" {
		return ErrOutputDirRequired
	}
	return c.ValidateSettings()
}
