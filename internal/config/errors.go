package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no page is given to the redact command.
	ErrNoTarget = errors.New("no target specified: provide a file, URL or -")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the request concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMinCharacters is returned when the minimum block length is negative.
	ErrInvalidMinCharacters = errors.New("invalid min characters: must be non-negative")

	// ErrInvalidMinSimilarity is returned when the similarity threshold is outside [-1, 1].
	ErrInvalidMinSimilarity = errors.New("invalid min similarity: must be between -1 and 1")

	// ErrInvalidMode is returned for a matching mode other than semantic or literal.
	ErrInvalidMode = errors.New("invalid mode: must be semantic or literal")

	// ErrInvalidProvider is returned for an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid provider: must be openai or ollama")

	// ErrInvalidStore is returned for an unsupported storage backend.
	ErrInvalidStore = errors.New("invalid store: must be sqlite, redis or memory")

	// ErrMissingRedisURL is returned when the redis store is selected without a URL.
	ErrMissingRedisURL = errors.New("redis store requires --redis-url")

	// ErrOutputDirRequired is returned when several pages would be written to stdout.
	ErrOutputDirRequired = errors.New("several targets require --output directory")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrAPIKeyNotFound is returned when no API key is found in the environment.
	ErrAPIKeyNotFound = errors.New("OPENAI_API_KEY not found in environment or .env file")
)
