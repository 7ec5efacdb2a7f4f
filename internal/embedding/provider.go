package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// ProviderOpenAI selects the OpenAI embeddings endpoint.
	ProviderOpenAI = "openai"

	// ProviderOllama selects a local or remote Ollama server.
	ProviderOllama = "ollama"

	// DefaultOpenAIModel is the model the blocked phrase and text blocks are embedded with.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOllamaModel is used when the Ollama provider is selected without a model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaHost is the address Ollama listens on out of the box.
	DefaultOllamaHost = "http://localhost:11434"

	// defaultHTTPTimeout bounds a single request when the caller's context
	// carries no deadline.
	defaultHTTPTimeout = 120 * time.Second
)

// Provider converts text into an embedding vector.
type Provider interface {
	// Embed returns the embedding of text, authenticating with credential.
	// Failures reported by the service are returned as *ServiceError.
	Embed(ctx context.Context, text, credential string) ([]float64, error)

	// Name returns the provider identifier used in logs and reports.
	Name() string

	// Model returns the embedding model the vectors come from. Vectors of
	// different models are not comparable.
	Model() string
}

// options holds settings shared by all providers.
type options struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a provider.
type Option func(*options)

// WithBaseURL overrides the service address.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel selects the embedding model.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func newOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the provider registered under name.
func New(name string, opts ...Option) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI, "":
		return NewOpenAI(opts...), nil
	case ProviderOllama:
		return NewOllama(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
