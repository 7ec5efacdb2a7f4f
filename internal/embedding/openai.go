package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nao1215/blockphrase/internal/similarity"
)

// OpenAI embeds text with the OpenAI embeddings endpoint.
type OpenAI struct {
	options

	// mu guards the cached client below.
	mu sync.Mutex

	// credential is the key the cached client was built with.
	credential string

	// client is rebuilt only when the credential changes.
	client *openai.Client
}

// NewOpenAI creates an OpenAI provider. The credential is supplied per call.
func NewOpenAI(opts ...Option) *OpenAI {
	o := newOptions(opts)
	if o.model == "" {
		o.model = DefaultOpenAIModel
	}
	return &OpenAI{options: o}
}

// Name returns "openai".
func (p *OpenAI) Name() string {
	return ProviderOpenAI
}

// Model returns the configured embedding model.
func (p *OpenAI) Model() string {
	return p.model
}

// Embed requests a float-encoded embedding for text.
func (p *OpenAI) Embed(ctx context.Context, text, credential string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := p.clientFor(credential).CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(p.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &ServiceError{
			Provider: p.Name(),
			Reason:   ReasonMalformedResponse,
			Message:  "response contained no embedding",
		}
	}

	return similarity.ToFloat64(resp.Data[0].Embedding), nil
}

// clientFor returns a client authenticated with credential.
func (p *OpenAI) clientFor(credential string) *openai.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.credential == credential {
		return p.client
	}

	cfg := openai.DefaultConfig(credential)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	cfg.HTTPClient = p.httpClient

	p.client = openai.NewClientWithConfig(cfg)
	p.credential = credential
	return p.client
}

// wrapError converts a go-openai error into a *ServiceError.
func (p *OpenAI) wrapError(err error) error {
	se := &ServiceError{Provider: p.Name(), Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		se.StatusCode = apiErr.HTTPStatusCode
		se.Message = apiErr.Message
		se.Reason = reasonForStatus(apiErr.HTTPStatusCode, fmt.Sprint(apiErr.Code))
	case errors.As(err, &reqErr):
		se.StatusCode = reqErr.HTTPStatusCode
		se.Reason = reasonForStatus(reqErr.HTTPStatusCode, "")
	default:
		se.Reason = reasonForError(err)
	}

	return se
}
