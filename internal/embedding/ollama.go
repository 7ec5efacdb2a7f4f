package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/blockphrase/internal/similarity"
)

// Ollama embeds text with an Ollama server's /api/embed endpoint.
type Ollama struct {
	options
}

// ollamaRequest is the request body for /api/embed.
type ollamaRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaResponse is the response body for /api/embed.
type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewOllama creates an Ollama provider.
func NewOllama(opts ...Option) *Ollama {
	o := newOptions(opts)
	if o.baseURL == "" {
		o.baseURL = DefaultOllamaHost
	}
	if o.model == "" {
		o.model = DefaultOllamaModel
	}
	return &Ollama{options: o}
}

// Name returns "ollama".
func (p *Ollama) Name() string {
	return ProviderOllama
}

// Model returns the configured embedding model.
func (p *Ollama) Model() string {
	return p.model
}

// Embed returns the embedding vector for text. A non-empty credential is
// sent as a bearer token, for Ollama instances behind an authenticating proxy.
func (p *Ollama) Embed(ctx context.Context, text, credential string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(ollamaRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Provider: p.Name(), Reason: reasonForError(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Provider: p.Name(), Reason: ReasonTransport, StatusCode: resp.StatusCode, Err: err}
	}

	var result ollamaResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK {
		se := &ServiceError{
			Provider:   p.Name(),
			Reason:     reasonForStatus(resp.StatusCode, ""),
			StatusCode: resp.StatusCode,
			Message:    result.Error,
		}
		if se.Message == "" {
			se.Message = strings.TrimSpace(string(raw))
		}
		return nil, se
	}

	if decodeErr != nil {
		return nil, &ServiceError{Provider: p.Name(), Reason: ReasonMalformedResponse, StatusCode: resp.StatusCode, Err: decodeErr}
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, &ServiceError{
			Provider:   p.Name(),
			Reason:     ReasonMalformedResponse,
			StatusCode: resp.StatusCode,
			Message:    "response contained no embedding",
		}
	}

	return similarity.ToFloat64(result.Embeddings[0]), nil
}
