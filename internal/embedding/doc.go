// Package embedding turns text into numeric vectors by calling an external
// embedding service.
//
// Two providers are available: OpenAI (via github.com/sashabaranov/go-openai)
// and Ollama (plain JSON over HTTP). Both make exactly one outbound request
// per Embed call. Nothing is cached or retried here; callers that embed the
// same long-lived text repeatedly (the blocked phrase) keep their own cache.
//
// Every upstream failure is reported as a *ServiceError that matches
// ErrEmbeddingService with errors.Is, so callers can tell "the service said
// no" apart from programming errors without inspecting provider details.
package embedding
