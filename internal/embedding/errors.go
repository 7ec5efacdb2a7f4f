package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var (
	// ErrEmbeddingService matches every *ServiceError.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrEmptyInput is returned when asked to embed blank text.
	// No request is sent in that case.
	ErrEmptyInput = errors.New("embedding input is empty")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Reason classifies why an embedding request failed.
type Reason int

const (
	// ReasonUnknown is used when the failure could not be classified.
	ReasonUnknown Reason = iota

	// ReasonUnauthorized means the credential was missing, invalid or revoked.
	ReasonUnauthorized

	// ReasonQuotaExceeded means the account has run out of quota or credit.
	ReasonQuotaExceeded

	// ReasonRateLimited means the request was throttled.
	ReasonRateLimited

	// ReasonMalformedResponse means the service answered but the payload
	// did not contain a usable vector.
	ReasonMalformedResponse

	// ReasonUpstream covers other non-success HTTP statuses.
	ReasonUpstream

	// ReasonTransport means the request never got a response.
	ReasonTransport

	// ReasonTimeout means the request was abandoned because its context ended.
	ReasonTimeout
)

// String returns a short name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonQuotaExceeded:
		return "quota exceeded"
	case ReasonRateLimited:
		return "rate limited"
	case ReasonMalformedResponse:
		return "malformed response"
	case ReasonUpstream:
		return "upstream error"
	case ReasonTransport:
		return "transport error"
	case ReasonTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ServiceError describes a failed call to an embedding service.
type ServiceError struct {
	// Provider is the name of the provider that made the call.
	Provider string

	// Reason classifies the failure.
	Reason Reason

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is the human-readable message reported by the service, if any.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s embedding failed (%s", e.Provider, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += ")"
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEmbeddingService.
func (e *ServiceError) Is(target error) bool {
	return target == ErrEmbeddingService
}

// reasonForStatus maps an HTTP status (and the provider's error code, when
// one is available) to a Reason.
func reasonForStatus(status int, code string) Reason {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ReasonUnauthorized
	case http.StatusPaymentRequired:
		return ReasonQuotaExceeded
	case http.StatusTooManyRequests:
		if code == "insufficient_quota" {
			return ReasonQuotaExceeded
		}
		return ReasonRateLimited
	default:
		return ReasonUpstream
	}
}

// reasonForError classifies errors that carry no HTTP status.
func reasonForError(err error) Reason {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var urlErr *url.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return ReasonMalformedResponse
	case errors.As(err, &urlErr):
		return ReasonTransport
	default:
		return ReasonUnknown
	}
}
