package store

import "errors"

var (
	// ErrUnknownBackend is returned when the configured backend name is not supported.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("storage is closed")

	// ErrCorruptValue is returned when a stored value cannot be decoded.
	ErrCorruptValue = errors.New("stored value is corrupt")
)
