package classifier

import "errors"

var (
	// ErrConfigMissing is returned by Start when the blocked phrase or the
	// credential (or the word list in literal mode) is not configured.
	ErrConfigMissing = errors.New("blocked phrase or credential not set")

	// ErrDisabled is returned by Start when redaction is switched off.
	ErrDisabled = errors.New("blocking is disabled")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("orchestrator already started")

	// ErrNoLoop is returned when the document is not bound to an event loop.
	ErrNoLoop = errors.New("document has no event loop")

	// ErrUnknownMode is returned for a mode other than semantic or literal.
	ErrUnknownMode = errors.New("unknown matching mode")
)
