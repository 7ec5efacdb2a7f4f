package pipeline

import "errors"

var (
	// ErrNoPage is returned by a step that needs a loaded page when none is set.
	ErrNoPage = errors.New("no page loaded")

	// ErrNoOutput is returned by WriteStep when nothing was rendered.
	ErrNoOutput = errors.New("no output to write")
)
