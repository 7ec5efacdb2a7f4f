package dom

import "errors"

var (
	// ErrLoopClosed is returned when work is posted to a loop that has stopped.
	ErrLoopClosed = errors.New("event loop is closed")

	// ErrNotChild is returned when a reference node is not a child of the given parent.
	ErrNotChild = errors.New("node is not a child of the given parent")
)
