package classifier

import (
	"weak"

	"golang.org/x/net/html"
)

type nodeState int

const (
	statePending nodeState = iota + 1
	stateDone
)

// ProcessedSet tracks node identity without keeping nodes alive. It is
// owned by the event loop and is not safe for concurrent use.
type ProcessedSet struct {
	states map[weak.Pointer[html.Node]]nodeState

	// pruneAt is the size at which entries of collected nodes are dropped.
	pruneAt int
}

const minPruneSize = 1024

// NewProcessedSet creates an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{
		states:  make(map[weak.Pointer[html.Node]]nodeState),
		pruneAt: minPruneSize,
	}
}

// Seen reports whether n is pending or done.
func (s *ProcessedSet) Seen(n *html.Node) bool {
	_, ok := s.states[weak.Make(n)]
	return ok
}

// Pending reports whether n was submitted and has not completed.
func (s *ProcessedSet) Pending(n *html.Node) bool {
	return s.states[weak.Make(n)] == statePending
}

// Done reports whether classification of n finished.
func (s *ProcessedSet) Done(n *html.Node) bool {
	return s.states[weak.Make(n)] == stateDone
}

// MarkPending records that n has been submitted.
func (s *ProcessedSet) MarkPending(n *html.Node) {
	s.set(n, statePending)
}

// MarkDone records that n has been classified.
func (s *ProcessedSet) MarkDone(n *html.Node) {
	s.set(n, stateDone)
}

// Len returns the number of tracked nodes, including collected ones that
// have not been pruned yet.
func (s *ProcessedSet) Len() int {
	return len(s.states)
}

func (s *ProcessedSet) set(n *html.Node, state nodeState) {
	s.states[weak.Make(n)] = state
	if len(s.states) >= s.pruneAt {
		s.prune()
	}
}

func (s *ProcessedSet) prune() {
	for p := range s.states {
		if p.Value() == nil {
			delete(s.states, p)
		}
	}
	s.pruneAt = max(minPruneSize, 2*len(s.states))
}
