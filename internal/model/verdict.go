package model

import "time"

// SkipReason explains why a node was not matched against the blocked phrase.
type SkipReason int

const (
	// SkipNone means the node was matched.
	SkipNone SkipReason = iota

	// SkipProcessed means the node was already classified or is in flight.
	SkipProcessed

	// SkipNotLeaf means the node has at least one element child.
	SkipNotLeaf

	// SkipTag means the tag is not one of the text-bearing tags.
	SkipTag

	// SkipTooShort means the own text is shorter than the minimum length.
	SkipTooShort
)

// String returns a human-readable representation of the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipProcessed:
		return "processed"
	case SkipNotLeaf:
		return "not_leaf"
	case SkipTag:
		return "tag"
	case SkipTooShort:
		return "too_short"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name.
func (r SkipReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Verdict is the outcome of classifying one node.
type Verdict struct {
	// Path locates the node in the document.
	Path string `json:"path"`

	// Tag is the lower-case tag name.
	Tag string `json:"tag"`

	// Text is the own text of the node. Empty for nodes skipped before
	// extraction.
	Text string `json:"text,omitempty"`

	// Score is the cosine similarity in semantic mode.
	Score float64 `json:"score,omitempty"`

	// MatchedTerm is the blocked word found in literal mode.
	MatchedTerm string `json:"matched_term,omitempty"`

	// Blocked is true when the node was redacted.
	Blocked bool `json:"blocked"`

	// Skip is set when the node never reached matching.
	Skip SkipReason `json:"skip,omitempty"`

	// Err holds the matching failure, if any.
	Err string `json:"error,omitempty"`

	// Elapsed is the time between submission and completion.
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
}

// Matched reports whether the node reached the matching step.
func (v Verdict) Matched() bool {
	return v.Skip == SkipNone
}

// Failed reports whether matching returned an error.
func (v Verdict) Failed() bool {
	return v.Err != ""
}
