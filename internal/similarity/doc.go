// Package similarity scores how closely two embedding vectors point in the
// same direction.
//
// The only measure offered is cosine similarity. Degenerate input (vectors of
// different lengths, or a vector with zero magnitude) is reported as
// ErrInvalidInput rather than being folded into a score, because a zero
// vector carries no direction and a silent 0 would look like a legitimate
// "unrelated" verdict to callers.
package similarity
