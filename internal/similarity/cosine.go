package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when the vectors cannot be compared.
var ErrInvalidInput = errors.New("invalid similarity input")

// Cosine returns the cosine similarity of a and b: their dot product divided
// by the product of their magnitudes. The result lies in [-1, 1].
//
// It fails with ErrInvalidInput when the lengths differ, when either vector
// has a magnitude of exactly zero, or when a NaN or infinite component makes
// the score undefined. An empty vector has zero magnitude.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector lengths differ (%d != %d)", ErrInvalidInput, len(a), len(b))
	}

	var dot, sumA, sumB float64
	for i := range a {
		dot += a[i] * b[i]
		sumA += a[i] * a[i]
		sumB += b[i] * b[i]
	}

	magA := math.Sqrt(sumA)
	magB := math.Sqrt(sumB)
	if magA == 0 || magB == 0 {
		return 0, fmt.Errorf("%w: vector magnitude is zero", ErrInvalidInput)
	}

	score := dot / (magA * magB)
	if math.IsNaN(score) || math.IsInf(magA, 0) || math.IsInf(magB, 0) {
		return 0, fmt.Errorf("%w: vector holds a non-finite component", ErrInvalidInput)
	}

	// Rounding can push parallel vectors a hair past the bounds.
	return math.Max(-1, math.Min(1, score)), nil
}

// ToFloat64 widens a float32 embedding as returned by most embedding APIs.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
