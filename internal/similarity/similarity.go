// Package similarity computes cosine similarity between course embeddings
// and rescales it into the overlap percent shown to end users.
package similarity

import (
	"fmt"
	"math"
)

// identityEpsilon bounds the per-component difference under which two
// vectors are treated as identical, so floating-point drift cannot
// misclassify an identical vector as <100%.
const identityEpsilon = 1e-10

// contrastExponent compresses low similarities toward zero while keeping
// high similarities close to 1. Downstream review thresholds are tuned
// against this exact exponent.
const contrastExponent = 1.5

// DimensionMismatchError reports an attempt to compare vectors of unequal
// length. With a single fixed embedding model this should never happen,
// but it is checked rather than allowed to silently miscompute.
type DimensionMismatchError struct {
	LenA, LenB int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("similarity: vector dimensions do not match: %d vs %d", e.LenA, e.LenB)
}

// Cosine returns the contrast-enhanced cosine similarity of a and b.
// Identical vectors return exactly 1.0; a zero-magnitude vector returns
// 0.0 instead of NaN. All other results are raised to the power 1.5.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, &DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}

	identical := true
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) >= identityEpsilon {
			identical = false
			break
		}
	}
	if identical {
		return 1.0, nil
	}

	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)

	if magA == 0 || magB == 0 {
		return 0, nil
	}

	scaled := math.Pow(dot/(magA*magB), contrastExponent)
	if math.IsNaN(scaled) {
		// Pow of a negative cosine is NaN; map to 0 so one pathological
		// vector cannot poison the ranking sort.
		return 0, nil
	}
	return scaled, nil
}

// OverlapPercent maps two embeddings to the 0-100 overlap score shown to
// users. 100.0 is reserved for true identity; near-matches cap at 99.9.
// The tiered boost separates meaningfully overlapping courses from
// coincidentally similar ones and must not be replaced with a different
// curve: review thresholds downstream are calibrated against it.
func OverlapPercent(a, b []float32) (float64, error) {
	sim, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}
	if sim == 1.0 {
		return 100.0, nil
	}

	score := sim * 100
	switch {
	case score >= 70:
		score = math.Min(99.9, score*1.2)
	case score >= 40:
		score = score * 1.1
	default:
		score = score * 0.8
	}

	return math.Round(score*10) / 10, nil
}
