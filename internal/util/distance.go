package util

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// Distance identifiers persisted in the index header.
const (
	DistDotProduct uint32 = iota
	DistEuclidean
	DistCosine
)

// Calculator computes a distance between two equal-length vectors, with
// smaller meaning closer. Implementations may mutate internal scratch
// state during a call, so a Calculator must not be shared across
// overlapping calls.
type Calculator interface {
	CalcDist(a, b []float32) float32
}

// NewCalculator returns the calculator registered under distID.
func NewCalculator(distID uint32) (Calculator, error) {
	switch distID {
	case DistDotProduct:
		return &DotProduct{}, nil
	case DistEuclidean:
		return &Euclidean{}, nil
	case DistCosine:
		return &Cosine{}, nil
	default:
		return nil, fmt.Errorf("unknown distance id %d", distID)
	}
}

// DotProduct scores by negated dot product. Dot product is a similarity,
// so the sign is flipped to keep "smaller is closer" true in the heaps.
type DotProduct struct{}

func (*DotProduct) CalcDist(a, b []float32) float32 {
	return -vek32.Dot(a, b)
}

// Euclidean scores by L2 distance.
type Euclidean struct{}

func (*Euclidean) CalcDist(a, b []float32) float32 {
	return vek32.Distance(a, b)
}

// Cosine scores by cosine distance (1 - cosine similarity).
type Cosine struct{}

func (*Cosine) CalcDist(a, b []float32) float32 {
	return 1 - vek32.CosineSimilarity(a, b)
}
