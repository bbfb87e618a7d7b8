package util

import (
	"math"
	"testing"
)

func TestDotProductIsNegated(t *testing.T) {
	calc, err := NewCalculator(DistDotProduct)
	if err != nil {
		t.Fatal(err)
	}

	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	// Dot product is 32; as a distance it must come back negated so
	// that more-similar pairs score smaller.
	if got := calc.CalcDist(a, b); got != -32 {
		t.Fatalf("got %f, want -32", got)
	}

	aligned := calc.CalcDist([]float32{1, 0}, []float32{1, 0})
	orthogonal := calc.CalcDist([]float32{1, 0}, []float32{0, 1})
	if !TotalLess(aligned, orthogonal) {
		t.Fatalf("aligned vectors (%f) must score closer than orthogonal (%f)", aligned, orthogonal)
	}
}

func TestEuclidean(t *testing.T) {
	calc, err := NewCalculator(DistEuclidean)
	if err != nil {
		t.Fatal(err)
	}
	got := calc.CalcDist([]float32{0, 0}, []float32{3, 4})
	if math.Abs(float64(got)-5) > 1e-5 {
		t.Fatalf("got %f, want 5", got)
	}
	if self := calc.CalcDist([]float32{1, 2}, []float32{1, 2}); self != 0 {
		t.Fatalf("self distance: got %f, want 0", self)
	}
}

func TestCosine(t *testing.T) {
	calc, err := NewCalculator(DistCosine)
	if err != nil {
		t.Fatal(err)
	}
	if got := calc.CalcDist([]float32{1, 0}, []float32{2, 0}); math.Abs(float64(got)) > 1e-5 {
		t.Fatalf("parallel vectors: got %f, want 0", got)
	}
	if got := calc.CalcDist([]float32{1, 0}, []float32{0, 3}); math.Abs(float64(got)-1) > 1e-5 {
		t.Fatalf("orthogonal vectors: got %f, want 1", got)
	}
}

func TestUnknownDistanceID(t *testing.T) {
	if _, err := NewCalculator(99); err == nil {
		t.Fatal("expected an error for an unknown distance id")
	}
}
