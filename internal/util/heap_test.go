package util

import (
	"math"
	"testing"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

func id(n uint32) storage.ItemID {
	return storage.ItemID{Slot: n % 4, Page: n / 4}
}

func TestMinHeapOrder(t *testing.T) {
	h := NewMinHeap(8)
	dists := []float32{3.5, 0.25, 7, -1, 2}
	for i, d := range dists {
		h.PushCandidate(Candidate{ID: id(uint32(i)), Dist: d})
	}

	want := []float32{-1, 0.25, 2, 3.5, 7}
	for i, w := range want {
		got := h.PopCandidate()
		if got.Dist != w {
			t.Fatalf("pop %d: got dist %f, want %f", i, got.Dist, w)
		}
	}
	if h.Len() != 0 {
		t.Fatalf("heap not empty after draining: %d left", h.Len())
	}
}

func TestMaxHeapOrder(t *testing.T) {
	h := NewMaxHeap(8)
	dists := []float32{3.5, 0.25, 7, -1, 2}
	for i, d := range dists {
		h.PushCandidate(Candidate{ID: id(uint32(i)), Dist: d})
	}

	if top := h.Top(); top.Dist != 7 {
		t.Fatalf("top: got %f, want 7", top.Dist)
	}
	want := []float32{7, 3.5, 2, 0.25, -1}
	for i, w := range want {
		got := h.PopCandidate()
		if got.Dist != w {
			t.Fatalf("pop %d: got dist %f, want %f", i, got.Dist, w)
		}
	}
}

func TestTotalLessNaN(t *testing.T) {
	nan := float32(math.NaN())
	if TotalLess(nan, 1) {
		t.Fatal("NaN must not sort below a number")
	}
	if !TotalLess(1, nan) {
		t.Fatal("a number must sort below NaN")
	}
	if TotalLess(nan, nan) {
		t.Fatal("NaN must compare equal to itself")
	}
}

func TestMaxHeapNaNSortsLast(t *testing.T) {
	h := NewMaxHeap(4)
	h.PushCandidate(Candidate{ID: id(0), Dist: 1})
	h.PushCandidate(Candidate{ID: id(1), Dist: float32(math.NaN())})
	h.PushCandidate(Candidate{ID: id(2), Dist: 5})

	// NaN is the largest element, so it pops first from a max-heap.
	if got := h.PopCandidate(); !math.IsNaN(float64(got.Dist)) {
		t.Fatalf("expected NaN first, got %f", got.Dist)
	}
	if got := h.PopCandidate(); got.Dist != 5 {
		t.Fatalf("expected 5 second, got %f", got.Dist)
	}
}

func TestMaxHeapDrain(t *testing.T) {
	h := NewMaxHeap(4)
	for i := 0; i < 3; i++ {
		h.PushCandidate(Candidate{ID: id(uint32(i)), Dist: float32(i)})
	}
	out := h.Drain()
	if len(out) != 3 {
		t.Fatalf("drain returned %d candidates, want 3", len(out))
	}
	if h.Len() != 0 {
		t.Fatal("heap not empty after drain")
	}
}
