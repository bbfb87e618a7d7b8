package util

import (
	"container/heap"
	"math"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

// Candidate pairs a stored item with its distance to some query.
type Candidate struct {
	ID   storage.ItemID
	Dist float32
}

// TotalLess is a total order on float32 distances. NaN sorts after every
// other value, so heap behavior stays deterministic on bad input.
func TotalLess(a, b float32) bool {
	an, bn := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	if an || bn {
		return bn && !an
	}
	return a < b
}

type candidateSlice []Candidate

func (s candidateSlice) Len() int      { return len(s) }
func (s candidateSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *candidateSlice) Push(x any) {
	*s = append(*s, x.(Candidate))
}

func (s *candidateSlice) Pop() any {
	old := *s
	n := len(old)
	c := old[n-1]
	*s = old[:n-1]
	return c
}

// MinHeap pops the candidate with the smallest distance first.
type MinHeap struct {
	candidateSlice
}

// NewMinHeap creates a min-heap with room for capacity candidates.
func NewMinHeap(capacity int) *MinHeap {
	return &MinHeap{candidateSlice: make(candidateSlice, 0, capacity)}
}

func (h *MinHeap) Less(i, j int) bool {
	return TotalLess(h.candidateSlice[i].Dist, h.candidateSlice[j].Dist)
}

// PushCandidate adds a candidate to the heap.
func (h *MinHeap) PushCandidate(c Candidate) {
	heap.Push(h, c)
}

// PopCandidate removes and returns the nearest candidate.
func (h *MinHeap) PopCandidate() Candidate {
	return heap.Pop(h).(Candidate)
}

// MaxHeap pops the candidate with the largest distance first.
type MaxHeap struct {
	candidateSlice
}

// NewMaxHeap creates a max-heap with room for capacity candidates.
func NewMaxHeap(capacity int) *MaxHeap {
	return &MaxHeap{candidateSlice: make(candidateSlice, 0, capacity)}
}

func (h *MaxHeap) Less(i, j int) bool {
	return TotalLess(h.candidateSlice[j].Dist, h.candidateSlice[i].Dist)
}

// PushCandidate adds a candidate to the heap.
func (h *MaxHeap) PushCandidate(c Candidate) {
	heap.Push(h, c)
}

// PopCandidate removes and returns the farthest candidate.
func (h *MaxHeap) PopCandidate() Candidate {
	return heap.Pop(h).(Candidate)
}

// Top returns the farthest candidate without removing it.
func (h *MaxHeap) Top() Candidate {
	return h.candidateSlice[0]
}

// Drain empties the heap into a slice. Order is unspecified.
func (h *MaxHeap) Drain() []Candidate {
	out := make([]Candidate, len(h.candidateSlice))
	copy(out, h.candidateSlice)
	h.candidateSlice = h.candidateSlice[:0]
	return out
}
