// Package flat is an exhaustive in-memory scorer. It exists as ground
// truth for recall tests and as the exact mode of the example driver; it
// takes no part in the persisted format.
package flat

import (
	"fmt"
	"sort"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

type entry struct {
	id  storage.ItemID
	vec []float32
}

// Index scores every stored vector against each query.
type Index struct {
	dim     int
	calc    util.Calculator
	entries []entry
}

// New creates an empty exhaustive index.
func New(dim int, calc util.Calculator) *Index {
	return &Index{dim: dim, calc: calc}
}

// Add stores a copy of vec under id.
func (ix *Index) Add(id storage.ItemID, vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("vector has dimension %d, index wants %d", len(vec), ix.dim)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	ix.entries = append(ix.entries, entry{id: id, vec: cp})
	return nil
}

// Size returns the number of stored vectors.
func (ix *Index) Size() int { return len(ix.entries) }

// Search scans everything and returns the k nearest vectors ascending by
// distance.
func (ix *Index) Search(query []float32, k int) ([]util.Candidate, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, index wants %d", len(query), ix.dim)
	}

	results := make([]util.Candidate, len(ix.entries))
	for i, e := range ix.entries {
		results[i] = util.Candidate{ID: e.id, Dist: ix.calc.CalcDist(query, e.vec)}
	}
	sort.Slice(results, func(i, j int) bool {
		return util.TotalLess(results[i].Dist, results[j].Dist)
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
