package tinyworld

import (
	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// ItemID identifies one stored vector as a stable (page, slot) pair.
type ItemID = storage.ItemID

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	ID   ItemID
	Dist float32
}

// Distance identifiers accepted by WithDistance and persisted in the
// index header.
const (
	DistDotProduct = util.DistDotProduct
	DistEuclidean  = util.DistEuclidean
	DistCosine     = util.DistCosine
)
