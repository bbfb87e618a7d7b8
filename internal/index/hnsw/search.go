package hnsw

import (
	"errors"
	"sort"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// Search returns the k nearest stored vectors to query, ascending by
// distance. ef bounds the level-0 candidate list; it may be smaller than
// k, in which case fewer than k results come back.
func (h *Index) Search(query []float32, k, ef int) ([]util.Candidate, error) {
	if len(query) != h.config.Dim {
		return nil, ErrEmbSize
	}
	if h.entry == nil {
		return []util.Candidate{}, nil
	}

	epID := h.entry.id
	for level := h.entry.level; level > 0; level-- {
		w, err := h.searchLayer(query, epID, 1, level)
		if err != nil {
			return nil, err
		}
		epID = nearest(w).ID
	}

	found, err := h.searchLayer(query, epID, ef, 0)
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		return util.TotalLess(found[i].Dist, found[j].Dist)
	})
	if k < len(found) {
		found = found[:k]
	}
	return found, nil
}

// searchLayer runs best-first search over the connection graph at one
// level, bounded to ef results. The returned order is unspecified.
func (h *Index) searchLayer(query []float32, entry storage.ItemID, ef, level int) ([]util.Candidate, error) {
	entryDist, err := h.distTo(query, entry)
	if err != nil {
		return nil, err
	}

	visited := map[storage.ItemID]struct{}{entry: {}}
	candidates := util.NewMinHeap(ef)
	found := util.NewMaxHeap(ef + 1)
	candidates.PushCandidate(util.Candidate{ID: entry, Dist: entryDist})
	found.PushCandidate(util.Candidate{ID: entry, Dist: entryDist})

	for candidates.Len() > 0 {
		c := candidates.PopCandidate()
		if util.TotalLess(found.Top().Dist, c.Dist) {
			break
		}

		conns, err := h.graph.Conns(c.ID, level)
		if errors.Is(err, ErrInvalidItemID) {
			// A freshly inserted entry may not exist at this level yet;
			// it simply has no outbound edges to follow.
			continue
		} else if err != nil {
			return nil, err
		}

		for _, conn := range conns {
			if _, seen := visited[conn.Other]; seen {
				continue
			}
			visited[conn.Other] = struct{}{}

			d, err := h.distTo(query, conn.Other)
			if err != nil {
				return nil, err
			}
			if found.Len() < ef || util.TotalLess(d, found.Top().Dist) {
				candidates.PushCandidate(util.Candidate{ID: conn.Other, Dist: d})
				found.PushCandidate(util.Candidate{ID: conn.Other, Dist: d})
				if found.Len() > ef {
					found.PopCandidate()
				}
			}
		}
	}

	return found.Drain(), nil
}
