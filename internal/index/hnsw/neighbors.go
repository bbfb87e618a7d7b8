package hnsw

import (
	"sort"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// selectNeighbors applies the HNSW diversity heuristic to pick at most
// topK of the candidates. Candidates are walked in ascending distance; a
// candidate is accepted when the output is empty or its distance is
// strictly below the smallest accepted distance, and discarded
// otherwise. With keepPruned the remainder is backfilled from the
// discards, closest first. With extendCand the candidate set is first
// augmented with every level neighbor of every candidate; query must be
// the caller's own buffer in that case, since distances to the new
// candidates are computed through the pool.
func (h *Index) selectNeighbors(query []float32, candidates []util.Candidate, topK, level int, keepPruned, extendCand bool) ([]util.Candidate, error) {
	queue := make([]util.Candidate, len(candidates))
	copy(queue, candidates)

	if extendCand {
		inQueue := make(map[storage.ItemID]struct{}, len(queue))
		for _, c := range queue {
			inQueue[c.ID] = struct{}{}
		}
		for _, c := range candidates {
			conns, err := h.graph.Conns(c.ID, level)
			if err != nil {
				return nil, err
			}
			for _, conn := range conns {
				if _, ok := inQueue[conn.Other]; ok {
					continue
				}
				inQueue[conn.Other] = struct{}{}
				d, err := h.distTo(query, conn.Other)
				if err != nil {
					return nil, err
				}
				queue = append(queue, util.Candidate{ID: conn.Other, Dist: d})
			}
		}
	}

	sort.Slice(queue, func(i, j int) bool {
		return util.TotalLess(queue[i].Dist, queue[j].Dist)
	})

	out := make([]util.Candidate, 0, topK)
	var discarded []util.Candidate
	minAccepted := float32(0)
	for _, c := range queue {
		if len(out) == topK {
			break
		}
		if len(out) == 0 || util.TotalLess(c.Dist, minAccepted) {
			out = append(out, c)
			if len(out) == 1 || util.TotalLess(c.Dist, minAccepted) {
				minAccepted = c.Dist
			}
		} else {
			discarded = append(discarded, c)
		}
	}

	if keepPruned {
		// discarded is already in ascending distance order.
		for _, c := range discarded {
			if len(out) == topK {
				break
			}
			out = append(out, c)
		}
	}

	return out, nil
}
