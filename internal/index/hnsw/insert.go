package hnsw

import (
	"errors"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// ErrEmbSize reports an input vector whose length differs from the index
// dimension.
var ErrEmbSize = errors.New("embedding length does not match index dimension")

// Insert stores vec, samples a level for it, and wires it into the graph
// layer by layer. The new vector's ItemID is returned.
func (h *Index) Insert(vec []float32) (storage.ItemID, error) {
	if len(vec) != h.config.Dim {
		return storage.ItemID{}, ErrEmbSize
	}

	id, err := h.pool.Push(vec, h.sm)
	if err != nil {
		return storage.ItemID{}, err
	}
	topLevel := h.sampleLevel()

	if h.entry == nil {
		h.graph.PushItem(id, topLevel)
		h.entry = &entryPoint{id: id, level: topLevel}
		return id, nil
	}

	ep := *h.entry
	h.graph.PushItem(id, topLevel)

	// Coarse descent: walk down from the entry's top level to just above
	// the new node's top level with ef=1 to find a good local entry.
	epID := ep.id
	start := min(topLevel, ep.level)
	for level := ep.level; level > start; level-- {
		w, err := h.searchLayer(vec, epID, 1, level)
		if err != nil {
			return storage.ItemID{}, err
		}
		epID = nearest(w).ID
	}

	// Layered insert from the node's effective top level down to 0.
	for level := start; level >= 0; level-- {
		w, err := h.searchLayer(vec, epID, h.config.EfConstruction, level)
		if err != nil {
			return storage.ItemID{}, err
		}
		selected, err := h.selectNeighbors(vec, w, h.config.M, level, true, false)
		if err != nil {
			return storage.ItemID{}, err
		}

		for _, n := range selected {
			if err := h.graph.PushConn(id, n.ID, n.Dist, level); err != nil {
				return storage.ItemID{}, err
			}
		}

		maxConns := capAt(&h.config, level)
		for _, n := range selected {
			if err := h.shrinkConns(n.ID, level, maxConns); err != nil {
				return storage.ItemID{}, err
			}
		}

		epID = nearest(w).ID
	}

	// Promote the entry only after the insert has fully completed.
	if topLevel > ep.level {
		h.entry = &entryPoint{id: id, level: topLevel}
	}

	return id, nil
}

// shrinkConns rewrites a node's connection list through the selection
// heuristic when it exceeds the cap, removing the reverse halves of any
// dropped edges so the graph stays symmetric.
func (h *Index) shrinkConns(id storage.ItemID, level, maxConns int) error {
	conns, err := h.graph.Conns(id, level)
	if err != nil {
		return err
	}
	if len(conns) <= maxConns {
		return nil
	}

	cands := make([]util.Candidate, len(conns))
	for i, c := range conns {
		cands[i] = util.Candidate{ID: c.Other, Dist: c.Dist}
	}
	selected, err := h.selectNeighbors(nil, cands, maxConns, level, true, false)
	if err != nil {
		return err
	}

	kept := make(map[storage.ItemID]struct{}, len(selected))
	newConns := make([]Conn, len(selected))
	for i, s := range selected {
		kept[s.ID] = struct{}{}
		newConns[i] = Conn{Other: s.ID, Dist: s.Dist}
	}
	for _, c := range conns {
		if _, ok := kept[c.Other]; !ok {
			h.graph.RemoveConn(c.Other, id, level)
		}
	}
	return h.graph.SetConns(id, level, newConns)
}

func nearest(w []util.Candidate) util.Candidate {
	best := w[0]
	for _, c := range w[1:] {
		if util.TotalLess(c.Dist, best.Dist) {
			best = c
		}
	}
	return best
}
