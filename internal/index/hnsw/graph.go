package hnsw

import (
	"errors"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

var (
	ErrInvalidLevel  = errors.New("level does not exist")
	ErrInvalidItemID = errors.New("item is not present at this level")
)

// Conn is one directed half of a symmetric edge: the peer and the
// distance between the two endpoints.
type Conn struct {
	Other storage.ItemID
	Dist  float32
}

// Graph holds the per-level adjacency, keyed by ItemID. It stores edges
// exactly as told; the connection caps are enforced by the engine
// through rewrites, not here.
type Graph struct {
	levels []map[storage.ItemID][]Conn
}

// NewGraph returns an empty graph with no levels.
func NewGraph() *Graph {
	return &Graph{}
}

// NumLevels returns the number of materialized levels.
func (g *Graph) NumLevels() int { return len(g.levels) }

// TopLevel returns the highest materialized level, or -1 when empty.
func (g *Graph) TopLevel() int { return len(g.levels) - 1 }

// NodeCount returns the number of nodes in the graph. Every node exists
// at level 0.
func (g *Graph) NodeCount() int {
	if len(g.levels) == 0 {
		return 0
	}
	return len(g.levels[0])
}

// Contains reports whether id is present at level.
func (g *Graph) Contains(id storage.ItemID, level int) bool {
	if level < 0 || level >= len(g.levels) {
		return false
	}
	_, ok := g.levels[level][id]
	return ok
}

// PushItem registers id with an empty connection list at every level
// from 0 through highest, growing the level sequence as needed.
func (g *Graph) PushItem(id storage.ItemID, highest int) {
	for level := 0; level <= highest; level++ {
		if level == len(g.levels) {
			g.levels = append(g.levels, make(map[storage.ItemID][]Conn))
		}
		g.levels[level][id] = []Conn{}
	}
}

// Conns returns id's current connection list at level.
func (g *Graph) Conns(id storage.ItemID, level int) ([]Conn, error) {
	if level < 0 || level >= len(g.levels) {
		return nil, ErrInvalidLevel
	}
	conns, ok := g.levels[level][id]
	if !ok {
		return nil, ErrInvalidItemID
	}
	return conns, nil
}

// PushConn appends the symmetric edge a<->b with the given distance at
// level. Both endpoints must already be present there.
func (g *Graph) PushConn(a, b storage.ItemID, dist float32, level int) error {
	if level < 0 || level >= len(g.levels) {
		return ErrInvalidLevel
	}
	conns := g.levels[level]
	aConns, ok := conns[a]
	if !ok {
		return ErrInvalidItemID
	}
	bConns, ok := conns[b]
	if !ok {
		return ErrInvalidItemID
	}
	conns[a] = append(aConns, Conn{Other: b, Dist: dist})
	conns[b] = append(bConns, Conn{Other: a, Dist: dist})
	return nil
}

// SetConns replaces id's connection list at level. Used by the engine
// when a node's list is rewritten to respect the connection caps.
func (g *Graph) SetConns(id storage.ItemID, level int, conns []Conn) error {
	if level < 0 || level >= len(g.levels) {
		return ErrInvalidLevel
	}
	if _, ok := g.levels[level][id]; !ok {
		return ErrInvalidItemID
	}
	g.levels[level][id] = conns
	return nil
}

// RemoveConn deletes the directed edge id->other at level, if present.
func (g *Graph) RemoveConn(id, other storage.ItemID, level int) {
	if level < 0 || level >= len(g.levels) {
		return
	}
	conns, ok := g.levels[level][id]
	if !ok {
		return
	}
	for i, c := range conns {
		if c.Other == other {
			g.levels[level][id] = append(conns[:i], conns[i+1:]...)
			return
		}
	}
}

// Nodes returns the ids present at level. Used by invariant checks.
func (g *Graph) Nodes(level int) []storage.ItemID {
	if level < 0 || level >= len(g.levels) {
		return nil
	}
	ids := make([]storage.ItemID, 0, len(g.levels[level]))
	for id := range g.levels[level] {
		ids = append(ids, id)
	}
	return ids
}

// nodesAt exposes a level's adjacency map for serialization.
func (g *Graph) nodesAt(level int) map[storage.ItemID][]Conn {
	return g.levels[level]
}
