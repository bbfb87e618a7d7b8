// Package hnsw implements the Hierarchical Navigable Small World graph
// engine: layered insertion, greedy layered search, and the neighbor
// selection heuristic. Vector bytes come through the buffer pool; the
// graph itself lives in memory and is snapshotted to graph pages.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/andrew-r-thomas/tinyworld/internal/pool"
	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// Config holds the parameters fixed at index creation.
type Config struct {
	Dim            int
	M              int     // target connections per inserted node per level
	MMax           int     // cap at level >= 1
	M0Max          int     // cap at level 0
	EfConstruction int
	LevelNorm      float64 // m_L level-sampling normalization
	RandomSeed     int64
}

func (c *Config) validate() error {
	if c.Dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", c.Dim)
	}
	if c.M <= 0 || c.MMax <= 0 || c.M0Max <= 0 {
		return fmt.Errorf("connection counts must be positive (m=%d mMax=%d m0Max=%d)", c.M, c.MMax, c.M0Max)
	}
	if c.EfConstruction <= 0 {
		return fmt.Errorf("efConstruction must be positive, got %d", c.EfConstruction)
	}
	if c.LevelNorm <= 0 {
		return fmt.Errorf("level norm must be positive, got %f", c.LevelNorm)
	}
	return nil
}

type entryPoint struct {
	id    storage.ItemID
	level int
}

// Index is the HNSW engine. It owns the in-memory graph and consults the
// vector pool read-only for vector bytes.
type Index struct {
	config Config
	graph  *Graph
	entry  *entryPoint
	rng    *rand.Rand
	calc   util.Calculator
	pool   *pool.Pool
	sm     *storage.Manager
}

// New creates an empty engine over the given pool and storage manager.
func New(config Config, calc util.Calculator, p *pool.Pool, sm *storage.Manager) (*Index, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid hnsw config: %w", err)
	}
	return &Index{
		config: config,
		graph:  NewGraph(),
		rng:    rand.New(rand.NewSource(config.RandomSeed)),
		calc:   calc,
		pool:   p,
		sm:     sm,
	}, nil
}

// EntryPoint returns the current entry node and its top level. ok is
// false while the graph is empty.
func (h *Index) EntryPoint() (id storage.ItemID, level int, ok bool) {
	if h.entry == nil {
		return storage.ItemID{}, 0, false
	}
	return h.entry.id, h.entry.level, true
}

// Size returns the number of inserted vectors.
func (h *Index) Size() int {
	return h.graph.NodeCount()
}

// Graph exposes the level adjacency, mainly for tests and invariant
// checks.
func (h *Index) Graph() *Graph { return h.graph }

// sampleLevel draws the top level for a new node: floor(-ln(u) * m_L)
// with u uniform in (0, 1].
func (h *Index) sampleLevel() int {
	u := 1 - h.rng.Float64() // (0, 1]
	return int(math.Floor(-math.Log(u) * h.config.LevelNorm))
}

// distTo computes the distance from query to the stored vector id. The
// pooled vector is borrowed only for the duration of the call.
func (h *Index) distTo(query []float32, id storage.ItemID) (float32, error) {
	vec, err := h.pool.Get(id, h.sm)
	if err != nil {
		return 0, err
	}
	return h.calc.CalcDist(query, vec), nil
}

func capAt(c *Config, level int) int {
	if level == 0 {
		return c.M0Max
	}
	return c.MMax
}
