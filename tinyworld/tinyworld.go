// Package tinyworld is an embedded approximate-nearest-neighbor index
// for fixed-dimension float32 vectors, persisted to a single .tw file.
// Search uses a Hierarchical Navigable Small World graph; vectors live
// on disk in paged form behind a bounded buffer pool.
package tinyworld

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrew-r-thomas/tinyworld/internal/index/hnsw"
	"github.com/andrew-r-thomas/tinyworld/internal/obs"
	"github.com/andrew-r-thomas/tinyworld/internal/pool"
	"github.com/andrew-r-thomas/tinyworld/internal/storage"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
)

// Session binds the storage manager, the vector pool and the graph
// engine into one open index. A session is single-caller: exactly one
// goroutine may use it at a time.
type Session struct {
	path    string
	sm      *storage.Manager
	header  *storage.Header
	pool    *pool.Pool
	engine  *hnsw.Index
	log     *slog.Logger
	metrics *obs.Metrics
	closed  bool
}

// Create makes a new index file at path. The path must carry the .tw
// extension and must not already exist; WithDimension is required.
func Create(path string, opts ...Option) (*Session, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("create %s: dimension is required", path)
	}

	sm, header, err := storage.Create(path, cfg.MMax, cfg.M0Max, cfg.M, uint32(cfg.Dim), cfg.DistanceID, cfg.LevelNorm)
	if err != nil {
		return nil, err
	}

	s, err := newSession(path, sm, header, cfg)
	if err != nil {
		sm.Close()
		return nil, err
	}
	s.log.Info("created index",
		"path", path,
		"dim", cfg.Dim,
		"m", cfg.M,
		"m_max", cfg.MMax,
		"m0_max", cfg.M0Max,
		"dist", cfg.DistanceID,
	)
	return s, nil
}

// Open opens an existing index file, reconstructing the graph from its
// snapshot pages. Structural parameters come from the header; options
// may still tune the pool size, efConstruction, logging and metrics.
func Open(path string, opts ...Option) (*Session, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	sm, header, err := storage.Open(path)
	if err != nil {
		return nil, err
	}

	cfg.Dim = int(header.Dim)
	cfg.M = header.M
	cfg.MMax = header.MMax
	cfg.M0Max = header.M0Max
	cfg.LevelNorm = header.ML
	cfg.DistanceID = header.DistID

	s, err := newSession(path, sm, header, cfg)
	if err != nil {
		sm.Close()
		return nil, err
	}
	if err := s.engine.LoadGraph(sm, header.EP); err != nil {
		sm.Close()
		return nil, err
	}
	s.log.Info("opened index", "path", path, "dim", cfg.Dim, "vectors", s.engine.Size())
	return s, nil
}

func buildConfig(opts []Option) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}

func newSession(path string, sm *storage.Manager, header *storage.Header, cfg *Config) (*Session, error) {
	calc, err := util.NewCalculator(cfg.DistanceID)
	if err != nil {
		return nil, err
	}

	var metrics *obs.Metrics
	if cfg.MetricsEnabled {
		metrics = obs.NewMetrics()
	}

	p, err := pool.New(cfg.PoolFrames, sm.PageBytes(), cfg.Dim, header.VecPageSlots, cfg.Logger, metrics)
	if err != nil {
		return nil, err
	}

	engine, err := hnsw.New(hnsw.Config{
		Dim:            cfg.Dim,
		M:              int(cfg.M),
		MMax:           int(cfg.MMax),
		M0Max:          int(cfg.M0Max),
		EfConstruction: cfg.EfConstruction,
		LevelNorm:      float64(cfg.LevelNorm),
		RandomSeed:     cfg.RandomSeed,
	}, calc, p, sm)
	if err != nil {
		return nil, err
	}

	return &Session{
		path:    path,
		sm:      sm,
		header:  header,
		pool:    p,
		engine:  engine,
		log:     cfg.Logger,
		metrics: metrics,
	}, nil
}

// Insert stores vec and returns its ItemID.
func (s *Session) Insert(vec []float32) (ItemID, error) {
	if s.closed {
		return ItemID{}, ErrSessionClosed
	}
	id, err := s.engine.Insert(vec)
	if err != nil {
		return ItemID{}, err
	}
	if s.metrics != nil {
		s.metrics.VectorInserts.Inc()
	}
	return id, nil
}

// Search returns up to k stored vectors nearest to query, ascending by
// distance. ef bounds the candidate list at the bottom layer; an ef
// below k is allowed and may yield fewer than k results.
func (s *Session) Search(query []float32, k, ef int) ([]SearchResult, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if ef <= 0 {
		return nil, ErrInvalidEf
	}

	start := time.Now()
	found, err := s.engine.Search(query, k, ef)
	if s.metrics != nil {
		s.metrics.SearchQueries.Inc()
		s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.SearchErrors.Inc()
		}
	}
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(found))
	for i, c := range found {
		results[i] = SearchResult{ID: c.ID, Dist: c.Dist}
	}
	return results, nil
}

// Flush writes dirty pages, rewrites the header, and snapshots the
// graph. Dropping a session without flushing loses everything written
// since the last flush.
func (s *Session) Flush() error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.pool.Flush(s.sm); err != nil {
		return err
	}
	if id, _, ok := s.engine.EntryPoint(); ok {
		s.header.EP = id
	}
	if err := s.sm.WriteHeader(s.header); err != nil {
		return err
	}
	if err := s.engine.SaveGraph(s.sm); err != nil {
		return err
	}
	if err := s.sm.Sync(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Flushes.Inc()
	}
	s.log.Debug("flushed index", "path", s.path, "pages", s.sm.NumPages())
	return nil
}

// Close flushes and releases the backing file.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if err := s.Flush(); err != nil {
		s.sm.Close()
		s.closed = true
		return err
	}
	s.closed = true
	return s.sm.Close()
}

// Size returns the number of stored vectors.
func (s *Session) Size() int {
	return s.engine.Size()
}

// Path returns the backing file path.
func (s *Session) Path() string { return s.path }

// MetricsRegistry returns the session's prometheus registry, or nil
// when metrics are disabled.
func (s *Session) MetricsRegistry() *prometheus.Registry {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Registry()
}
