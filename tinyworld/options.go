package tinyworld

import (
	"fmt"
	"log/slog"
	"math"
)

// Config holds session configuration. Structural parameters (dimension,
// connection counts, distance, level norm) are fixed at Create and read
// back from the header on Open; the rest applies to any session.
type Config struct {
	Dim            int
	M              uint8
	MMax           uint8
	M0Max          uint8
	EfConstruction int
	LevelNorm      float32
	DistanceID     uint32
	PoolFrames     int
	RandomSeed     int64
	Logger         *slog.Logger
	MetricsEnabled bool
}

func defaultConfig() *Config {
	return &Config{
		M:              16,
		MMax:           16,
		M0Max:          32,
		EfConstruction: 100,
		LevelNorm:      float32(1 / math.Log(16)),
		DistanceID:     DistEuclidean,
		PoolFrames:     64,
		MetricsEnabled: true,
	}
}

// Option configures a session.
type Option func(*Config) error

// WithDimension sets the vector dimension. Required on Create.
func WithDimension(dim int) Option {
	return func(c *Config) error {
		if dim <= 0 {
			return fmt.Errorf("dimension must be positive, got %d", dim)
		}
		c.Dim = dim
		return nil
	}
}

// WithHNSW sets the graph construction parameters: the target connection
// count per inserted node, the caps at level >= 1 and level 0, and the
// construction-time candidate width.
func WithHNSW(m, mMax, m0Max uint8, efConstruction int) Option {
	return func(c *Config) error {
		if m == 0 || mMax == 0 || m0Max == 0 || efConstruction <= 0 {
			return fmt.Errorf("HNSW parameters must be positive")
		}
		c.M = m
		c.MMax = mMax
		c.M0Max = m0Max
		c.EfConstruction = efConstruction
		return nil
	}
}

// WithLevelNorm sets the m_L level-sampling normalization.
func WithLevelNorm(mL float32) Option {
	return func(c *Config) error {
		if mL <= 0 {
			return fmt.Errorf("level norm must be positive, got %f", mL)
		}
		c.LevelNorm = mL
		return nil
	}
}

// WithDistance selects the distance function persisted in the header.
func WithDistance(distID uint32) Option {
	return func(c *Config) error {
		c.DistanceID = distID
		return nil
	}
}

// WithPoolFrames bounds the vector buffer pool to n page frames.
func WithPoolFrames(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("pool needs at least one frame, got %d", n)
		}
		c.PoolFrames = n
		return nil
	}
}

// WithRandomSeed fixes the level-sampling seed, for reproducible tests.
func WithRandomSeed(seed int64) Option {
	return func(c *Config) error {
		c.RandomSeed = seed
		return nil
	}
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) error {
		if log == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = log
		return nil
	}
}

// WithMetrics enables or disables metrics collection.
func WithMetrics(enabled bool) Option {
	return func(c *Config) error {
		c.MetricsEnabled = enabled
		return nil
	}
}
