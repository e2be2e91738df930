// Package formation partitions an eligible candidate pool into fixed-size
// teams that meet a score threshold and share an eligibility tag.
package formation

import (
	"errors"
	"fmt"
	"math"
)

// Default parameters used when a caller does not supply its own.
const (
	DefaultScoreThreshold = 300
	DefaultChunkSize      = 5
)

// Sentinel errors for invalid parameters.
var (
	ErrInvalidChunkSize = errors.New("chunk size must be at least 1")
	ErrInvalidThreshold = errors.New("score threshold must be a finite number")
)

// Config carries the parameters of one formation run.
type Config struct {
	ScoreThreshold float64
	ChunkSize      int
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{ScoreThreshold: DefaultScoreThreshold, ChunkSize: DefaultChunkSize}
}

// Validate checks that the parameters can drive a run.
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if math.IsNaN(c.ScoreThreshold) || math.IsInf(c.ScoreThreshold, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.ScoreThreshold)
	}
	return nil
}
