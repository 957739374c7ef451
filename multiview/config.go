package multiview

import (
	"github.com/pkg/errors"

	"go.viam.com/multiview/utils"
)

// Config holds the quantization parameters of the ray extent search.
type Config struct {
	// Delta is the pixel spacing between consecutive candidates.
	Delta float64 `json:"delta" yaml:"delta" validate:"gt=0"`
	// ToleranceBits is the number of significant bits of lambda that bisection resolves.
	ToleranceBits int `json:"tolerance_bits" yaml:"tolerance_bits" validate:"gte=1,lte=53"`
	// MaxCandidates bounds the number of bisection steps taken for one (point, view) pair.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates" validate:"gt=0"`
	// MaxBracketDoublings bounds the search for a finite lambda near the vanishing point.
	MaxBracketDoublings int `json:"max_bracket_doublings" yaml:"max_bracket_doublings" validate:"gt=0"`
	// MaxBisectIterations bounds a single bisection.
	MaxBisectIterations int `json:"max_bisect_iterations" yaml:"max_bisect_iterations" validate:"gt=0"`
	// Workers is the number of concurrent (track, time, view) units. Zero means one per CPU.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns one pixel spacing, sixteen bits of tolerance and one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Delta:               1,
		ToleranceBits:       16,
		MaxCandidates:       100000,
		MaxBracketDoublings: 1074,
		MaxBisectIterations: 2000,
		Workers:             utils.ParallelFactor,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	if !(cfg.Delta > 0) {
		return errors.Errorf("delta must be positive, got %v", cfg.Delta)
	}
	if cfg.ToleranceBits < 1 || cfg.ToleranceBits > 53 {
		return errors.Errorf("tolerance_bits must be in [1, 53], got %d", cfg.ToleranceBits)
	}
	if cfg.MaxCandidates <= 0 {
		return errors.Errorf("max_candidates must be positive, got %d", cfg.MaxCandidates)
	}
	if cfg.MaxBracketDoublings <= 0 {
		return errors.Errorf("max_bracket_doublings must be positive, got %d", cfg.MaxBracketDoublings)
	}
	if cfg.MaxBisectIterations <= 0 {
		return errors.Errorf("max_bisect_iterations must be positive, got %d", cfg.MaxBisectIterations)
	}
	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}

func (cfg *Config) workers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return utils.ParallelFactor
}
