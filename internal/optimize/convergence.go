package optimize

import (
	"fmt"
	"math"
	"strings"
)

// Step is one told evaluation, in tell order
type Step struct {
	Index    int
	ConfigID string
	Score    float64
}

// ConvergenceStrategy defines how to detect convergence
type ConvergenceStrategy interface {
	// CheckConvergence checks if optimization has converged based on history
	CheckConvergence(history []Step) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// ConvergenceConfig holds configuration for convergence detection
type ConvergenceConfig struct {
	// NoImprovementIterations is the number of evaluations without improvement before stopping
	NoImprovementIterations int
	// ScoreTolerance is the absolute tolerance for score changes to be considered equal
	ScoreTolerance float64
	// MinIterations is the minimum number of evaluations before convergence can be detected
	MinIterations int
	// PlateauIterations is the number of evaluations with similar scores before stopping
	PlateauIterations int
}

// DefaultConvergenceConfig returns a default convergence configuration
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementIterations: 5,
		ScoreTolerance:          0.001,
		MinIterations:           3,
		PlateauIterations:       5,
	}
}

// NewConvergenceStrategy creates a strategy by name. An empty name or
// "none" returns nil, which never converges.
func NewConvergenceStrategy(name string, patience int) (ConvergenceStrategy, error) {
	cfg := DefaultConvergenceConfig()
	if patience > 0 {
		cfg.NoImprovementIterations = patience
		cfg.PlateauIterations = patience
	}
	switch name {
	case "", "none":
		return nil, nil
	case "no_improvement":
		return NewNoImprovementStrategy(cfg), nil
	case "plateau":
		return NewPlateauStrategy(cfg), nil
	default:
		return nil, fmt.Errorf("unknown convergence strategy: %s", name)
	}
}

// NoImprovementStrategy detects convergence when there's no improvement for N evaluations
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []Step) (bool, string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}

	bestScore := math.NaN()
	bestIteration := -1
	for i, step := range history {
		if bestIteration < 0 || Better(step.Score, bestScore) {
			bestScore = step.Score
			bestIteration = i
		}
	}

	sinceBest := len(history) - 1 - bestIteration
	if sinceBest >= s.config.NoImprovementIterations {
		return true, fmt.Sprintf("no improvement for %d evaluations (best at evaluation %d)", sinceBest, bestIteration)
	}
	return false, ""
}

// PlateauStrategy detects convergence when recent scores lie within tolerance
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []Step) (bool, string) {
	if len(history) < s.config.MinIterations || len(history) < s.config.PlateauIterations {
		return false, ""
	}

	recent := history[len(history)-s.config.PlateauIterations:]
	minScore, maxScore := math.Inf(1), math.Inf(-1)
	for _, step := range recent {
		// timed out runs never form a plateau
		if math.IsNaN(step.Score) {
			return false, ""
		}
		minScore = math.Min(minScore, step.Score)
		maxScore = math.Max(maxScore, step.Score)
	}

	spread := maxScore - minScore
	if spread <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("score plateaued for %d evaluations (range: %.6f)", s.config.PlateauIterations, spread)
	}
	return false, ""
}

// CombinedStrategy converges as soon as any of its strategies does
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy combines strategies, skipping nils
func NewCombinedStrategy(strategies ...ConvergenceStrategy) *CombinedStrategy {
	c := &CombinedStrategy{}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

func (c *CombinedStrategy) Name() string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return "combined(" + strings.Join(names, ",") + ")"
}

func (c *CombinedStrategy) CheckConvergence(history []Step) (bool, string) {
	for _, s := range c.strategies {
		if ok, reason := s.CheckConvergence(history); ok {
			return true, fmt.Sprintf("%s: %s", s.Name(), reason)
		}
	}
	return false, ""
}
