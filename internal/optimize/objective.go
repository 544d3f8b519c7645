package optimize

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Objective turns a finished run directory into a score to minimize.
type Objective interface {
	// Score reads the run outputs in dir
	Score(dir string) float64
	// TimeoutScore is the score of a run whose marker never appeared
	TimeoutScore() float64
	// Name returns the name of the objective
	Name() string
}

// AccuracyObjective scores 100 minus the final test accuracy percentage.
// Unreadable or missing accuracy counts as 0 percent.
type AccuracyObjective struct {
	PercentFile string
}

func (o AccuracyObjective) Name() string { return "accuracy" }

func (o AccuracyObjective) Score(dir string) float64 {
	percent, err := metrics.ReadPercent(filepath.Join(dir, o.PercentFile))
	if err != nil {
		logger.Warn("accuracy unreadable, scoring as 0 percent", "dir", dir, "error", err)
		percent = 0
	}
	return 100 - percent
}

func (o AccuracyObjective) TimeoutScore() float64 { return 100 }

// LossObjective scores the mean absolute loss over the final LastN rows.
// Unreadable loss and timeouts score NaN, which ranks worst.
type LossObjective struct {
	LossFile string
	FirstN   int
	LastN    int
}

func (o LossObjective) Name() string { return "loss" }

func (o LossObjective) Score(dir string) float64 {
	return metrics.LossOrNaN(filepath.Join(dir, o.LossFile), metrics.LossAbs, o.FirstN, o.LastN)
}

func (o LossObjective) TimeoutScore() float64 { return math.NaN() }

// NewObjective creates an objective by name using the collect file names
func NewObjective(name string, c config.Collect) (Objective, error) {
	switch name {
	case "accuracy", "":
		return AccuracyObjective{PercentFile: c.PercentFile}, nil
	case "loss":
		return LossObjective{LossFile: c.LossFile, FirstN: c.FirstN, LastN: c.LastN}, nil
	default:
		return nil, fmt.Errorf("unknown objective: %s", name)
	}
}
