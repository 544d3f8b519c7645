// Package storage persists collected result tables and optimizer evaluations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/results"
)

// ErrRunNotFound is returned when no table is stored for a run id.
var ErrRunNotFound = errors.New("run not found")

// Evaluation is one optimizer evaluation as persisted
type Evaluation struct {
	RunID     string            `json:"run_id"`
	ConfigID  string            `json:"config_id"`
	Params    map[string]string `json:"params"`
	Score     float64           `json:"score"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store defines persistence operations for sweep results.
type Store interface {
	Init(ctx context.Context) error
	SaveTable(ctx context.Context, table *results.Table) error
	GetTable(ctx context.Context, runID string) (*results.Table, bool, error)
	ListRuns(ctx context.Context) ([]string, error)
	SaveEvaluation(ctx context.Context, ev Evaluation) error
	ListEvaluations(ctx context.Context, runID string) ([]Evaluation, error)
}

// LookupTable is GetTable with a missing run reported as ErrRunNotFound
func LookupTable(ctx context.Context, s Store, runID string) (*results.Table, error) {
	t, ok, err := s.GetTable(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return t, nil
}
