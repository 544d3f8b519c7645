package optimize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
)

// Result summarizes an optimizer-driven sweep
type Result struct {
	SessionID    string               `yaml:"session_id"`
	RunID        string               `yaml:"run_id"`
	Optimizer    string               `yaml:"optimizer"`
	Objective    string               `yaml:"objective"`
	BestConfigID string               `yaml:"best_config_id"`
	BestScore    float64              `yaml:"best_score"`
	BestParams   map[string]string    `yaml:"best_params"`
	Evaluations  int                  `yaml:"evaluations"`
	Reused       int                  `yaml:"reused"` // candidates answered from an earlier identical config
	TimedOut     int                  `yaml:"timed_out"`
	Failed       int                  `yaml:"failed"`
	Converged    bool                 `yaml:"converged"`
	Reason       string               `yaml:"reason"`
	Duration     string               `yaml:"duration"`
	Scores       *metrics.Aggregation `yaml:"scores,omitempty"`
	History      []ResultStep         `yaml:"history"`
}

// ResultStep is one evaluation in tell order
type ResultStep struct {
	ConfigID string  `yaml:"config_id"`
	Score    float64 `yaml:"score"`
	State    string  `yaml:"state"`
}

func formatSet(set params.Set) map[string]string {
	out := make(map[string]string, len(set))
	for k, v := range set {
		out[k] = v.Format()
	}
	return out
}

// WriteResult saves r as YAML at path
func WriteResult(path string, r *Result) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal optimizer result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write optimizer result %s: %w", path, err)
	}
	return nil
}

// ReadResult loads a result written by WriteResult
func ReadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer result %s: %w", path, err)
	}
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer result %s: %w", path, err)
	}
	return &r, nil
}
