// Package collect reads finished run directories back into a result table.
package collect

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Options names the data layout and smoothing windows
type Options struct {
	DataDir        string
	RunID          string
	ConfigFile     string
	LossFile       string
	PercentFile    string
	FirstN         int
	LastN          int
	EnableAccuracy bool
	// Strict fails the whole collection on an unreadable config file
	// instead of skipping that directory.
	Strict bool
}

// DefaultOptions returns the layout written by the simulator
func DefaultOptions(dataDir, runID string) Options {
	return Options{
		DataDir:        dataDir,
		RunID:          runID,
		ConfigFile:     "config.txt",
		LossFile:       "loss.txt",
		PercentFile:    "percent0.txt",
		FirstN:         5,
		LastN:          5,
		EnableAccuracy: true,
	}
}

// OptionsFromConfig maps a sweep file onto collection options. Empty file
// names and windows keep the simulator defaults.
func OptionsFromConfig(s *config.Sweep) Options {
	opts := DefaultOptions(s.DataDir, s.RunID)
	if c := s.Collect.ConfigFile; c != "" {
		opts.ConfigFile = c
	}
	if c := s.Collect.LossFile; c != "" {
		opts.LossFile = c
	}
	if c := s.Collect.PercentFile; c != "" {
		opts.PercentFile = c
	}
	if s.Collect.FirstN > 0 {
		opts.FirstN = s.Collect.FirstN
	}
	if s.Collect.LastN > 0 {
		opts.LastN = s.Collect.LastN
	}
	opts.EnableAccuracy = s.Collect.EnableAccuracy
	opts.Strict = s.Collect.Strict
	return opts
}

// RunDirs lists the directories of dataDir matching {run_id}_*, sorted by name.
func RunDirs(dataDir, runID string) ([]string, error) {
	matches, err := filepath.Glob(params.RunPattern(dataDir, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to list run dirs: %w", err)
	}
	dirs := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, m)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadRow reads one run directory. Only a config failure is returned;
// unreadable metrics become NaN.
func ReadRow(dir string, schema *params.Schema, opts Options) (results.Row, error) {
	set, err := params.ParseConfigFile(filepath.Join(dir, opts.ConfigFile), schema)
	if err != nil {
		return results.Row{}, err
	}
	completed, err := schema.Complete(set)
	if err != nil {
		return results.Row{}, err
	}

	lossPath := filepath.Join(dir, opts.LossFile)
	row := results.Row{
		Dir:    filepath.Base(dir),
		Params: completed,
		Metrics: map[string]float64{
			metrics.MetricLossRel: metrics.LossOrNaN(lossPath, metrics.LossRel, opts.FirstN, opts.LastN),
			metrics.MetricLossAbs: metrics.LossOrNaN(lossPath, metrics.LossAbs, opts.FirstN, opts.LastN),
		},
	}
	if opts.EnableAccuracy {
		row.Metrics[metrics.MetricTestAccuracy] = metrics.PercentOrNaN(filepath.Join(dir, opts.PercentFile))
	} else {
		row.Metrics[metrics.MetricTestAccuracy] = math.NaN()
	}
	return row, nil
}

// Collect builds the result table of opts.RunID
func Collect(ctx context.Context, schema *params.Schema, opts Options) (*results.Table, error) {
	dirs, err := RunDirs(opts.DataDir, opts.RunID)
	if err != nil {
		return nil, err
	}
	logger.Info("collecting runs", "data_dir", opts.DataDir, "run_id", opts.RunID, "found", len(dirs))

	table := results.NewTable(opts.RunID, schema)
	for i, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := ReadRow(dir, schema, opts)
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("failed to read run %s: %w", dir, err)
			}
			logger.Error("skipping run with unreadable config", "dir", dir, "error", err)
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, row)
		logger.Debug("run read", "dir", row.Dir, "index", i+1, "of", len(dirs))
	}

	logger.Info("collection complete", "run_id", opts.RunID, "rows", table.Len(), "skipped", table.Skipped)
	return table, nil
}
