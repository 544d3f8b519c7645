// Package sweep expands parameter ranges into the cartesian grid of configs
// and writes one config file per grid point.
package sweep

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Config is one fully populated grid point
type Config struct {
	RunID    string
	ConfigID string
	Params   params.Set
}

// DirName is the output directory name of a config: {run_id}_ID{config_id}.
func DirName(runID, configID string) string {
	return fmt.Sprintf("%s_ID%s", runID, configID)
}

// ConfigFileName is the config file name of a config: {run_id}_ID{config_id}.txt.
func ConfigFileName(runID, configID string) string {
	return DirName(runID, configID) + ".txt"
}

// Expand returns every combination of the range values. The first range varies
// fastest. No ranges yields a single empty combination.
func Expand(ranges []params.Range) ([]params.Set, error) {
	total := 1
	for _, r := range ranges {
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("range %s has no values", r.Name)
		}
		total *= len(r.Values)
	}

	out := make([]params.Set, 0, total)
	for i := 0; i < total; i++ {
		combo := make(params.Set, len(ranges))
		rest := i
		for _, r := range ranges {
			combo[r.Name] = r.Values[rest%len(r.Values)]
			rest /= len(r.Values)
		}
		out = append(out, combo)
	}
	return out, nil
}

// Fill sets the meta keys of set for the given run and config ids.
func Fill(set params.Set, runID, configID string) {
	set[params.KeyRunID] = params.String(runID)
	set[params.KeyConfigID] = params.String(configID)
	set[params.KeyDirName] = params.String(DirName(runID, configID))
}

// Generate expands ranges, overlays every combination onto the schema
// defaults and assigns zero-based sequential config ids.
func Generate(runID string, schema *params.Schema, ranges []params.Range) ([]Config, error) {
	if err := params.ValidateRunID(runID); err != nil {
		return nil, err
	}
	if err := params.ValidateRanges(schema, ranges); err != nil {
		return nil, fmt.Errorf("invalid ranges: %w", err)
	}
	combos, err := Expand(ranges)
	if err != nil {
		return nil, err
	}

	configs := make([]Config, 0, len(combos))
	for i, combo := range combos {
		set, err := schema.Complete(combo)
		if err != nil {
			return nil, fmt.Errorf("failed to complete combination %d: %w", i, err)
		}
		id := params.SequentialID(i)
		Fill(set, runID, id)
		configs = append(configs, Config{RunID: runID, ConfigID: id, Params: set})
	}

	logger.Info("sweep generated", "run_id", runID, "ranges", len(ranges), "configs", len(configs))
	return configs, nil
}

// Save writes every config into dir, creating it if needed. Lines follow order.
func Save(dir string, configs []Config, order []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir %s: %w", dir, err)
	}
	for _, c := range configs {
		path := filepath.Join(dir, ConfigFileName(c.RunID, c.ConfigID))
		if err := params.WriteConfigFile(path, c.Params, order); err != nil {
			return err
		}
		logger.Debug("config written", "path", path)
	}
	logger.Info("configs saved", "dir", dir, "count", len(configs))
	return nil
}
