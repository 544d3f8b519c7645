package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/storage"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

var (
	v        = config.NewViper()
	sweepCfg *config.Sweep
)

var rootCmd = &cobra.Command{
	Use:   "psweep",
	Short: "Parameter sweeps for the HH neuron simulator",
	Long: `psweep generates simulator config files over a parameter grid, dispatches
them locally or through SLURM, collects the results into sortable tables and
runs optimizer-driven sweeps.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSweep,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "sweep YAML file (default: built-in sweep)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text or json)")
	pf.String("run-id", "", "run id (overrides run_id)")
	pf.String("data-dir", "", "simulator output directory (overrides data_dir)")
	pf.String("config-dir", "", "generated config directory (overrides config_dir)")

	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log_format", pf.Lookup("log-format"))
	_ = v.BindPFlag("run_id", pf.Lookup("run-id"))
	_ = v.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = v.BindPFlag("config_dir", pf.Lookup("config-dir"))
}

// loadSweep reads the sweep file and applies env and flag overrides
func loadSweep(cmd *cobra.Command, _ []string) error {
	s, err := config.LoadSweep(v.GetString("config"))
	if err != nil {
		return err
	}
	if err := config.ApplyOverrides(v, s); err != nil {
		return err
	}
	logger.SetDefault(logger.NewWithFormat(v.GetString("log_format"), s.LogLevel, os.Stderr))
	sweepCfg = s
	logger.Debug("sweep loaded", "config", v.GetString("config"), "run_id", s.RunID)
	return nil
}

func sweepSchema() (*params.Schema, []params.Range, error) {
	schema, err := sweepCfg.Schema()
	if err != nil {
		return nil, nil, err
	}
	ranges, err := sweepCfg.ParamRanges(schema)
	if err != nil {
		return nil, nil, err
	}
	return schema, ranges, nil
}

// openStore opens and initializes the configured result store
func openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.NewStore(sweepCfg.Store.Backend, sweepCfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", sweepCfg.Store.Backend, err)
	}
	return store, nil
}

func closeStore(store storage.Store) {
	if err := storage.CloseIfSupported(store); err != nil {
		logger.Warn("failed to close store", "error", err)
	}
}
