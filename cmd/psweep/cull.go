package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/collect"
	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

var cullCmd = &cobra.Command{
	Use:   "cull",
	Short: "List runs whose loss curves pass the NaN, variance and band filters",
	Long: `cull reads the loss file of every run directory and drops runs whose loss
contains NaN, whose first column barely moves (--variance-tol) or whose mean
loss leaves [--min, --max]. Surviving run directories are printed one per line.`,
	RunE: runCull,
}

func init() {
	rootCmd.AddCommand(cullCmd)

	f := cullCmd.Flags()
	f.Float64("variance-tol", 0, "cull runs whose summed first-column change is below this (0 disables)")
	f.Float64("min", 0, "lower bound of the mean loss band")
	f.Float64("max", 0, "upper bound of the mean loss band (0 disables the band filter)")
}

func runCull(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	varTol, _ := flags.GetFloat64("variance-tol")
	minTol, _ := flags.GetFloat64("min")
	maxTol, _ := flags.GetFloat64("max")

	dirs, err := collect.RunDirs(sweepCfg.DataDir, sweepCfg.RunID)
	if err != nil {
		return err
	}

	lossFile := collect.OptionsFromConfig(sweepCfg).LossFile
	runs := make([]metrics.LossRun, 0, len(dirs))
	for _, dir := range dirs {
		path := filepath.Join(dir, lossFile)
		f, err := os.Open(path)
		if err != nil {
			logger.Warn("skipping run without loss file", "path", path, "error", err)
			continue
		}
		m, err := metrics.ReadLossMatrix(f)
		f.Close()
		if err != nil {
			logger.Warn("skipping unreadable loss file", "path", path, "error", err)
			continue
		}
		runs = append(runs, metrics.LossRun{Path: dir, Data: m})
	}

	metrics.CullNaN(runs)
	if varTol > 0 {
		metrics.CullVariance(runs, varTol)
	}
	if maxTol > 0 {
		metrics.CullLoss(runs, minTol, maxTol)
	}

	survivors := metrics.Survivors(runs)
	logger.Info("culled runs", "read", len(runs), "kept", len(survivors))
	for _, dir := range survivors {
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(dir))
	}
	return nil
}
