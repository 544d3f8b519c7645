package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/collect"
	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Read every run directory into a result table",
	RunE:  runCollect,
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the result table sorted by a column",
	RunE:  runTable,
}

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "List which parameters vary across the collected runs",
	RunE:  runRanges,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(rangesCmd)

	collectCmd.Flags().String("out", "", "result table JSON (default: {data_dir}/{run_id}_results.json)")
	collectCmd.Flags().Bool("strict", false, "fail on an unreadable config instead of skipping the run")

	for _, c := range []*cobra.Command{tableCmd, rangesCmd} {
		c.Flags().String("cache", "", "result table JSON to reuse (default: {data_dir}/{run_id}_results.json)")
		c.Flags().Bool("refresh", false, "collect again even if the cache exists")
	}
	tableCmd.Flags().String("sort", metrics.MetricLossRel, "column to sort by")
	tableCmd.Flags().Bool("desc", false, "sort descending")
	tableCmd.Flags().Int("limit", 0, "print only the first n rows")
	tableCmd.Flags().String("out", "", "write the TSV here instead of stdout")
	tableCmd.Flags().StringArray("fix", nil, "keep only rows with KEY=VALUE (repeatable)")
	rangesCmd.Flags().Float64("tol", results.DefaultTolerance, "float tolerance when comparing values")
}

func defaultTablePath() string {
	return filepath.Join(sweepCfg.DataDir, sweepCfg.RunID+"_results.json")
}

func collectTable(ctx context.Context, strict bool) (*results.Table, error) {
	schema, err := sweepCfg.Schema()
	if err != nil {
		return nil, err
	}
	opts := collect.OptionsFromConfig(sweepCfg)
	opts.Strict = opts.Strict || strict
	return collect.Collect(ctx, schema, opts)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	strict, _ := cmd.Flags().GetBool("strict")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = defaultTablePath()
	}

	table, err := collectTable(ctx, strict)
	if err != nil {
		return err
	}
	if err := table.Save(out); err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)
	if err := store.SaveTable(ctx, table); err != nil {
		return fmt.Errorf("failed to store result table: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "collected %d runs (%d skipped) into %s\n", table.Len(), table.Skipped, out)
	if best, ok := table.Best(metrics.MetricTestAccuracy); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "best accuracy %.2f%% in %s\n", best.Metrics[metrics.MetricTestAccuracy], best.Dir)
	}
	return nil
}

// cachedTable loads the cached table or collects and caches a fresh one
func cachedTable(cmd *cobra.Command) (*results.Table, error) {
	cache, _ := cmd.Flags().GetString("cache")
	refresh, _ := cmd.Flags().GetBool("refresh")
	if cache == "" {
		cache = defaultTablePath()
	}
	if refresh {
		if err := os.Remove(cache); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to drop cached table", "path", cache, "error", err)
		}
	}
	return results.LoadOrCollect(cmd.Context(), cache, func(ctx context.Context) (*results.Table, error) {
		return collectTable(ctx, false)
	})
}

func runTable(cmd *cobra.Command, _ []string) error {
	table, err := cachedTable(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	col, _ := flags.GetString("sort")
	desc, _ := flags.GetBool("desc")
	limit, _ := flags.GetInt("limit")
	out, _ := flags.GetString("out")
	fix, _ := flags.GetStringArray("fix")

	if len(fix) > 0 {
		fixed, err := parseFixed(table, fix)
		if err != nil {
			return err
		}
		table = table.Filter(fixed, results.DefaultTolerance)
	}
	sorted, err := table.SortBy(col, desc)
	if err != nil {
		return err
	}
	if limit > 0 {
		sorted = sorted.Top(limit)
	}

	if out != "" {
		return sorted.SaveTSV(out)
	}
	return sorted.WriteTSV(cmd.OutOrStdout())
}

// parseFixed casts KEY=VALUE pairs through the table schema
func parseFixed(table *results.Table, pairs []string) (params.Set, error) {
	fixed := make(params.Set, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --fix %q, want KEY=VALUE", pair)
		}
		v, err := table.Schema.Cast(strings.TrimSpace(key), strings.TrimSpace(val))
		if err != nil {
			return nil, err
		}
		fixed[strings.TrimSpace(key)] = v
	}
	return fixed, nil
}

func runRanges(cmd *cobra.Command, _ []string) error {
	table, err := cachedTable(cmd)
	if err != nil {
		return err
	}
	tol, _ := cmd.Flags().GetFloat64("tol")
	fmt.Fprint(cmd.OutOrStdout(), table.Ranges(tol).String())
	return nil
}
