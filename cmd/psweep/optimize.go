package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/dispatch"
	"github.com/GoSim-25-26J-441/psweep/internal/notify"
	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run an optimizer-driven sweep",
	Long: `optimize asks the configured optimizer for parameter sets, writes a
hash-identified config for each, dispatches it and waits for the DONE marker
before reading its score. Lower scores are better.`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	f := optimizeCmd.Flags()
	f.String("optimizer", "", "random or hillclimb (overrides optimize.optimizer)")
	f.String("objective", "", "accuracy or loss (overrides optimize.objective)")
	f.Int("budget", 0, "number of evaluations (overrides optimize.budget)")
	f.Int("workers", 0, "concurrent evaluations (overrides optimize.workers)")
	f.String("out", "", "result YAML (overrides optimize.output)")
	f.String("poll-interval", "", "marker poll interval (overrides poll.interval)")
	f.Int("poll-limit", 0, "marker polls before giving up (overrides poll.limit)")
	f.String("callback-url", "", "POST the result summary here when the session ends")

	_ = v.BindPFlag("optimize.optimizer", f.Lookup("optimizer"))
	_ = v.BindPFlag("optimize.objective", f.Lookup("objective"))
	_ = v.BindPFlag("optimize.budget", f.Lookup("budget"))
	_ = v.BindPFlag("optimize.workers", f.Lookup("workers"))
	_ = v.BindPFlag("optimize.output", f.Lookup("out"))
	_ = v.BindPFlag("poll.interval", f.Lookup("poll-interval"))
	_ = v.BindPFlag("poll.limit", f.Lookup("poll-limit"))
	_ = v.BindPFlag("optimize.callback_url", f.Lookup("callback-url"))
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if cb := sweepCfg.Optimize.CallbackURL; cb != "" {
		if err := notify.ValidateURL(cb); err != nil {
			return err
		}
	}

	d, err := dispatch.NewDispatcher(dispatch.OptionsFromConfig(sweepCfg.Dispatch))
	if err != nil {
		return err
	}
	poller, err := dispatch.PollerFromConfig(sweepCfg.Poll)
	if err != nil {
		return err
	}
	orch, err := optimize.FromConfig(sweepCfg, d, poller)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)
	orch.WithStore(store)

	result, runErr := orch.Run(ctx, sweepCfg.Optimize.Budget, sweepCfg.Optimize.Workers)
	if result == nil {
		return runErr
	}
	// a cancelled run still leaves its partial result behind
	if err := optimize.WriteResult(sweepCfg.Optimize.Output, result); err != nil {
		return err
	}
	if cb := sweepCfg.Optimize.CallbackURL; cb != "" {
		// the run context may already be cancelled
		if err := notify.NewNotifier().Send(context.WithoutCancel(ctx), cb, sweepCfg.Optimize.CallbackSecret, notify.PayloadFor(result, runErr)); err != nil {
			logger.Error("failed to deliver optimization callback", "error", err)
		}
	}
	if runErr != nil {
		logger.Warn("optimization interrupted", "error", runErr, "evaluations", result.Evaluations)
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "best score %g (config %s) after %d evaluations, written to %s\n",
		result.BestScore, result.BestConfigID, result.Evaluations, sweepCfg.Optimize.Output)
	return nil
}
