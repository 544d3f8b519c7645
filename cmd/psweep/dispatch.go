package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/dispatch"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Launch the simulator on generated configs",
}

var dispatchIndivCmd = &cobra.Command{
	Use:   "indiv",
	Short: "Launch one job per config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDispatch(cmd, 1)
	},
}

var dispatchMultiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Launch jobs covering n_per_job consecutive configs each",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDispatch(cmd, sweepCfg.Dispatch.NPerJob)
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.AddCommand(dispatchIndivCmd)
	dispatchCmd.AddCommand(dispatchMultiCmd)

	pf := dispatchCmd.PersistentFlags()
	pf.String("mode", "", "local or slurm (overrides dispatch.mode)")
	pf.Int("n", 0, "number of configs to dispatch (default: count config files)")
	pf.Bool("yes", false, "do not ask for confirmation")
	pf.Bool("detach", false, "run local commands in the background and wait for all")
	_ = v.BindPFlag("dispatch.mode", pf.Lookup("mode"))

	dispatchMultiCmd.Flags().Int("n-per-job", 0, "configs per job (overrides dispatch.n_per_job)")
	_ = v.BindPFlag("dispatch.n_per_job", dispatchMultiCmd.Flags().Lookup("n-per-job"))
}

func runDispatch(cmd *cobra.Command, nPerJob int) error {
	flags := cmd.Flags()
	n, _ := flags.GetInt("n")
	yes, _ := flags.GetBool("yes")
	detach, _ := flags.GetBool("detach")

	if n <= 0 {
		count, err := dispatch.CountConfigs(sweepCfg.ConfigDir, sweepCfg.RunID)
		if err != nil {
			return err
		}
		n = count
	}

	opts := dispatch.OptionsFromConfig(sweepCfg.Dispatch)
	opts.Detach = detach
	d, err := dispatch.NewDispatcher(opts)
	if err != nil {
		return err
	}

	var confirm dispatch.ConfirmFunc
	if !yes {
		confirm = dispatch.PromptConfirm(os.Stdin, cmd.ErrOrStderr())
	}
	jobs, err := d.SubmitSweep(cmd.Context(), sweepCfg.RunID, n, nPerJob, confirm)
	d.Wait()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dispatched %d jobs for %d configs of run %s\n", jobs, n, sweepCfg.RunID)
	return nil
}
