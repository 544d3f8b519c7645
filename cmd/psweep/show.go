package main

import (
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective sweep after environment and flag overrides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := config.MarshalSweepYAML(sweepCfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
