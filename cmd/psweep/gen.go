package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/sweep"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate config files for every grid combination",
	RunE:  runGen,
}

var genStamp bool

func init() {
	genCmd.Flags().BoolVar(&genStamp, "stamp", false, "append a timestamp to the run id")
	rootCmd.AddCommand(genCmd)
}

func runGen(cmd *cobra.Command, _ []string) error {
	if genStamp {
		sweepCfg.RunID = utils.GenerateRunID(sweepCfg.RunID)
	}
	schema, ranges, err := sweepSchema()
	if err != nil {
		return err
	}
	configs, err := sweep.Generate(sweepCfg.RunID, schema, ranges)
	if err != nil {
		return err
	}
	if err := sweep.Save(sweepCfg.ConfigDir, configs, schema.Names()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d configs for run %s in %s\n", len(configs), sweepCfg.RunID, sweepCfg.ConfigDir)
	return nil
}
