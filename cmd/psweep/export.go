package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/internal/tracking"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export results to external tracking systems",
}

var exportMLflowCmd = &cobra.Command{
	Use:   "mlflow",
	Short: "Log every collected run, or an optimizer result, to MLflow",
	RunE:  runExportMLflow,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportMLflowCmd)

	f := exportMLflowCmd.Flags()
	f.String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	f.String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	f.String("table", "", "result table JSON to export (default: collect now)")
	f.String("result", "", "optimizer result YAML to export instead of the table")

	_ = v.BindPFlag("tracking.tracking_uri", f.Lookup("tracking-uri"))
	_ = v.BindPFlag("tracking.experiment_id", f.Lookup("experiment-id"))
}

func runExportMLflow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	exporter, err := tracking.NewExporterFromConfig(sweepCfg.Tracking)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("result"); path != "" {
		r, err := optimize.ReadResult(path)
		if err != nil {
			return err
		}
		id, err := exporter.ExportResult(ctx, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported optimizer session %s as mlflow run %s\n", r.SessionID, id)
		return nil
	}

	var table *results.Table
	if path, _ := cmd.Flags().GetString("table"); path != "" {
		table, err = results.Load(path)
	} else {
		table, err = collectTable(ctx, false)
	}
	if err != nil {
		return err
	}
	ids, err := exporter.ExportTable(ctx, table)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d runs to experiment %s\n", len(ids), sweepCfg.Tracking.ExperimentID)
	return nil
}
