package tracking

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Tag keys set on every exported run
const (
	TagRunName = "mlflow.runName"
	TagSweepID = "psweep.run_id"
	TagDir     = "psweep.dir"
	TagSession = "psweep.session_id"
)

// Exporter writes sweep results into one MLflow experiment
type Exporter struct {
	api          ExperimentsAPI
	experimentID string
	now          func() time.Time
}

// NewExporter creates an exporter on top of an experiments service
func NewExporter(api ExperimentsAPI, experimentID string) *Exporter {
	return &Exporter{api: api, experimentID: experimentID, now: time.Now}
}

// ExportTable creates one finished MLflow run per result row and returns
// the MLflow run ids in row order.
func (e *Exporter) ExportTable(ctx context.Context, table *results.Table) ([]string, error) {
	order := table.Schema.Names()
	ids := make([]string, 0, table.Len())
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		params := make(map[string]string, len(row.Params))
		for k, v := range row.Params {
			params[k] = v.Format()
		}
		name := filepath.Base(row.Dir)
		tags := map[string]string{TagSweepID: table.RunID, TagDir: row.Dir}

		id, err := e.exportRun(ctx, name, tags, order, params, row.Metrics)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	logger.Info("results exported to mlflow", "run_id", table.RunID, "experiment_id", e.experimentID, "runs", len(ids))
	return ids, nil
}

// ExportResult records the best candidate of an optimizer session as a single run
func (e *Exporter) ExportResult(ctx context.Context, r *optimize.Result) (string, error) {
	metrics := map[string]float64{
		"best_score":  r.BestScore,
		"evaluations": float64(r.Evaluations),
		"timed_out":   float64(r.TimedOut),
		"failed":      float64(r.Failed),
	}
	tags := map[string]string{TagSweepID: r.RunID, TagSession: r.SessionID}
	params := make(map[string]string, len(r.BestParams)+2)
	for k, v := range r.BestParams {
		params[k] = v
	}
	params["optimizer"] = r.Optimizer
	params["objective"] = r.Objective

	id, err := e.exportRun(ctx, r.RunID+"_ID"+r.BestConfigID, tags, nil, params, metrics)
	if err != nil {
		return "", err
	}
	logger.Info("optimizer result exported to mlflow", "session_id", r.SessionID, "mlflow_run_id", id)
	return id, nil
}

// exportRun creates a run, logs params (order first, then the rest sorted)
// and every finite metric, and ends it FINISHED. Logging failures end it FAILED.
func (e *Exporter) exportRun(ctx context.Context, name string, tags map[string]string, order []string, params map[string]string, metrics map[string]float64) (string, error) {
	runTags := make([]ml.RunTag, 0, len(tags)+1)
	for _, k := range sortedKeys(tags) {
		runTags = append(runTags, ml.RunTag{Key: k, Value: tags[k]})
	}
	runTags = append(runTags, ml.RunTag{Key: TagRunName, Value: name})

	start := e.now()
	resp, err := e.api.CreateRun(ctx, ml.CreateRun{
		ExperimentId: e.experimentID,
		RunName:      name,
		StartTime:    start.UnixMilli(),
		Tags:         runTags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run %s: %w", name, err)
	}
	if resp == nil || resp.Run == nil || resp.Run.Info == nil {
		return "", fmt.Errorf("failed to create run %s: empty response", name)
	}
	id := resp.Run.Info.RunId

	if err := e.logAll(ctx, id, start, order, params, metrics); err != nil {
		e.end(ctx, id, ml.UpdateRunStatusFailed)
		return id, err
	}
	if err := e.end(ctx, id, ml.UpdateRunStatusFinished); err != nil {
		return id, err
	}
	return id, nil
}

func (e *Exporter) logAll(ctx context.Context, id string, ts time.Time, order []string, params map[string]string, metrics map[string]float64) error {
	seen := make(map[string]bool, len(params))
	keys := make([]string, 0, len(params))
	for _, k := range order {
		if _, ok := params[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for _, k := range sortedKeys(params) {
		if !seen[k] {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		if err := e.api.LogParam(ctx, ml.LogParam{RunId: id, Key: k, Value: params[k]}); err != nil {
			return fmt.Errorf("failed to log parameter %s: %w", k, err)
		}
	}
	for _, k := range sortedKeys(metrics) {
		v := metrics[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			logger.Debug("skipping non-finite metric", "mlflow_run_id", id, "metric", k)
			continue
		}
		if err := e.api.LogMetric(ctx, ml.LogMetric{RunId: id, Key: k, Value: v, Timestamp: ts.UnixMilli()}); err != nil {
			return fmt.Errorf("failed to log metric %s: %w", k, err)
		}
	}
	return nil
}

func (e *Exporter) end(ctx context.Context, id string, status ml.UpdateRunStatus) error {
	_, err := e.api.UpdateRun(ctx, ml.UpdateRun{
		RunId:   id,
		Status:  status,
		EndTime: e.now().UnixMilli(),
	})
	if err != nil {
		logger.Warn("failed to end mlflow run", "mlflow_run_id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
