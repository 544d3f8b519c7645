package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
)

// fakeExperiments records calls in memory
type fakeExperiments struct {
	mu       sync.Mutex
	created  []ml.CreateRun
	params   map[string][]ml.LogParam
	metrics  map[string][]ml.LogMetric
	statuses map[string]ml.UpdateRunStatus
	paramErr error
}

func newFakeExperiments() *fakeExperiments {
	return &fakeExperiments{
		params:   make(map[string][]ml.LogParam),
		metrics:  make(map[string][]ml.LogMetric),
		statuses: make(map[string]ml.UpdateRunStatus),
	}
}

func (f *fakeExperiments) CreateRun(ctx context.Context, req ml.CreateRun) (*ml.CreateRunResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	id := fmt.Sprintf("mlrun-%d", len(f.created))
	return &ml.CreateRunResponse{Run: &ml.Run{Info: &ml.RunInfo{RunId: id}}}, nil
}

func (f *fakeExperiments) LogParam(ctx context.Context, req ml.LogParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paramErr != nil {
		return f.paramErr
	}
	f.params[req.RunId] = append(f.params[req.RunId], req)
	return nil
}

func (f *fakeExperiments) LogMetric(ctx context.Context, req ml.LogMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[req.RunId] = append(f.metrics[req.RunId], req)
	return nil
}

func (f *fakeExperiments) UpdateRun(ctx context.Context, req ml.UpdateRun) (*ml.UpdateRunResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[req.RunId] = req.Status
	return &ml.UpdateRunResponse{}, nil
}

func testTable(t *testing.T) *results.Table {
	t.Helper()
	schema, err := params.NewSchema(
		params.ParamSpec{Name: "RUN_ID", Kind: params.KindString, Default: params.String("HH")},
		params.ParamSpec{Name: "GNA", Kind: params.KindFloat, Default: params.Float(120)},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	table := results.NewTable("HH", schema)
	table.Rows = []results.Row{
		{
			Dir:     "data/HH_ID0",
			Params:  params.Set{"RUN_ID": params.String("HH"), "GNA": params.Float(100)},
			Metrics: map[string]float64{"LOSS_ABS": 3.5, "LOSS_REL": 0.5, "TEST_ACCURACY": math.NaN()},
		},
		{
			Dir:     "data/HH_ID1",
			Params:  params.Set{"RUN_ID": params.String("HH"), "GNA": params.Float(140)},
			Metrics: map[string]float64{"LOSS_ABS": 2, "LOSS_REL": 0.25, "TEST_ACCURACY": 75.5},
		},
	}
	return table
}

func TestExportTable(t *testing.T) {
	api := newFakeExperiments()
	exp := NewExporter(api, "42")

	ids, err := exp.ExportTable(context.Background(), testTable(t))
	if err != nil {
		t.Fatalf("ExportTable: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(ids))
	}
	if api.created[0].ExperimentId != "42" || api.created[0].RunName != "HH_ID0" {
		t.Errorf("unexpected create request %+v", api.created[0])
	}

	p := api.params[ids[0]]
	if len(p) != 2 || p[0].Key != "RUN_ID" || p[1].Key != "GNA" || p[1].Value != "100.0" {
		t.Errorf("expected params in schema order, got %+v", p)
	}
	if m := api.metrics[ids[0]]; len(m) != 2 {
		t.Errorf("expected NaN accuracy to be skipped, got %+v", m)
	}
	if m := api.metrics[ids[1]]; len(m) != 3 {
		t.Errorf("expected 3 metrics, got %+v", m)
	}
	for _, id := range ids {
		if api.statuses[id] != ml.UpdateRunStatusFinished {
			t.Errorf("expected %s finished, got %s", id, api.statuses[id])
		}
	}
}

func TestExportTableMarksFailedRun(t *testing.T) {
	api := newFakeExperiments()
	api.paramErr = errors.New("boom")

	ids, err := NewExporter(api, "1").ExportTable(context.Background(), testTable(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ids) != 0 {
		t.Errorf("expected no completed runs, got %v", ids)
	}
	if api.statuses["mlrun-1"] != ml.UpdateRunStatusFailed {
		t.Errorf("expected run marked failed, got %s", api.statuses["mlrun-1"])
	}
}

func TestExportResult(t *testing.T) {
	api := newFakeExperiments()
	r := &optimize.Result{
		SessionID:    "s-1",
		RunID:        "NG",
		Optimizer:    "random",
		Objective:    "accuracy",
		BestConfigID: "99",
		BestScore:    12.5,
		BestParams:   map[string]string{"LF_OUT": "2.0"},
		Evaluations:  4,
	}
	id, err := NewExporter(api, "7").ExportResult(context.Background(), r)
	if err != nil {
		t.Fatalf("ExportResult: %v", err)
	}
	if api.created[0].RunName != "NG_ID99" {
		t.Errorf("unexpected run name %s", api.created[0].RunName)
	}
	if len(api.params[id]) != 3 {
		t.Errorf("expected 3 params, got %+v", api.params[id])
	}
	if len(api.metrics[id]) != 4 {
		t.Errorf("expected 4 metrics, got %+v", api.metrics[id])
	}
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Tracking
		wantHost    string
		wantProfile string
		wantErr     bool
	}{
		{name: "plain mlflow", cfg: config.Tracking{TrackingURI: "http://localhost:5000"}, wantHost: "http://localhost:5000"},
		{name: "databricks host env", cfg: config.Tracking{TrackingURI: "databricks", DatabricksHost: "https://x.cloud.databricks.com"}, wantHost: "https://x.cloud.databricks.com"},
		{name: "databricks profile", cfg: config.Tracking{TrackingURI: "databricks://dev"}, wantProfile: "dev"},
		{name: "workspace url", cfg: config.Tracking{TrackingURI: "https://y.azuredatabricks.net/"}, wantHost: "https://y.azuredatabricks.net/"},
		{name: "databricks without host", cfg: config.Tracking{TrackingURI: "databricks"}, wantErr: true},
		{name: "empty uri", cfg: config.Tracking{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClientConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ClientConfig: %v", err)
			}
			if got.Host != tt.wantHost || got.Profile != tt.wantProfile {
				t.Errorf("expected host %q profile %q, got %q %q", tt.wantHost, tt.wantProfile, got.Host, got.Profile)
			}
		})
	}
}

func TestIsDatabricks(t *testing.T) {
	if IsDatabricks("http://localhost:5000") {
		t.Error("plain server detected as databricks")
	}
	if !IsDatabricks("https://abc.gcp.databricks.com/ml") {
		t.Error("gcp workspace not detected")
	}
}
