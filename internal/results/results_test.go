package results

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	schema, err := params.NewSchema(
		params.ParamSpec{Name: params.KeyRunID, Kind: params.KindString, Default: params.String("000")},
		params.ParamSpec{Name: params.KeyConfigID, Kind: params.KindString, Default: params.String("0")},
		params.ParamSpec{Name: params.KeyDirName, Kind: params.KindString, Default: params.String("NOT_PROCESSED")},
		params.ParamSpec{Name: "A", Kind: params.KindInt, Default: params.Int(1)},
		params.ParamSpec{Name: "B", Kind: params.KindFloat, Default: params.Float(0.5)},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	row := func(id string, a int64, b float64, acc, loss float64) Row {
		set := schema.Defaults()
		set[params.KeyRunID] = params.String("HH")
		set[params.KeyConfigID] = params.String(id)
		set[params.KeyDirName] = params.String("HH_ID" + id)
		set["A"] = params.Int(a)
		set["B"] = params.Float(b)
		return Row{
			Dir:    "HH_ID" + id,
			Params: set,
			Metrics: map[string]float64{
				metrics.MetricTestAccuracy: acc,
				metrics.MetricLossAbs:      loss,
				metrics.MetricLossRel:      loss / 2,
			},
		}
	}

	table := NewTable("HH", schema)
	table.Rows = []Row{
		row("0", 1, 0.5, 80, 0.3),
		row("1", 2, 0.5, math.NaN(), 0.1),
		row("2", 1, 0.500000001, 95, math.NaN()),
		row("3", 2, 0.5, 60, 0.2),
	}
	return table
}

func dirs(t *Table) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Dir
	}
	return out
}

func TestSortByNaNLast(t *testing.T) {
	table := testTable(t)

	asc, err := table.SortBy(metrics.MetricTestAccuracy, false)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	want := "HH_ID3,HH_ID0,HH_ID2,HH_ID1"
	if got := strings.Join(dirs(asc), ","); got != want {
		t.Errorf("ascending = %s, want %s", got, want)
	}

	desc, _ := table.SortBy(metrics.MetricTestAccuracy, true)
	want = "HH_ID2,HH_ID0,HH_ID3,HH_ID1"
	if got := strings.Join(dirs(desc), ","); got != want {
		t.Errorf("descending = %s, want %s", got, want)
	}

	// original table is untouched
	if table.Rows[0].Dir != "HH_ID0" {
		t.Error("SortBy must not reorder the source table")
	}

	if _, err := table.SortBy("NOPE", false); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestSortByParamAndTop(t *testing.T) {
	table := testTable(t)
	sorted, err := table.SortBy("A", true)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	top := sorted.Top(2)
	if top.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", top.Len())
	}
	for _, r := range top.Rows {
		if !r.Params["A"].Equal(params.Int(2)) {
			t.Errorf("expected A=2 in top rows, got %v", r.Params["A"])
		}
	}
	if sorted.Top(100).Len() != 4 {
		t.Error("Top beyond length should return every row")
	}
}

func TestBest(t *testing.T) {
	best, ok := testTable(t).Best(metrics.MetricTestAccuracy)
	if !ok || best.Dir != "HH_ID2" {
		t.Fatalf("expected HH_ID2 as best, got %v %v", best.Dir, ok)
	}
	empty := NewTable("HH", testTable(t).Schema)
	if _, ok := empty.Best(metrics.MetricTestAccuracy); ok {
		t.Fatal("expected no best row in empty table")
	}
}

func TestRangesWithTolerance(t *testing.T) {
	report := testTable(t).Ranges(DefaultTolerance)

	if len(report.Variable) != 1 || report.Variable[0].Name != "A" {
		t.Fatalf("expected only A variable, got %+v", report.Variable)
	}
	if got := report.Variable[0].Values; len(got) != 2 || !got[0].Equal(params.Int(1)) || !got[1].Equal(params.Int(2)) {
		t.Fatalf("expected sorted [1 2], got %v", got)
	}
	if _, ok := report.Constant["B"]; !ok {
		t.Fatal("expected B constant within tolerance")
	}
	if _, ok := report.Constant[params.KeyConfigID]; ok {
		t.Fatal("meta keys must be ignored")
	}
	if !strings.Contains(report.String(), "A\t[1, 2]") {
		t.Errorf("unexpected report text:\n%s", report)
	}
}

func TestFilter(t *testing.T) {
	got := testTable(t).Filter(params.Set{"A": params.Int(1), "B": params.Float(0.5)}, DefaultTolerance)
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
}

func TestWriteTSV(t *testing.T) {
	var sb strings.Builder
	if err := testTable(t).WriteTSV(&sb); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if lines[0] != "DIR\tRUN_ID\tCONFIG_ID\tDIRNAME\tA\tB\tLOSS_REL\tLOSS_ABS\tTEST_ACCURACY" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "\tNaN") {
		t.Errorf("expected NaN accuracy cell, got %q", lines[2])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	table := testTable(t)
	table.Skipped = 1
	path := filepath.Join(t.TempDir(), "data.json")

	if err := table.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.RunID != "HH" || back.Skipped != 1 || back.Len() != 4 {
		t.Fatalf("unexpected header: %s %d %d", back.RunID, back.Skipped, back.Len())
	}
	if strings.Join(back.Schema.Names(), ",") != strings.Join(table.Schema.Names(), ",") {
		t.Fatalf("schema order lost: %v", back.Schema.Names())
	}
	for i := range table.Rows {
		if !back.Rows[i].Params.Equal(table.Rows[i].Params) {
			t.Errorf("row %d params mismatch", i)
		}
	}
	if !math.IsNaN(back.Rows[1].Metrics[metrics.MetricTestAccuracy]) {
		t.Error("expected NaN metric to survive the round trip")
	}
	if back.Rows[0].Metrics[metrics.MetricLossAbs] != 0.3 {
		t.Errorf("expected 0.3, got %v", back.Rows[0].Metrics[metrics.MetricLossAbs])
	}
}

func TestLoadOrCollect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	calls := 0
	collect := func(ctx context.Context) (*Table, error) {
		calls++
		return testTable(t), nil
	}

	first, err := LoadOrCollect(context.Background(), path, collect)
	if err != nil {
		t.Fatalf("LoadOrCollect: %v", err)
	}
	second, err := LoadOrCollect(context.Background(), path, collect)
	if err != nil {
		t.Fatalf("LoadOrCollect: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single collection, got %d", calls)
	}
	if first.Len() != second.Len() {
		t.Fatalf("expected same row count, got %d and %d", first.Len(), second.Len())
	}

	failing := func(ctx context.Context) (*Table, error) { return nil, errors.New("boom") }
	if _, err := LoadOrCollect(context.Background(), filepath.Join(t.TempDir(), "x.json"), failing); err == nil {
		t.Fatal("expected collection error")
	}
}
