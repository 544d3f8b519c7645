package sweep

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
)

func testSchema(t *testing.T) *params.Schema {
	t.Helper()
	s, err := params.NewSchema(
		params.ParamSpec{Name: params.KeyRunID, Kind: params.KindString, Default: params.String("000")},
		params.ParamSpec{Name: params.KeyConfigID, Kind: params.KindString, Default: params.String("0")},
		params.ParamSpec{Name: params.KeyDirName, Kind: params.KindString, Default: params.String("NOT_PROCESSED")},
		params.ParamSpec{Name: "A", Kind: params.KindInt, Default: params.Int(1)},
		params.ParamSpec{Name: "B", Kind: params.KindFloat, Default: params.Float(0.5)},
		params.ParamSpec{Name: "C", Kind: params.KindString, Default: params.String("x")},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestExpandCount(t *testing.T) {
	tests := []struct {
		name   string
		ranges []params.Range
		want   int
	}{
		{"no ranges", nil, 1},
		{"single", []params.Range{{Name: "A", Values: []params.Value{params.Int(1), params.Int(2), params.Int(3)}}}, 3},
		{"two by three", []params.Range{
			{Name: "A", Values: []params.Value{params.Int(1), params.Int(2)}},
			{Name: "B", Values: []params.Value{params.Float(0.1), params.Float(0.2), params.Float(0.3)}},
		}, 6},
		{"three dims", []params.Range{
			{Name: "A", Values: []params.Value{params.Int(1), params.Int(2)}},
			{Name: "B", Values: []params.Value{params.Float(0.1), params.Float(0.2)}},
			{Name: "C", Values: []params.Value{params.String("p"), params.String("q"), params.String("r")}},
		}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := Expand(tt.ranges)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if len(combos) != tt.want {
				t.Fatalf("expected %d combinations, got %d", tt.want, len(combos))
			}
			seen := make(map[string]bool)
			for _, c := range combos {
				key := params.FormatConfig(c, []string{"A", "B", "C"})
				if seen[key] {
					t.Fatalf("duplicate combination %q", key)
				}
				seen[key] = true
				if len(c) != len(tt.ranges) {
					t.Fatalf("expected %d keys per combination, got %d", len(tt.ranges), len(c))
				}
			}
		})
	}
}

func TestExpandFirstRangeFastest(t *testing.T) {
	combos, err := Expand([]params.Range{
		{Name: "A", Values: []params.Value{params.Int(1), params.Int(2)}},
		{Name: "B", Values: []params.Value{params.Float(0.1), params.Float(0.2)}},
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := [][2]string{{"1", "0.1"}, {"2", "0.1"}, {"1", "0.2"}, {"2", "0.2"}}
	for i, c := range combos {
		if c["A"].Format() != want[i][0] || c["B"].Format() != want[i][1] {
			t.Errorf("combination %d = A=%s B=%s, want A=%s B=%s", i, c["A"], c["B"], want[i][0], want[i][1])
		}
	}
}

func TestExpandEmptyRange(t *testing.T) {
	if _, err := Expand([]params.Range{{Name: "A"}}); err == nil {
		t.Fatal("expected error for range with no values")
	}
}

func TestGenerate(t *testing.T) {
	s := testSchema(t)
	configs, err := Generate("HH", s, []params.Range{
		{Name: "A", Values: []params.Value{params.Int(2), params.Int(3)}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	for i, c := range configs {
		if c.ConfigID != params.SequentialID(i) {
			t.Errorf("config %d: id %q", i, c.ConfigID)
		}
		if len(c.Params) != s.Len() {
			t.Errorf("config %d: expected every schema key, got %d", i, len(c.Params))
		}
		if got, _ := c.Params[params.KeyDirName].Str(); got != DirName("HH", c.ConfigID) {
			t.Errorf("config %d: DIRNAME %q", i, got)
		}
		if !c.Params["B"].Equal(params.Float(0.5)) {
			t.Errorf("config %d: expected default B", i)
		}
	}
	if !configs[1].Params["A"].Equal(params.Int(3)) {
		t.Errorf("expected A=3 in second config, got %v", configs[1].Params["A"])
	}

	if _, err := Generate("HH", s, []params.Range{{Name: "Z", Values: []params.Value{params.Int(1)}}}); err == nil {
		t.Fatal("expected error for unknown range")
	}
	for _, id := range []string{"", "H H", "HH*", "[HH]"} {
		if _, err := Generate(id, s, nil); !errors.Is(err, params.ErrInvalidRunID) {
			t.Errorf("run id %q: expected ErrInvalidRunID, got %v", id, err)
		}
	}
}

func TestSaveWritesEveryKeyInOrder(t *testing.T) {
	s := testSchema(t)
	configs, err := Generate("HH", s, []params.Range{
		{Name: "A", Values: []params.Value{params.Int(2), params.Int(3)}},
		{Name: "C", Values: []params.Value{params.String("p"), params.String("q")}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "config")
	if err := Save(dir, configs, s.Names()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, c := range configs {
		path := filepath.Join(dir, ConfigFileName("HH", c.ConfigID))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		if len(lines) != s.Len() {
			t.Fatalf("%s: expected %d lines, got %d", path, s.Len(), len(lines))
		}
		for i, name := range s.Names() {
			if !strings.HasPrefix(lines[i], name+" \t=\t ") {
				t.Errorf("%s line %d = %q, want key %s", path, i, lines[i], name)
			}
		}

		back, err := params.ParseConfigFile(path, s)
		if err != nil {
			t.Fatalf("ParseConfigFile: %v", err)
		}
		if !back.Equal(c.Params) {
			t.Errorf("%s: round trip mismatch", path)
		}
	}
}

func TestSaveFailurePropagates(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := testSchema(t)
	configs, _ := Generate("HH", s, nil)
	if err := Save(file, configs, s.Names()); err == nil {
		t.Fatal("expected error when the config dir is a file")
	}
}
