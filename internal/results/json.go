package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

type specDoc struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Default string `json:"default"`
	Scale   string `json:"scale,omitempty"`
}

// rowDoc stores parameters as canonical text and NaN metrics as null
type rowDoc struct {
	Dir     string              `json:"dir"`
	Params  map[string]string   `json:"params"`
	Metrics map[string]*float64 `json:"metrics"`
}

type tableDoc struct {
	RunID   string    `json:"run_id"`
	Params  []specDoc `json:"params"`
	Metrics []string  `json:"metrics"`
	Skipped int       `json:"skipped"`
	Rows    []rowDoc  `json:"rows"`
}

// MarshalJSON encodes the table with its schema so it can be reloaded
func (t *Table) MarshalJSON() ([]byte, error) {
	doc := tableDoc{
		RunID:   t.RunID,
		Metrics: t.Metrics,
		Skipped: t.Skipped,
		Rows:    make([]rowDoc, 0, len(t.Rows)),
	}
	for _, spec := range t.Schema.Specs() {
		doc.Params = append(doc.Params, specDoc{
			Name:    spec.Name,
			Kind:    spec.Kind.String(),
			Default: spec.Default.Format(),
			Scale:   string(spec.Scale),
		})
	}
	for _, r := range t.Rows {
		rd := rowDoc{
			Dir:     r.Dir,
			Params:  make(map[string]string, len(r.Params)),
			Metrics: make(map[string]*float64, len(r.Metrics)),
		}
		for k, v := range r.Params {
			rd.Params[k] = v.Format()
		}
		for k, v := range r.Metrics {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rd.Metrics[k] = nil
				continue
			}
			rd.Metrics[k] = &v
		}
		doc.Rows = append(doc.Rows, rd)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a table written by MarshalJSON
func (t *Table) UnmarshalJSON(data []byte) error {
	var doc tableDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	specs := make([]params.ParamSpec, 0, len(doc.Params))
	for _, sd := range doc.Params {
		kind, err := params.ParseKind(sd.Kind)
		if err != nil {
			return fmt.Errorf("column %s: %w", sd.Name, err)
		}
		def, err := params.Parse(kind, sd.Default)
		if err != nil {
			return fmt.Errorf("column %s: %w", sd.Name, err)
		}
		specs = append(specs, params.ParamSpec{Name: sd.Name, Kind: kind, Default: def, Scale: params.Scale(sd.Scale)})
	}
	schema, err := params.NewSchema(specs...)
	if err != nil {
		return err
	}

	rows := make([]Row, 0, len(doc.Rows))
	for i, rd := range doc.Rows {
		row := Row{Dir: rd.Dir, Params: make(params.Set, len(rd.Params)), Metrics: make(map[string]float64, len(rd.Metrics))}
		for k, text := range rd.Params {
			v, err := schema.Cast(k, text)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			row.Params[k] = v
		}
		for k, v := range rd.Metrics {
			if v == nil {
				row.Metrics[k] = math.NaN()
			} else {
				row.Metrics[k] = *v
			}
		}
		rows = append(rows, row)
	}

	*t = Table{RunID: doc.RunID, Schema: schema, Metrics: doc.Metrics, Rows: rows, Skipped: doc.Skipped}
	return nil
}

// Save writes the table as JSON to path
func (t *Table) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write table %s: %w", path, err)
	}
	return nil
}

// Load reads a table saved with Save
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	t := &Table{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", path, err)
	}
	return t, nil
}

// CollectFunc produces a fresh table
type CollectFunc func(ctx context.Context) (*Table, error)

// LoadOrCollect loads path when it exists; otherwise it collects and saves
// the table to path.
func LoadOrCollect(ctx context.Context, path string, collect CollectFunc) (*Table, error) {
	if _, err := os.Stat(path); err == nil {
		logger.Info("loading saved table", "path", path)
		return Load(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	t, err := collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.Save(path); err != nil {
		return nil, err
	}
	logger.Info("table collected and saved", "path", path, "rows", t.Len())
	return t, nil
}
