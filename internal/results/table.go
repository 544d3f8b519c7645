// Package results holds collected sweep rows and the views derived from them.
package results

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
)

// DefaultTolerance is the float comparison tolerance for range analysis.
const DefaultTolerance = 1e-5

// DefaultMetrics is the metric column order of a collected table
var DefaultMetrics = []string{metrics.MetricLossRel, metrics.MetricLossAbs, metrics.MetricTestAccuracy}

// ErrUnknownColumn is returned for a column that is neither a parameter nor a metric.
var ErrUnknownColumn = errors.New("unknown column")

// Row is one completed run: its directory, parameters and metrics.
// Unreadable metrics are NaN.
type Row struct {
	Dir     string
	Params  params.Set
	Metrics map[string]float64
}

// Value returns the cell of column, metrics first.
func (r Row) Value(column string) (params.Value, bool) {
	if v, ok := r.Metrics[column]; ok {
		return params.Float(v), true
	}
	v, ok := r.Params[column]
	return v, ok
}

// Table is the result of a collection. Row order carries no meaning.
type Table struct {
	RunID   string
	Schema  *params.Schema
	Metrics []string
	Rows    []Row
	// Skipped counts run directories dropped because their config was unreadable.
	Skipped int
}

// NewTable creates an empty table with the default metric columns
func NewTable(runID string, schema *params.Schema) *Table {
	return &Table{
		RunID:   runID,
		Schema:  schema,
		Metrics: append([]string(nil), DefaultMetrics...),
	}
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.Rows) }

// Columns returns parameter columns in schema order followed by metric columns.
func (t *Table) Columns() []string {
	cols := t.Schema.Names()
	return append(cols, t.Metrics...)
}

// HasColumn reports whether column is a parameter or metric column
func (t *Table) HasColumn(column string) bool {
	if _, ok := t.Schema.Lookup(column); ok {
		return true
	}
	for _, m := range t.Metrics {
		if m == column {
			return true
		}
	}
	return false
}

// clone copies the table header with the given rows
func (t *Table) clone(rows []Row) *Table {
	return &Table{
		RunID:   t.RunID,
		Schema:  t.Schema,
		Metrics: append([]string(nil), t.Metrics...),
		Rows:    rows,
		Skipped: t.Skipped,
	}
}

// less orders two cells; NaN and missing cells sort last regardless of direction.
func less(a, b params.Value, aok, bok, descending bool) bool {
	aMissing := !aok || (a.Kind() != params.KindString && math.IsNaN(a.Float64()))
	bMissing := !bok || (b.Kind() != params.KindString && math.IsNaN(b.Float64()))
	if aMissing || bMissing {
		return !aMissing && bMissing
	}
	if a.Kind() == params.KindString || b.Kind() == params.KindString {
		if descending {
			return a.Format() > b.Format()
		}
		return a.Format() < b.Format()
	}
	if descending {
		return a.Float64() > b.Float64()
	}
	return a.Float64() < b.Float64()
}

// SortBy returns a new table sorted on column. The sort is stable and NaN sorts last.
func (t *Table) SortBy(column string, descending bool) (*Table, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	rows := append([]Row(nil), t.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i].Value(column)
		b, bok := rows[j].Value(column)
		return less(a, b, aok, bok, descending)
	})
	return t.clone(rows), nil
}

// Top returns the first n rows as a new table
func (t *Table) Top(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.clone(append([]Row(nil), t.Rows[:n]...))
}

// Best returns the row with the largest finite value of column.
func (t *Table) Best(column string) (Row, bool) {
	best, found := Row{}, false
	bestVal := math.Inf(-1)
	for _, r := range t.Rows {
		v, ok := r.Value(column)
		if !ok || v.Kind() == params.KindString || math.IsNaN(v.Float64()) {
			continue
		}
		if !found || v.Float64() > bestVal {
			best, bestVal, found = r, v.Float64(), true
		}
	}
	return best, found
}

// Filter keeps the rows whose parameters match every entry of fixed. Floats
// compare within tol.
func (t *Table) Filter(fixed params.Set, tol float64) *Table {
	var rows []Row
	for _, r := range t.Rows {
		if matches(r.Params, fixed, tol) {
			rows = append(rows, r)
		}
	}
	return t.clone(rows)
}

func matches(set, fixed params.Set, tol float64) bool {
	for k, want := range fixed {
		got, ok := set[k]
		if !ok || !sameValue(got, want, tol) {
			return false
		}
	}
	return true
}

func sameValue(a, b params.Value, tol float64) bool {
	if a.Kind() == params.KindFloat || b.Kind() == params.KindFloat {
		return math.Abs(a.Float64()-b.Float64()) < tol
	}
	return a.Equal(b)
}

// RangeReport splits parameter columns into swept and constant ones
type RangeReport struct {
	Variable []params.Range
	Constant params.Set
}

// Ranges lists the distinct values of every non-meta parameter column. Floats
// within tol of a value already seen count as that value.
func (t *Table) Ranges(tol float64) RangeReport {
	report := RangeReport{Constant: make(params.Set)}
	if len(t.Rows) == 0 {
		return report
	}
	for _, spec := range t.Schema.Specs() {
		if params.IsMeta(spec.Name) {
			continue
		}
		var unique []params.Value
		for _, r := range t.Rows {
			v, ok := r.Params[spec.Name]
			if !ok {
				continue
			}
			seen := false
			for _, u := range unique {
				if sameValue(u, v, tol) {
					seen = true
					break
				}
			}
			if !seen {
				unique = append(unique, v)
			}
		}
		switch len(unique) {
		case 0:
		case 1:
			report.Constant[spec.Name] = unique[0]
		default:
			sort.SliceStable(unique, func(i, j int) bool { return less(unique[i], unique[j], true, true, false) })
			report.Variable = append(report.Variable, params.Range{Name: spec.Name, Values: unique})
		}
	}
	return report
}

// String renders the report one parameter per line
func (r RangeReport) String() string {
	var sb strings.Builder
	sb.WriteString("variable:\n")
	for _, rg := range r.Variable {
		vals := make([]string, len(rg.Values))
		for i, v := range rg.Values {
			vals[i] = v.Format()
		}
		fmt.Fprintf(&sb, "  %s\t[%s]\n", rg.Name, strings.Join(vals, ", "))
	}
	sb.WriteString("constant:\n")
	for _, k := range r.Constant.Keys() {
		fmt.Fprintf(&sb, "  %s\t%s\n", k, r.Constant[k].Format())
	}
	return sb.String()
}
