package results

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// formatMetric renders NaN as "NaN" and everything else in shortest form
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTSV writes a header and one line per row: directory, parameters in
// schema order, then metrics.
func (t *Table) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := append([]string{"DIR"}, t.Columns()...)
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return err
	}

	names := t.Schema.Names()
	for _, r := range t.Rows {
		cells := make([]string, 0, len(header))
		cells = append(cells, r.Dir)
		for _, name := range names {
			if v, ok := r.Params[name]; ok {
				cells = append(cells, v.Format())
			} else {
				cells = append(cells, "")
			}
		}
		for _, m := range t.Metrics {
			v, ok := r.Metrics[m]
			if !ok {
				v = math.NaN()
			}
			cells = append(cells, formatMetric(v))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveTSV writes the table to path as TSV, rows in their current order.
func (t *Table) SaveTSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.WriteTSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
