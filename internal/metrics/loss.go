package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Column names of the derived metrics in a result row
const (
	MetricLossAbs      = "LOSS_ABS"
	MetricLossRel      = "LOSS_REL"
	MetricTestAccuracy = "TEST_ACCURACY"
)

// LossMode selects how a loss matrix is reduced to a scalar
type LossMode string

const (
	// LossAbs is the mean of the trailing window
	LossAbs LossMode = "abs"
	// LossRel is the trailing-window mean over the leading-window mean
	LossRel LossMode = "rel"
)

// ErrEmptyLoss is returned for a loss file without numeric rows.
var ErrEmptyLoss = errors.New("loss matrix has no rows")

// ReadLossMatrix parses comma-delimited numeric rows. Empty trailing fields,
// as left by a trailing comma, are ignored.
func ReadLossMatrix(r io.Reader) (*mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var data []float64
	rows, cols := 0, 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read loss row %d: %w", rows+1, err)
		}
		for len(record) > 0 && strings.TrimSpace(record[len(record)-1]) == "" {
			record = record[:len(record)-1]
		}
		if len(record) == 0 {
			continue
		}
		if cols == 0 {
			cols = len(record)
		} else if len(record) != cols {
			return nil, fmt.Errorf("loss row %d has %d fields, want %d", rows+1, len(record), cols)
		}
		for _, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("loss row %d: invalid value %q", rows+1, field)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, ErrEmptyLoss
	}
	return mat.NewDense(rows, cols, data), nil
}

// windowMean averages every value of rows [from, to).
func windowMean(m *mat.Dense, from, to int) float64 {
	_, c := m.Dims()
	view := m.Slice(from, to, 0, c)
	return mat.Sum(view) / float64((to-from)*c)
}

// Loss reduces a loss matrix. Windows larger than the matrix are clamped to its row count.
func Loss(m *mat.Dense, mode LossMode, firstN, lastN int) (float64, error) {
	if m == nil {
		return math.NaN(), ErrEmptyLoss
	}
	rows, _ := m.Dims()
	if firstN <= 0 || lastN <= 0 {
		return math.NaN(), fmt.Errorf("loss windows must be positive, got first_n=%d last_n=%d", firstN, lastN)
	}
	lastN = min(lastN, rows)
	firstN = min(firstN, rows)

	final := windowMean(m, rows-lastN, rows)
	switch mode {
	case LossAbs, "":
		return final, nil
	case LossRel:
		return final / windowMean(m, 0, firstN), nil
	default:
		return math.NaN(), fmt.Errorf("unknown loss mode: %s", mode)
	}
}

// ReadLoss reads a loss file and reduces it with Loss.
func ReadLoss(path string, mode LossMode, firstN, lastN int) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to open loss file: %w", err)
	}
	defer f.Close()

	m, err := ReadLossMatrix(f)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to parse loss file %s: %w", path, err)
	}
	return Loss(m, mode, firstN, lastN)
}

// LossOrNaN is ReadLoss with the error logged and replaced by NaN.
func LossOrNaN(path string, mode LossMode, firstN, lastN int) float64 {
	v, err := ReadLoss(path, mode, firstN, lastN)
	if err != nil {
		logger.Warn("loss unreadable, using NaN", "path", path, "mode", string(mode), "error", err)
		return math.NaN()
	}
	return v
}
