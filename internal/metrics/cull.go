package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LossRun is a loss matrix tagged with its source file. Culled runs are
// skipped by every later filter.
type LossRun struct {
	Path   string
	Data   *mat.Dense
	Culled bool
}

// headMean averages every row except the final drop rows.
func headMean(m *mat.Dense, drop int) float64 {
	rows, _ := m.Dims()
	if rows-drop <= 0 {
		return math.NaN()
	}
	return windowMean(m, 0, rows-drop)
}

// CullNaN culls runs whose loss contains NaN.
func CullNaN(runs []LossRun) {
	for i := range runs {
		if runs[i].Culled {
			continue
		}
		if math.IsNaN(headMean(runs[i].Data, 1)) {
			runs[i].Culled = true
		}
	}
}

// CullVariance culls runs whose first column barely moves: the summed
// absolute step change stays below tol.
func CullVariance(runs []LossRun, tol float64) {
	for i := range runs {
		if runs[i].Culled {
			continue
		}
		col := mat.Col(nil, 0, runs[i].Data)
		variation := 0.0
		for j := 1; j < len(col); j++ {
			variation += math.Abs(col[j] - col[j-1])
		}
		if variation < tol {
			runs[i].Culled = true
		}
	}
}

// CullLoss culls runs whose mean loss, with the last one, two or three rows
// dropped, leaves the band [minTol, maxTol].
func CullLoss(runs []LossRun, minTol, maxTol float64) {
	for i := range runs {
		if runs[i].Culled {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for drop := 1; drop <= 3; drop++ {
			v := headMean(runs[i].Data, drop)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if lo < minTol || hi > maxTol || math.IsNaN(lo) {
			runs[i].Culled = true
		}
	}
}

// Survivors returns the paths of runs left unculled
func Survivors(runs []LossRun) []string {
	var out []string
	for _, r := range runs {
		if !r.Culled {
			out = append(out, r.Path)
		}
	}
	return out
}
