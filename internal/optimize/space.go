package optimize

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

// Dimension is one searchable parameter. Numeric dimensions span [Lo, Hi]
// of their listed candidates; string dimensions choose among Choices.
type Dimension struct {
	Name    string
	Kind    params.Kind
	Scale   params.Scale
	Lo, Hi  float64
	Choices []params.Value
}

// Categorical reports whether the dimension is sampled from its choices
func (d Dimension) Categorical() bool {
	return d.Kind == params.KindString
}

func (d Dimension) logScale() bool {
	return d.Scale == params.ScaleLog && d.Lo > 0 && d.Hi > 0
}

// unit maps a numeric value into [0, 1], in log space for log dimensions.
func (d Dimension) unit(v float64) float64 {
	if d.Hi == d.Lo {
		return 0
	}
	if d.logScale() {
		return (math.Log(v) - math.Log(d.Lo)) / (math.Log(d.Hi) - math.Log(d.Lo))
	}
	return (v - d.Lo) / (d.Hi - d.Lo)
}

// value maps u in [0, 1] back onto the dimension, rounding ints.
func (d Dimension) value(u float64) params.Value {
	u = utils.ClampFloat64(u, 0, 1)
	var f float64
	if d.logScale() {
		f = math.Exp(math.Log(d.Lo) + u*(math.Log(d.Hi)-math.Log(d.Lo)))
	} else {
		f = d.Lo + u*(d.Hi-d.Lo)
	}
	f = utils.ClampFloat64(f, d.Lo, d.Hi)
	if d.Kind == params.KindInt {
		return params.Int(int64(math.Round(f)))
	}
	return params.Float(f)
}

// Space is the search space of an optimizer-driven sweep: the swept ranges
// reinterpreted as bounded intervals over the schema.
type Space struct {
	schema *params.Schema
	dims   []Dimension
}

// NewSpace builds a space from the sweep ranges. Ranges keep their order.
func NewSpace(schema *params.Schema, ranges []params.Range) (*Space, error) {
	if err := params.ValidateRanges(schema, ranges); err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("search space needs at least one range")
	}

	dims := make([]Dimension, 0, len(ranges))
	for _, r := range ranges {
		spec, _ := schema.Lookup(r.Name)
		d := Dimension{Name: r.Name, Kind: spec.Kind, Scale: spec.Scale}
		if spec.Kind == params.KindString {
			d.Choices = append([]params.Value(nil), r.Values...)
		} else {
			lo, hi, err := r.Bounds()
			if err != nil {
				return nil, err
			}
			d.Lo, d.Hi = lo, hi
		}
		dims = append(dims, d)
	}
	return &Space{schema: schema, dims: dims}, nil
}

// Dims returns a copy of the dimensions
func (s *Space) Dims() []Dimension {
	out := make([]Dimension, len(s.dims))
	copy(out, s.dims)
	return out
}

// Schema returns the schema the space was built over
func (s *Space) Schema() *params.Schema { return s.schema }

// Sample draws a uniform point, log-uniform on log dimensions.
func (s *Space) Sample(rng *utils.RandSource) params.Set {
	set := make(params.Set, len(s.dims))
	for _, d := range s.dims {
		if d.Categorical() {
			set[d.Name] = d.Choices[rng.Intn(len(d.Choices))]
			continue
		}
		set[d.Name] = d.value(rng.Float64())
	}
	return set
}

// Neighbor perturbs every numeric dimension of center by a normal step of
// stddev step in unit space. Categorical dimensions switch choice with
// probability step.
func (s *Space) Neighbor(center params.Set, step float64, rng *utils.RandSource) params.Set {
	set := make(params.Set, len(s.dims))
	for _, d := range s.dims {
		cur, ok := center[d.Name]
		if d.Categorical() {
			if !ok || rng.Float64() < step {
				set[d.Name] = d.Choices[rng.Intn(len(d.Choices))]
			} else {
				set[d.Name] = cur
			}
			continue
		}
		u := 0.5
		if ok {
			u = d.unit(cur.Float64())
		}
		set[d.Name] = d.value(rng.NormFloat64(u, step))
	}
	return set
}

// Contains reports whether every dimension of set lies within the space
func (s *Space) Contains(set params.Set) bool {
	for _, d := range s.dims {
		v, ok := set[d.Name]
		if !ok {
			return false
		}
		if d.Categorical() {
			found := false
			for _, c := range d.Choices {
				if c.Equal(v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		f := v.Float64()
		if f < d.Lo || f > d.Hi {
			return false
		}
	}
	return true
}
