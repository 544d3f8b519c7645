package params

import (
	"fmt"
	"sort"
)

// Range lists the candidate values of one swept parameter.
type Range struct {
	Name   string
	Values []Value
}

// Bounds returns the numeric min and max of the range.
func (r Range) Bounds() (lo, hi float64, err error) {
	if len(r.Values) == 0 {
		return 0, 0, fmt.Errorf("range %s has no values", r.Name)
	}
	vals := make([]float64, 0, len(r.Values))
	for _, v := range r.Values {
		if v.Kind() == KindString {
			return 0, 0, fmt.Errorf("range %s: string values have no numeric bounds", r.Name)
		}
		vals = append(vals, v.Float64())
	}
	sort.Float64s(vals)
	return vals[0], vals[len(vals)-1], nil
}

// ValidateRanges checks every range names a non-meta schema key of the right
// kind, has at least one value and appears once.
func ValidateRanges(schema *Schema, ranges []Range) error {
	seen := make(map[string]bool, len(ranges))
	for _, r := range ranges {
		spec, ok := schema.Lookup(r.Name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParam, r.Name)
		}
		if IsMeta(r.Name) {
			return fmt.Errorf("range %s: meta keys cannot be swept", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate range: %s", r.Name)
		}
		seen[r.Name] = true
		if len(r.Values) == 0 {
			return fmt.Errorf("range %s has no values", r.Name)
		}
		for _, v := range r.Values {
			if v.Kind() != spec.Kind {
				return fmt.Errorf("range %s: value %q is %s, want %s", r.Name, v.Format(), v.Kind(), spec.Kind)
			}
			if v.Kind() == KindString {
				if err := CheckString(v.Format()); err != nil {
					return fmt.Errorf("range %s: %w", r.Name, err)
				}
			}
		}
	}
	return nil
}
