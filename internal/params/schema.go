package params

import (
	"errors"
	"fmt"
	"sort"
)

// Meta keys filled in by the generator rather than swept.
const (
	KeyRunID    = "RUN_ID"
	KeyConfigID = "CONFIG_ID"
	KeyDirName  = "DIRNAME"
)

// MetaKeys lists the generator-owned keys.
var MetaKeys = []string{KeyRunID, KeyConfigID, KeyDirName}

// IsMeta reports whether name is a generator-owned key.
func IsMeta(name string) bool {
	for _, k := range MetaKeys {
		if k == name {
			return true
		}
	}
	return false
}

// ErrUnknownParam is returned when a key is not part of the schema.
var ErrUnknownParam = errors.New("unknown parameter")

// Scale selects how an optimizer samples a parameter.
type Scale string

const (
	ScaleScalar Scale = "scalar"
	ScaleLog    Scale = "log"
)

// ParamSpec describes one schema entry.
type ParamSpec struct {
	Name    string
	Kind    Kind
	Default Value
	Scale   Scale
}

// Schema is the ordered, closed set of parameters. Its order is the
// fixed key ordering used for config files and hashing.
type Schema struct {
	specs []ParamSpec
	index map[string]int
}

// NewSchema validates and indexes specs.
func NewSchema(specs ...ParamSpec) (*Schema, error) {
	s := &Schema{
		specs: make([]ParamSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("parameter name cannot be empty")
		}
		if _, dup := s.index[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter: %s", spec.Name)
		}
		if spec.Default.Kind() != spec.Kind {
			return nil, fmt.Errorf("parameter %s: default %q is %s, want %s", spec.Name, spec.Default.Format(), spec.Default.Kind(), spec.Kind)
		}
		if spec.Kind == KindString {
			if err := CheckString(spec.Default.Format()); err != nil {
				return nil, fmt.Errorf("parameter %s: default: %w", spec.Name, err)
			}
		}
		if spec.Scale == "" {
			spec.Scale = ScaleScalar
		}
		if spec.Scale != ScaleScalar && spec.Scale != ScaleLog {
			return nil, fmt.Errorf("parameter %s: invalid scale %s (must be scalar or log)", spec.Name, spec.Scale)
		}
		s.index[spec.Name] = len(s.specs)
		s.specs = append(s.specs, spec)
	}
	return s, nil
}

// Len returns the number of parameters
func (s *Schema) Len() int { return len(s.specs) }

// Specs returns a copy of the ordered specs
func (s *Schema) Specs() []ParamSpec {
	out := make([]ParamSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Lookup finds the spec for name
func (s *Schema) Lookup(name string) (ParamSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ParamSpec{}, false
	}
	return s.specs[i], true
}

// Names returns the fixed key ordering
func (s *Schema) Names() []string {
	out := make([]string, len(s.specs))
	for i, spec := range s.specs {
		out[i] = spec.Name
	}
	return out
}

// Defaults returns a fresh set holding every default value
func (s *Schema) Defaults() Set {
	out := make(Set, len(s.specs))
	for _, spec := range s.specs {
		out[spec.Name] = spec.Default
	}
	return out
}

// Complete overlays overrides onto a copy of the defaults. Every schema key
// is present in the result; override keys outside the schema are rejected.
func (s *Schema) Complete(overrides Set) (Set, error) {
	out := s.Defaults()
	for k, v := range overrides {
		spec, ok := s.Lookup(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParam, k)
		}
		if v.Kind() != spec.Kind {
			return nil, fmt.Errorf("parameter %s: value %q is %s, want %s", k, v.Format(), v.Kind(), spec.Kind)
		}
		out[k] = v
	}
	return out, nil
}

// Cast coerces text through the schema type of name.
func (s *Schema) Cast(name, text string) (Value, error) {
	spec, ok := s.Lookup(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	v, err := Parse(spec.Kind, text)
	if err != nil {
		return Value{}, fmt.Errorf("parameter %s: %w", name, err)
	}
	return v, nil
}

// Set is a parameter set: name to value.
type Set map[string]Value

// Clone returns a shallow copy; values are immutable.
func (p Set) Clone() Set {
	out := make(Set, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether both sets hold the same keys and values.
func (p Set) Equal(o Set) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the set's keys sorted alphabetically
func (p Set) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pair is one ordered (key, value) entry.
type Pair struct {
	Key   string
	Value Value
}

// Collapse flattens a set into pairs following order. Keys absent from the set are omitted.
func Collapse(set Set, order []string) []Pair {
	out := make([]Pair, 0, len(order))
	for _, k := range order {
		if v, ok := set[k]; ok {
			out = append(out, Pair{Key: k, Value: v})
		}
	}
	return out
}
