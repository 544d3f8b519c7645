package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the closed set of parameter value types
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name as used in sweep files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "string", "str":
		return KindString, nil
	default:
		return 0, fmt.Errorf("unknown parameter kind: %q (must be int, float, or string)", s)
	}
}

// Value holds exactly one of an int, a float or a string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Int creates an integer value
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float creates a float value
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String creates a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the value's type tag
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload; ok is false for other kinds.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Float64 returns a numeric view of the value. Strings yield NaN.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return math.NaN()
	}
}

// Format renders the canonical text form written to config files.
// Floats always keep a decimal point or exponent so they read back as floats.
func (v Value) Format() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	default:
		return v.s
	}
}

func (v Value) String() string { return v.Format() }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	default:
		return v.s == o.s
	}
}

// Parse converts text into a value of the given kind.
func Parse(kind Kind, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch kind {
	case KindInt:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(n), nil
		}
		// integral floats such as "784.0" are accepted for int parameters
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("invalid int value %q", text)
		}
		return Int(int64(f)), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float value %q", text)
		}
		return Float(f), nil
	case KindString:
		return String(text), nil
	default:
		return Value{}, fmt.Errorf("unsupported kind %s", kind)
	}
}

// FromAny converts a decoded YAML/JSON scalar into a value of the given kind.
func FromAny(kind Kind, raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, fmt.Errorf("missing value")
	case int:
		return fromNumber(kind, float64(x), strconv.Itoa(x))
	case int64:
		return fromNumber(kind, float64(x), strconv.FormatInt(x, 10))
	case uint64:
		return fromNumber(kind, float64(x), strconv.FormatUint(x, 10))
	case float64:
		return fromNumber(kind, x, strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		if kind == KindString {
			return String(strconv.FormatBool(x)), nil
		}
		if x {
			return Parse(kind, "1")
		}
		return Parse(kind, "0")
	case string:
		return Parse(kind, x)
	default:
		return Value{}, fmt.Errorf("unsupported value %v (%T)", raw, raw)
	}
}

func fromNumber(kind Kind, f float64, text string) (Value, error) {
	switch kind {
	case KindFloat:
		return Float(f), nil
	case KindString:
		return String(text), nil
	default:
		return Parse(KindInt, text)
	}
}
