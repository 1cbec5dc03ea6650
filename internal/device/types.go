package device

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Kind is the closed set of value shapes a type can carry.
type Kind string

// Kind values.
const (
	KindBinary  Kind = "binary"
	KindFloat   Kind = "float"
	KindInteger Kind = "integer"
)

// AllKinds returns all valid kinds.
func AllKinds() []Kind {
	return []Kind{KindBinary, KindFloat, KindInteger}
}

// ParseKind converts stored text back into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if slices.Contains(AllKinds(), k) {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, s)
}

// Direction separates what the house reports from what it is told to do.
type Direction string

// Direction values.
const (
	DirectionSensor  Direction = "sensor"
	DirectionCommand Direction = "command"
)

// NoUpperBound marks the last severity band as open-ended.
const NoUpperBound int64 = math.MaxInt64

// Range is an inclusive numeric range for float types.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SeverityBand is one inclusive integer interval with its label.
type SeverityBand struct {
	Label string `json:"label"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (b SeverityBand) Contains(v int64) bool {
	return v >= b.Min && v <= b.Max
}

// MarshalJSON renders an open upper bound as null.
func (b SeverityBand) MarshalJSON() ([]byte, error) {
	out := struct {
		Label string `json:"label"`
		Min   int64  `json:"min"`
		Max   *int64 `json:"max"`
	}{Label: b.Label, Min: b.Min}
	if b.Max != NoUpperBound {
		out.Max = &b.Max
	}
	return json.Marshal(out)
}

// Spec describes one sensor or command type.
type Spec struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// AllowedValues is set for binary types. Matching is byte-exact.
	AllowedValues []string `json:"values,omitempty"`

	// Range is set for float types.
	Range *Range `json:"range,omitempty"`

	// Bands is set for classified integer types, ascending by Min.
	Bands []SeverityBand `json:"thresholds,omitempty"`

	Rooms []string `json:"rooms"`

	// Unit is informational only.
	Unit string `json:"unit,omitempty"`
}

// HasRoom reports whether the type exists in room.
func (s Spec) HasRoom(room string) bool {
	return slices.Contains(s.Rooms, room)
}

// Classified reports whether readings of this type are mapped to severities.
func (s Spec) Classified() bool {
	return len(s.Bands) > 0
}

// clone returns a copy sharing no slices with s.
func (s Spec) clone() Spec {
	c := s
	c.AllowedValues = slices.Clone(s.AllowedValues)
	c.Bands = slices.Clone(s.Bands)
	c.Rooms = slices.Clone(s.Rooms)
	if s.Range != nil {
		r := *s.Range
		c.Range = &r
	}
	return c
}

// Value is a normalized reading or command value. Exactly one of the enum,
// float or integer forms is set, selected by Kind. The zero Value is empty.
type Value struct {
	kind Kind
	enum string
	num  float64
	i    int64
}

// EnumValue returns a binary value.
func EnumValue(s string) Value {
	return Value{kind: KindBinary, enum: s}
}

// FloatValue returns a float value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, num: f}
}

// IntValue returns an integer value.
func IntValue(i int64) Value {
	return Value{kind: KindInteger, i: i}
}

// Kind returns the value's shape, or "" for the zero Value.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v holds nothing.
func (v Value) IsZero() bool { return v.kind == "" }

// Enum returns the binary form.
func (v Value) Enum() (string, bool) { return v.enum, v.kind == KindBinary }

// Float returns the float form.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindFloat }

// Int returns the integer form.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInteger }

// String returns the canonical text form, which is also the storage encoding.
func (v Value) String() string {
	switch v.kind {
	case KindBinary:
		return v.enum
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	default:
		return ""
	}
}

// MarshalJSON renders enums as strings and numbers as JSON numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBinary:
		return json.Marshal(v.enum)
	case KindFloat:
		return json.Marshal(v.num)
	case KindInteger:
		return json.Marshal(v.i)
	default:
		return []byte("null"), nil
	}
}

// DecodeValue rebuilds a Value from its stored kind and canonical text.
// It does not apply any Spec constraints.
func DecodeValue(kind, text string) (Value, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Value{}, err
	}
	switch k {
	case KindBinary:
		return EnumValue(text), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding float %q: %w", text, err)
		}
		return FloatValue(f), nil
	default:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding integer %q: %w", text, err)
		}
		return IntValue(i), nil
	}
}
