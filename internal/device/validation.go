package device

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Validate checks raw against spec and returns the normalized Value.
//
//   - binary: byte-exact match against AllowedValues, else ErrInvalidEnum
//   - float: must parse as a finite number, else ErrNotNumeric; must lie in
//     the inclusive range, else ErrOutOfRange
//   - integer: must parse as a base-10 integer, else ErrNotNumeric. A decimal
//     literal with no fractional part ("701.0") is accepted. There is no range
//     check; out-of-band readings are left to the classifier.
func Validate(spec Spec, raw string) (Value, error) {
	switch spec.Kind {
	case KindBinary:
		if !slices.Contains(spec.AllowedValues, raw) {
			return Value{}, &ValidationError{
				Field:  "value",
				Value:  raw,
				Err:    ErrInvalidEnum,
				Detail: "allowed: " + strings.Join(spec.AllowedValues, ", "),
			}
		}
		return EnumValue(raw), nil

	case KindFloat:
		f, ok := parseFinite(raw)
		if !ok {
			return Value{}, &ValidationError{Field: "value", Value: raw, Err: ErrNotNumeric}
		}
		if spec.Range != nil && !spec.Range.Contains(f) {
			return Value{}, &ValidationError{
				Field:  "value",
				Value:  raw,
				Err:    ErrOutOfRange,
				Detail: fmt.Sprintf("range [%g, %g]", spec.Range.Min, spec.Range.Max),
			}
		}
		return FloatValue(f), nil

	case KindInteger:
		i, ok := parseInteger(raw)
		if !ok {
			return Value{}, &ValidationError{Field: "value", Value: raw, Err: ErrNotNumeric}
		}
		return IntValue(i), nil

	default:
		return Value{}, fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidSpec, spec.Name, spec.Kind)
	}
}

func parseFinite(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseInteger(raw string) (int64, bool) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, true
	}
	f, ok := parseFinite(raw)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
