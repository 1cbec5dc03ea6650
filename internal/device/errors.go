package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrOutOfRange) {
//	    // reject the reading
//	}
var (
	// ErrUnknownType is returned when a type name is not in the registry.
	ErrUnknownType = errors.New("device: unknown type")

	// ErrRoomNotApplicable is returned when the type does not exist in the requested room.
	ErrRoomNotApplicable = errors.New("device: type not available in room")

	// ErrInvalidEnum is returned when a binary value is not one of the allowed values.
	ErrInvalidEnum = errors.New("device: value not allowed")

	// ErrNotNumeric is returned when a float or integer value does not parse.
	ErrNotNumeric = errors.New("device: value is not numeric")

	// ErrOutOfRange is returned when a float value falls outside the inclusive range.
	ErrOutOfRange = errors.New("device: value out of range")

	// ErrMalformedRequest is returned when a request is missing a required field.
	ErrMalformedRequest = errors.New("device: malformed request")

	// ErrInvalidSpec is returned when a registry is built from an inconsistent Spec.
	ErrInvalidSpec = errors.New("device: invalid type spec")
)

// ValidationError reports which field was rejected and why.
// It wraps one of the sentinel errors above.
type ValidationError struct {
	// Field names the rejected input, e.g. "value", "room" or "sensors[2].type".
	Field string

	// Value is the offending input as received.
	Value string

	// Detail is a human-readable hint such as the allowed values.
	Detail string

	Err error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FieldOf returns the rejected field name if err carries a ValidationError.
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
