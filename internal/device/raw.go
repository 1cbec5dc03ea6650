package device

import (
	"bytes"
	"encoding/json"
)

// RawFromJSON converts a JSON request value into the text Validate expects.
// Strings are unquoted and numbers keep their literal text, so "25.5" and
// 25.5 validate the same way. A missing or null value, an object or an array
// fails with ErrMalformedRequest against field.
func RawFromJSON(field string, v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", &ValidationError{Field: field, Err: ErrMalformedRequest, Detail: field + " is required"}
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", &ValidationError{Field: field, Value: string(v), Err: ErrMalformedRequest}
		}
		return s, nil
	case '{', '[':
		return "", &ValidationError{Field: field, Value: string(v), Err: ErrMalformedRequest, Detail: "must be a string or number"}
	default:
		return string(v), nil
	}
}
