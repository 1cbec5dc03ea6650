package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Field names the rejected input on validation errors.
	Field string `json:"field,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodeForbidden          = "forbidden"
	ErrCodeInternal           = "internal_error"
	ErrCodeValidation         = "validation_error"
	ErrCodeNoData             = "no_data"
	ErrCodeServiceUnavailable = "service_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeValidationError writes a 400 naming the rejected field.
func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, Error{
		Status:  http.StatusBadRequest,
		Code:    ErrCodeValidation,
		Message: err.Error(),
		Field:   device.FieldOf(err),
	})
}

// isValidationError reports whether err came from the registry or the
// validation engine.
func isValidationError(err error) bool {
	for _, target := range []error{
		device.ErrUnknownType,
		device.ErrRoomNotApplicable,
		device.ErrInvalidEnum,
		device.ErrNotNumeric,
		device.ErrOutOfRange,
		device.ErrMalformedRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps a control.Service error to a response. Partial
// writes are not errors here; callers handle them before calling this.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		writeValidationError(w, err)
	case errors.Is(err, control.ErrStoreUnavailable):
		s.logger.Error("state store unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "state store unavailable")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeInternalError(w, "internal server error")
	}
}

// splitPartial separates a partial write from a real failure. It returns the
// warning text and a nil error for partial writes.
func splitPartial(err error) (warning string, rest error) {
	var partial *control.PartialWriteError
	if errors.As(err, &partial) {
		return partial.Error(), nil
	}
	return "", err
}
