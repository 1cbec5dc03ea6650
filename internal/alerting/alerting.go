// Package alerting classifies integer readings into severity bands and
// decides when a reading becomes a user-facing alert.
//
// Policy is value-triggered: every reading that lands in the high band
// alerts, including consecutive ones. There is no hysteresis and no
// de-duplication window.
package alerting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/notification"
)

// Severity is a band label. The zero value means unclassified.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = device.SeverityLow
	SeverityMedium Severity = device.SeverityMedium
	SeverityHigh   Severity = device.SeverityHigh
)

// ErrNotClassified is returned when a value falls outside every band.
var ErrNotClassified = errors.New("alerting: value not classified")

// Classify returns the label of the first band, in declared order, whose
// inclusive range contains value.
func Classify(spec device.Spec, value int64) (Severity, error) {
	for _, band := range spec.Bands {
		if band.Contains(value) {
			return Severity(band.Label), nil
		}
	}
	return SeverityNone, fmt.Errorf("%w: %s=%d", ErrNotClassified, spec.Name, value)
}

// ShouldAlert reports whether a reading classified as next raises an alert.
// Every high reading alerts, whatever came before it.
func ShouldAlert(_, next Severity) bool {
	return next == SeverityHigh
}

// Alert builds the notification for a reading that ShouldAlert accepted.
func Alert(spec device.Spec, room string, value device.Value, severity Severity) *notification.Notification {
	label := displayName(spec.Name)
	return &notification.Notification{
		Title:       label + " Alarm!",
		Message:     fmt.Sprintf("%s level critical: %s\nPlease check immediately!", label, value.String()),
		Category:    spec.Name + "_alert",
		Severity:    string(severity),
		SourceValue: value.String(),
		Room:        room,
		DeviceType:  spec.Name,
	}
}

// displayName turns "face_id" into "Face id".
func displayName(typ string) string {
	s := strings.ReplaceAll(typ, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
