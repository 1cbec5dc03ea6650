// Package notification records user-facing alerts and events and hands them
// to the rest of the house (MQTT subscribers, the mobile app).
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Categories of notification.
const (
	CategoryGasAlert        = "gas_alert"
	CategoryFaceRecognition = "face_recognition"
)

// Severity values. Alerts carry the severity band label; informational
// events use SeverityInfo.
const (
	SeverityInfo = "info"
	SeverityHigh = "high"
)

var (
	// ErrNotFound is returned when a notification ID does not exist.
	ErrNotFound = errors.New("notification: not found")

	// ErrInvalid is returned when a notification is missing a title, message or category.
	ErrInvalid = errors.New("notification: invalid")
)

// Notification is a user-facing alert or informational event. Once recorded
// only Read may change.
type Notification struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Category string `json:"type"`
	Severity string `json:"severity,omitempty"`

	// SourceValue is the reading that triggered the notification, in canonical text form.
	SourceValue string `json:"sensor_value,omitempty"`
	Room        string `json:"room,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Validate checks the fields every notification needs.
func (n *Notification) Validate() error {
	switch {
	case n.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case n.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalid)
	case n.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalid)
	}
	return nil
}

// Sink records a notification and returns its ID.
type Sink interface {
	Record(ctx context.Context, n *Notification) (string, error)
}

// Filter controls which notifications List returns.
type Filter struct {
	UnreadOnly bool
	Category   string
	Limit      int // default 50, max 200
}
