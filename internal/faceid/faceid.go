// Package faceid turns face-recognition events from entrance cameras into a
// face_id sensor reading plus an informational notification.
package faceid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/notification"
)

// ErrInvalidEvent is returned for events without a device ID.
var ErrInvalidEvent = errors.New("faceid: invalid event")

// Event is reported by a camera.
type Event struct {
	DeviceID   string
	Recognized bool

	// Timestamp defaults to the current time when zero.
	Timestamp time.Time
}

// SensorWriter stores a sensor value with an explicit timestamp.
type SensorWriter interface {
	SetValueAt(ctx context.Context, room, typ, raw string, at time.Time) (*control.WriteResult, error)
}

// Logger is the logging surface the relay needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Result describes a relayed event.
type Result struct {
	Room           string               `json:"room"`
	Write          *control.WriteResult `json:"reading"`
	NotificationID string               `json:"notification_id,omitempty"`

	// Skipped is set when the reading was not stored.
	Skipped string `json:"skipped,omitempty"`
}

// Relay applies face events to the sensor service.
type Relay struct {
	sensors SensorWriter
	sink    notification.Sink
	rooms   map[string]string
	now     func() time.Time
	logger  Logger
}

// NewRelay creates a relay. rooms maps device IDs to rooms; devices that are
// not listed use their ID as the room name.
func NewRelay(sensors SensorWriter, sink notification.Sink, rooms map[string]string) *Relay {
	return &Relay{
		sensors: sensors,
		sink:    sink,
		rooms:   rooms,
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for notification failures.
func (r *Relay) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RoomFor resolves the room a device reports for.
func (r *Relay) RoomFor(deviceID string) string {
	if room, ok := r.rooms[deviceID]; ok {
		return room
	}
	return deviceID
}

// Handle writes the face_id reading and records a notification.
//
// Every event with a device ID is notified, even when the reading cannot be
// stored. A camera whose room has no face_id sensor is not an error: the
// reading is skipped and Result.Skipped says why. Other write failures are
// returned after the notification was attempted; a partial write returns the
// result together with the *control.PartialWriteError. The notification is
// best-effort.
func (r *Relay) Handle(ctx context.Context, ev Event) (*Result, error) {
	if ev.DeviceID == "" {
		return nil, &device.ValidationError{Field: "device_id", Err: device.ErrMalformedRequest, Detail: "device_id is required"}
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = r.now()
	}

	room := r.RoomFor(ev.DeviceID)
	state := device.FaceNotDetected
	if ev.Recognized {
		state = device.FaceDetected
	}

	wr, writeErr := r.sensors.SetValueAt(ctx, room, device.TypeFaceID, state, at)
	res := &Result{Room: room, Write: wr}
	if wr == nil && errors.Is(writeErr, device.ErrRoomNotApplicable) {
		r.logger.Warn("face event from a camera outside any face_id room", "device_id", ev.DeviceID, "room", room)
		res.Skipped = writeErr.Error()
		writeErr = nil
	}

	notedAt := at.UTC()
	if wr != nil {
		notedAt = wr.Timestamp
	}
	if r.sink != nil {
		id, err := r.sink.Record(ctx, eventNotification(ev.DeviceID, room, state, notedAt))
		if err != nil {
			r.logger.Warn("recording face event notification failed", "device_id", ev.DeviceID, "error", err)
		}
		res.NotificationID = id
	}

	if wr == nil && writeErr != nil {
		return nil, writeErr
	}
	return res, writeErr
}

func eventNotification(deviceID, room, state string, at time.Time) *notification.Notification {
	verdict := "not recognized"
	if state == device.FaceDetected {
		verdict = "recognized"
	}
	return &notification.Notification{
		Title:       "Face Recognition",
		Message:     fmt.Sprintf("Face %s on device %s", verdict, deviceID),
		Category:    notification.CategoryFaceRecognition,
		Severity:    notification.SeverityInfo,
		SourceValue: state,
		Room:        room,
		DeviceType:  device.TypeFaceID,
		Timestamp:   at,
	}
}
