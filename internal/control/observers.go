package control

import (
	"context"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

// ReadingWriter is the time-series sink behind TelemetryMirror.
type ReadingWriter interface {
	WriteReading(direction, room, typ string, value any, at time.Time)
}

// TelemetryMirror copies every stored value into a time-series database.
type TelemetryMirror struct {
	Writer ReadingWriter
}

// Observe implements Observer.
func (m TelemetryMirror) Observe(_ context.Context, r Reading) {
	m.Writer.WriteReading(string(r.Direction), r.Room, r.Type, rawValue(r.Value), r.Timestamp)
}

func rawValue(v device.Value) any {
	switch v.Kind() {
	case device.KindBinary:
		s, _ := v.Enum()
		return s
	case device.KindFloat:
		f, _ := v.Float()
		return f
	case device.KindInteger:
		i, _ := v.Int()
		return i
	default:
		return nil
	}
}

// JSONPublisher publishes a value as JSON to a broker topic.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// StatePublisher republishes every stored value, retained, so devices and
// dashboards that connect later see the latest state.
type StatePublisher struct {
	Publisher JSONPublisher

	// Topic maps a room and type to the destination topic.
	Topic func(room, typ string) string

	Logger Logger
}

type statePayload struct {
	Room      string       `json:"room"`
	Type      string       `json:"type"`
	Value     device.Value `json:"value"`
	Timestamp time.Time    `json:"timestamp"`
}

// Observe implements Observer. Publish errors are logged.
func (p StatePublisher) Observe(_ context.Context, r Reading) {
	topic := p.Topic(r.Room, r.Type)
	err := p.Publisher.PublishJSON(topic, statePayload{
		Room:      r.Room,
		Type:      r.Type,
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}, true)
	if err != nil && p.Logger != nil {
		p.Logger.Warn("state publish failed", "topic", topic, "error", err)
	}
}
