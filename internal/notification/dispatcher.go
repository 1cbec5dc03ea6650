package notification

import (
	"context"
	"encoding/json"
)

// Publisher sends a message to a broker topic.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging surface the dispatcher needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Dispatcher records notifications through a Sink and then fans them out to
// a broker topic per category. Fan-out is best-effort: once the sink has
// accepted a notification, publish failures are only logged.
type Dispatcher struct {
	sink      Sink
	publisher Publisher
	topic     func(category string) string
	qos       byte
	logger    Logger
}

// NewDispatcher wraps sink. A nil publisher disables fan-out.
func NewDispatcher(sink Sink, publisher Publisher, topic func(category string) string, qos byte) *Dispatcher {
	return &Dispatcher{
		sink:      sink,
		publisher: publisher,
		topic:     topic,
		qos:       qos,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for fan-out failures.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Record stores n and publishes it. Only sink errors are returned.
func (d *Dispatcher) Record(ctx context.Context, n *Notification) (string, error) {
	id, err := d.sink.Record(ctx, n)
	if err != nil {
		return "", err
	}

	if d.publisher == nil || d.topic == nil {
		return id, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		d.logger.Warn("encoding notification for fan-out failed", "id", id, "error", err)
		return id, nil
	}
	// Alerts are one-off events and are never retained.
	if err := d.publisher.Publish(d.topic(n.Category), payload, d.qos, false); err != nil {
		d.logger.Warn("notification fan-out failed", "id", id, "category", n.Category, "error", err)
	}
	return id, nil
}
