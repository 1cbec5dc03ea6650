// Package ingest feeds device readings published over MQTT into the sensor
// service. Devices publish to {prefix}/ingest/sensor/{room}/{type} with either
// a bare value ("701", "on") or a JSON object {"value": 701}.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/mqtt"
)

const handleTimeout = 5 * time.Second

// ErrBadPayload is returned for payloads that carry no usable value.
var ErrBadPayload = errors.New("ingest: bad payload")

// SensorSetter stores a sensor reading.
type SensorSetter interface {
	SetValue(ctx context.Context, room, typ, raw string) (*control.WriteResult, error)
}

// Subscriber registers a topic handler.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Ingestor routes ingest messages to the sensor service.
type Ingestor struct {
	sensors SensorSetter
	topics  mqtt.Topics
}

// New creates an Ingestor for topics under the given builder.
func New(sensors SensorSetter, topics mqtt.Topics) *Ingestor {
	return &Ingestor{sensors: sensors, topics: topics}
}

// Start subscribes to every sensor ingest topic.
func (i *Ingestor) Start(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(i.topics.AllSensorIngest(), qos, i.Handle); err != nil {
		return fmt.Errorf("subscribing to sensor ingest: %w", err)
	}
	return nil
}

// Handle processes one message. Returned errors are logged by the MQTT
// client; a bad reading never stops the subscription.
func (i *Ingestor) Handle(topic string, payload []byte) error {
	room, typ, ok := i.topics.ParseSensorIngest(topic)
	if !ok {
		return fmt.Errorf("ingest: unexpected topic %q", topic)
	}
	raw, err := DecodePayload(payload)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", room, typ, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	var partial *control.PartialWriteError
	if _, err := i.sensors.SetValue(ctx, room, typ, raw); err != nil && !errors.As(err, &partial) {
		return fmt.Errorf("%s/%s: %w", room, typ, err)
	}
	return nil
}

// DecodePayload extracts the raw value text from a bare or JSON payload.
// JSON numbers keep their literal text so validation sees what the device sent.
func DecodePayload(payload []byte) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("%w: empty", ErrBadPayload)
	}
	if trimmed[0] != '{' {
		return string(trimmed), nil
	}

	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	raw, err := device.RawFromJSON("value", body.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return raw, nil
}
