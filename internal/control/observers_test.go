package control

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

type fakeReadingWriter struct {
	direction, room, typ string
	value                any
	at                   time.Time
}

func (w *fakeReadingWriter) WriteReading(direction, room, typ string, value any, at time.Time) {
	w.direction, w.room, w.typ, w.value, w.at = direction, room, typ, value, at
}

func TestTelemetryMirror(t *testing.T) {
	tests := []struct {
		value device.Value
		want  any
	}{
		{device.IntValue(701), int64(701)},
		{device.FloatValue(21.5), 21.5},
		{device.EnumValue("on"), "on"},
	}

	for _, tt := range tests {
		w := &fakeReadingWriter{}
		TelemetryMirror{Writer: w}.Observe(context.Background(), Reading{
			Direction: device.DirectionSensor,
			Room:      device.RoomLivingRoom,
			Type:      device.TypeGas,
			Value:     tt.value,
			Timestamp: fixedNow,
		})
		if w.direction != "sensor" || w.room != "salon" || w.typ != "gas" || !w.at.Equal(fixedNow) {
			t.Errorf("WriteReading tags = %+v", w)
		}
		if w.value != tt.want {
			t.Errorf("WriteReading value = %#v, want %#v", w.value, tt.want)
		}
	}
}

type fakeJSONPublisher struct {
	topic    string
	payload  []byte
	retained bool
	err      error
}

func (p *fakeJSONPublisher) PublishJSON(topic string, v any, retained bool) error {
	if p.err != nil {
		return p.err
	}
	p.topic, p.retained = topic, retained
	p.payload, _ = json.Marshal(v) //nolint:errcheck // test payloads always marshal
	return nil
}

func TestStatePublisher(t *testing.T) {
	pub := &fakeJSONPublisher{}
	sp := StatePublisher{
		Publisher: pub,
		Topic:     func(room, typ string) string { return "smarthome/command/" + room + "/" + typ },
	}

	sp.Observe(context.Background(), Reading{
		Direction: device.DirectionCommand,
		Room:      device.RoomGarage,
		Type:      device.TypeDoor,
		Value:     device.EnumValue("on"),
		Timestamp: fixedNow,
	})

	if pub.topic != "smarthome/command/garaj/door" || !pub.retained {
		t.Errorf("published to %q retained=%v", pub.topic, pub.retained)
	}
	var got map[string]any
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["value"] != "on" || got["room"] != "garaj" {
		t.Errorf("payload = %v", got)
	}
}

func TestStatePublisher_ErrorLogged(t *testing.T) {
	logger := &recordingLogger{}
	sp := StatePublisher{
		Publisher: &fakeJSONPublisher{err: errors.New("mqtt: not connected")},
		Topic:     func(room, typ string) string { return room + "/" + typ },
		Logger:    logger,
	}

	sp.Observe(context.Background(), Reading{Room: "salon", Type: "light", Value: device.EnumValue("off")})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one", logger.warns)
	}
}
