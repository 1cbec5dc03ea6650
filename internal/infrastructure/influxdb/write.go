package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ReadingMeasurement holds every mirrored sensor reading and command.
const ReadingMeasurement = "readings"

// WriteReading records one accepted value, tagged by direction, room and type.
//
// Numeric values land in the "value" field and enum values in "state", so a
// measurement never mixes field types:
//
//	client.WriteReading("sensor", "salon", "gas", int64(701), at)
//	client.WriteReading("command", "salon", "light", "on", at)
func (c *Client) WriteReading(direction, room, typ string, value any, at time.Time) {
	fields := make(map[string]any, 1)
	switch v := value.(type) {
	case string:
		fields["state"] = v
	case int64:
		fields["value"] = v
	case float64:
		fields["value"] = v
	default:
		return
	}

	c.WritePointWithTime(ReadingMeasurement, map[string]string{
		"direction": direction,
		"room":      room,
		"type":      typ,
	}, fields, at)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point at timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
