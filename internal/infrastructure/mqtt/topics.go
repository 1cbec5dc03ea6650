package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "smarthome"

// Topics builds the core's MQTT topics under a common prefix.
//
//	topics := mqtt.NewTopics("smarthome")
//	topics.CommandState("salon", "light") // "smarthome/command/salon/light"
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// SensorState is where the core republishes an accepted sensor reading (retained).
//
// Example: smarthome/sensor/salon/gas
func (t Topics) SensorState(room, typ string) string {
	return fmt.Sprintf("%s/sensor/%s/%s", t.Prefix, room, typ)
}

// CommandState is where the core publishes the desired state of an actuator
// (retained) so devices pick it up on connect.
//
// Example: smarthome/command/garaj/door
func (t Topics) CommandState(room, typ string) string {
	return fmt.Sprintf("%s/command/%s/%s", t.Prefix, room, typ)
}

// SensorIngest is where devices publish raw readings for the core to validate.
//
// Example: smarthome/ingest/sensor/salon/temperature
func (t Topics) SensorIngest(room, typ string) string {
	return fmt.Sprintf("%s/ingest/sensor/%s/%s", t.Prefix, room, typ)
}

// AllSensorIngest matches every device reading topic.
func (t Topics) AllSensorIngest() string {
	return t.Prefix + "/ingest/sensor/+/+"
}

// ParseSensorIngest extracts room and type from a SensorIngest topic.
func (t Topics) ParseSensorIngest(topic string) (room, typ string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/ingest/sensor/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Alert is where notifications are fanned out, one topic per category.
//
// Example: smarthome/alert/gas_alert
func (t Topics) Alert(category string) string {
	return fmt.Sprintf("%s/alert/%s", t.Prefix, category)
}

// AllAlerts matches every alert category.
func (t Topics) AllAlerts() string {
	return t.Prefix + "/alert/#"
}

// SystemStatus carries the core's online/offline status and the LWT.
//
// Example: smarthome/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}
