package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
)

// testConfig returns a configuration for a local broker at 127.0.0.1:1883.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "smarthome-test",
	}
}

// connectOrSkip connects to the local broker or skips the test when none is running.
func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	c, err := Connect(testConfig(clientID))
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

// disconnected returns a client that never connected.
func disconnected() *Client {
	return &Client{subscriptions: make(map[string]subscription), topics: NewTopics("")}
}

func TestTopics(t *testing.T) {
	topics := NewTopics("smarthome")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SensorState", topics.SensorState("salon", "gas"), "smarthome/sensor/salon/gas"},
		{"CommandState", topics.CommandState("garaj", "door"), "smarthome/command/garaj/door"},
		{"SensorIngest", topics.SensorIngest("salon", "temperature"), "smarthome/ingest/sensor/salon/temperature"},
		{"AllSensorIngest", topics.AllSensorIngest(), "smarthome/ingest/sensor/+/+"},
		{"Alert", topics.Alert("gas_alert"), "smarthome/alert/gas_alert"},
		{"AllAlerts", topics.AllAlerts(), "smarthome/alert/#"},
		{"SystemStatus", topics.SystemStatus(), "smarthome/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewTopics_Prefix(t *testing.T) {
	if got := NewTopics("").Prefix; got != DefaultTopicPrefix {
		t.Errorf("empty prefix = %q, want %q", got, DefaultTopicPrefix)
	}
	if got := NewTopics("/home/").Prefix; got != "home" {
		t.Errorf("trimmed prefix = %q, want home", got)
	}
}

func TestParseSensorIngest(t *testing.T) {
	topics := NewTopics("smarthome")

	tests := []struct {
		topic  string
		room   string
		typ    string
		wantOK bool
	}{
		{topic: "smarthome/ingest/sensor/salon/gas", room: "salon", typ: "gas", wantOK: true},
		{topic: "smarthome/ingest/sensor/salon", wantOK: false},
		{topic: "smarthome/ingest/sensor/salon/gas/extra", wantOK: false},
		{topic: "smarthome/ingest/sensor//gas", wantOK: false},
		{topic: "other/ingest/sensor/salon/gas", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			room, typ, ok := topics.ParseSensorIngest(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (room != tt.room || typ != tt.typ) {
				t.Errorf("got (%q, %q), want (%q, %q)", room, typ, tt.room, tt.typ)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("opts-test")
	cfg.Auth = config.MQTTAuthConfig{Username: "core", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "opts-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "core" {
		t.Errorf("Username = %q, want core", opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig should be set when TLS is enabled")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig("lwt-test"))
	configureLWT(opts, NewTopics("smarthome"), "lwt-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("LWT should be enabled and retained")
	}
	if opts.WillTopic != "smarthome/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("WillPayload is not JSON: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" || msg.ClientID != "lwt-test" {
		t.Errorf("WillPayload = %+v", msg)
	}
}

func TestStatusPayloads(t *testing.T) {
	if !strings.Contains(buildOnlinePayload("core"), `"status":"online"`) {
		t.Error("online payload missing status")
	}
	if strings.Contains(buildOnlinePayload("core"), "reason") {
		t.Error("online payload should omit reason")
	}
	if !strings.Contains(buildOfflinePayload("core"), `"reason":"graceful_shutdown"`) {
		t.Error("offline payload missing reason")
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := disconnected()

	if c.IsConnected() {
		t.Fatal("IsConnected() = true for a client that never connected")
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("a/b", map[string]int{"x": 1}, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("a/#", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}

func TestArgumentValidation(t *testing.T) {
	c := disconnected()
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a", nil, 3, false), ErrInvalidQoS},
		{"publish oversized", c.Publish("a", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a", 3, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a", 1, nil), ErrSubscribeFailed},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"json unencodable", c.PublishJSON("a", make(chan int), false), ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := disconnected().HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestWrapHandler(t *testing.T) {
	c := disconnected()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	msg := fakeMessage{topic: "smarthome/ingest/sensor/salon/gas", payload: []byte("701")}

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, msg)
	if got != "smarthome/ingest/sensor/salon/gas=701" {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error { return errors.New("bad reading") })(nil, msg)
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", logger.warns)
	}

	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, msg)
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errors)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	c := connectOrSkip(t, "smarthome-test-roundtrip")
	topic := c.Topics().SensorIngest("salon", "gas")

	received := make(chan string, 1)
	err := c.Subscribe(c.Topics().AllSensorIngest(), 1, func(topic string, payload []byte) error {
		room, typ, _ := c.Topics().ParseSensorIngest(topic)
		received <- room + "/" + typ + "=" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}

	if err := c.Publish(topic, []byte("420"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "salon/gas=420" {
			t.Errorf("received %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message not received")
	}

	if err := c.Unsubscribe(c.Topics().AllSensorIngest()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after unsubscribe", c.SubscriptionCount())
	}
}

func TestHealthCheck_Connected(t *testing.T) {
	c := connectOrSkip(t, "smarthome-test-health")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
