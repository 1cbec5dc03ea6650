package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/alerting"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/notification"
	"github.com/smarthome-app/smarthome-core/internal/store"
)

// countingStore wraps a MemoryStore, counts calls and injects failures.
type countingStore struct {
	*store.MemoryStore

	mu         sync.Mutex
	calls      int
	failWrite  error
	failAppend error
	failRead   error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore()}
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *countingStore) inc() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) Read(ctx context.Context, path string) (store.Entry, bool, error) {
	s.inc()
	if s.failRead != nil {
		return store.Entry{}, false, s.failRead
	}
	return s.MemoryStore.Read(ctx, path)
}

func (s *countingStore) Write(ctx context.Context, path string, e store.Entry) error {
	s.inc()
	if s.failWrite != nil {
		return s.failWrite
	}
	return s.MemoryStore.Write(ctx, path, e)
}

func (s *countingStore) AppendHistory(ctx context.Context, path string, e store.Entry) (string, error) {
	s.inc()
	if s.failAppend != nil {
		return "", s.failAppend
	}
	return s.MemoryStore.AppendHistory(ctx, path, e)
}

func (s *countingStore) ReadHistory(ctx context.Context, path string, limit int) ([]store.Record, error) {
	s.inc()
	return s.MemoryStore.ReadHistory(ctx, path, limit)
}

type recordingSink struct {
	mu       sync.Mutex
	recorded []*notification.Notification
	err      error
}

func (s *recordingSink) Record(_ context.Context, n *notification.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.recorded = append(s.recorded, n)
	return fmt.Sprintf("ntf-%d", len(s.recorded)), nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recorded)
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type recordingObserver struct {
	readings []Reading
}

func (o *recordingObserver) Observe(_ context.Context, r Reading) {
	o.readings = append(o.readings, r)
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *countingStore
	sink   *recordingSink
	logger *recordingLogger
	obs    *recordingObserver
}

func newFixture(t *testing.T, registry *device.Registry) *fixture {
	t.Helper()
	f := &fixture{
		store:  newCountingStore(),
		sink:   &recordingSink{},
		logger: &recordingLogger{},
		obs:    &recordingObserver{},
	}
	tick := 0
	svc, err := NewService(Deps{
		Registry:  registry,
		Store:     f.store,
		Sink:      f.sink,
		Logger:    f.logger,
		Observers: []Observer{f.obs},
		Now: func() time.Time {
			tick++
			return fixedNow.Add(time.Duration(tick) * time.Second)
		},
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	f.svc = svc
	return f
}

func sensors(t *testing.T) *fixture  { return newFixture(t, device.SensorRegistry()) }
func commands(t *testing.T) *fixture { return newFixture(t, device.CommandRegistry()) }

func TestNewService_RequiresDeps(t *testing.T) {
	if _, err := NewService(Deps{Store: store.NewMemoryStore()}); err == nil {
		t.Error("NewService() without registry succeeded")
	}
	if _, err := NewService(Deps{Registry: device.SensorRegistry()}); err == nil {
		t.Error("NewService() without store succeeded")
	}
}

func TestSetValue_BinaryExactMatch(t *testing.T) {
	f := commands(t)
	ctx := context.Background()

	if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeLight, "on"); err != nil {
		t.Fatalf("SetValue(on) error = %v", err)
	}
	for _, raw := range []string{"On", "ON", " on", "1", ""} {
		_, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeLight, raw)
		if !errors.Is(err, device.ErrInvalidEnum) {
			t.Errorf("SetValue(%q) = %v, want ErrInvalidEnum", raw, err)
		}
	}
}

func TestSetValue_FloatInclusiveBounds(t *testing.T) {
	f := sensors(t)
	ctx := context.Background()

	for _, raw := range []string{"0", "125", "21.5"} {
		if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, raw); err != nil {
			t.Errorf("SetValue(%s) error = %v", raw, err)
		}
	}
	for _, raw := range []string{"-0.01", "125.01"} {
		if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, raw); !errors.Is(err, device.ErrOutOfRange) {
			t.Errorf("SetValue(%s) = %v, want ErrOutOfRange", raw, err)
		}
	}
	if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, "warm"); !errors.Is(err, device.ErrNotNumeric) {
		t.Errorf("SetValue(warm) = %v, want ErrNotNumeric", err)
	}
}

func TestSetValue_GasBandsAndReAlert(t *testing.T) {
	f := sensors(t)
	ctx := context.Background()

	tests := []struct {
		raw       string
		severity  alerting.Severity
		alerted   bool
		wantAlert int
	}{
		{"300", alerting.SeverityLow, false, 0},
		{"301", alerting.SeverityMedium, false, 0},
		{"700", alerting.SeverityMedium, false, 0},
		{"701", alerting.SeverityHigh, true, 1},
		{"950", alerting.SeverityHigh, true, 2},
		{"120", alerting.SeverityLow, false, 2},
	}

	for _, tt := range tests {
		res, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeGas, tt.raw)
		if err != nil {
			t.Fatalf("SetValue(%s) error = %v", tt.raw, err)
		}
		c := res.Classification
		if c == nil || !c.Classified {
			t.Fatalf("SetValue(%s) classification = %+v", tt.raw, c)
		}
		if c.Severity != tt.severity || c.Alerted != tt.alerted {
			t.Errorf("SetValue(%s) = %q alerted=%v, want %q alerted=%v", tt.raw, c.Severity, c.Alerted, tt.severity, tt.alerted)
		}
		if tt.alerted && c.NotificationID == "" {
			t.Errorf("SetValue(%s) has no notification id", tt.raw)
		}
		if got := f.sink.count(); got != tt.wantAlert {
			t.Errorf("after %s: %d notifications, want %d", tt.raw, got, tt.wantAlert)
		}
	}

	n := f.sink.recorded[0]
	if n.Category != notification.CategoryGasAlert || n.SourceValue != "701" || n.Room != device.RoomLivingRoom {
		t.Errorf("notification = %+v", n)
	}
}

func TestSetValue_UnclassifiedReading(t *testing.T) {
	f := sensors(t)

	res, err := f.svc.SetValue(context.Background(), device.RoomLivingRoom, device.TypeGas, "-3")
	if err != nil {
		t.Fatalf("SetValue(-3) error = %v", err)
	}
	if res.Classification == nil || res.Classification.Classified {
		t.Errorf("classification = %+v, want unclassified", res.Classification)
	}
	if f.sink.count() != 0 {
		t.Error("unclassified reading raised an alert")
	}
	if len(f.logger.warns) == 0 {
		t.Error("unclassified reading was not logged")
	}
}

func TestGetCurrent_DefaultOffAndNoData(t *testing.T) {
	f := sensors(t)
	ctx := context.Background()

	light, err := f.svc.GetCurrent(ctx, device.RoomBedroom, device.TypeLight)
	if err != nil {
		t.Fatalf("GetCurrent(light) error = %v", err)
	}
	if light.Status != StatusDefaultOff || light.Value.String() != "off" || light.Timestamp != nil {
		t.Errorf("GetCurrent(light) = %+v, want default off", light)
	}

	temp, err := f.svc.GetCurrent(ctx, device.RoomLivingRoom, device.TypeTemperature)
	if err != nil {
		t.Fatalf("GetCurrent(temperature) error = %v", err)
	}
	if temp.Status != StatusNoData || !temp.Value.IsZero() {
		t.Errorf("GetCurrent(temperature) = %+v, want no data", temp)
	}
}

func TestCommand_RoundTrip(t *testing.T) {
	f := commands(t)
	ctx := context.Background()

	if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, "25.5"); err != nil {
		t.Fatalf("SetValue(25.5) error = %v", err)
	}

	cur, err := f.svc.GetCurrent(ctx, device.RoomLivingRoom, device.TypeTemperature)
	if err != nil {
		t.Fatalf("GetCurrent() error = %v", err)
	}
	if v, ok := cur.Value.Float(); !ok || v != 25.5 || cur.Status != StatusPresent || cur.Timestamp == nil {
		t.Errorf("GetCurrent() = %+v, want 25.5 present", cur)
	}

	hist, err := f.svc.GetHistory(ctx, device.RoomLivingRoom, device.TypeTemperature, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(hist) != 1 || hist[0].Value != cur.Value {
		t.Errorf("GetHistory() = %+v", hist)
	}
}

func TestRoomNotApplicable_NoStoreCalls(t *testing.T) {
	f := commands(t)
	ctx := context.Background()

	checks := []struct {
		name string
		err  error
	}{
		{"SetValue", func() error { _, err := f.svc.SetValue(ctx, device.RoomEntrance, device.TypeDoor, "on"); return err }()},
		{"GetCurrent", func() error { _, err := f.svc.GetCurrent(ctx, device.RoomEntrance, device.TypeDoor); return err }()},
		{"GetHistory", func() error { _, err := f.svc.GetHistory(ctx, device.RoomEntrance, device.TypeDoor, 10); return err }()},
	}
	for _, c := range checks {
		if !errors.Is(c.err, device.ErrRoomNotApplicable) {
			t.Errorf("%s() = %v, want ErrRoomNotApplicable", c.name, c.err)
		}
		if device.FieldOf(c.err) != "room" {
			t.Errorf("%s() field = %q, want room", c.name, device.FieldOf(c.err))
		}
	}

	if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, "sprinkler", "on"); !errors.Is(err, device.ErrUnknownType) {
		t.Errorf("SetValue(sprinkler) = %v, want ErrUnknownType", err)
	}
	if n := f.store.count(); n != 0 {
		t.Errorf("store saw %d calls, want 0", n)
	}
}

func TestGetHistory_Limits(t *testing.T) {
	f := sensors(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, fmt.Sprint(20+i)); err != nil {
			t.Fatalf("SetValue() error = %v", err)
		}
	}

	got, err := f.svc.GetHistory(ctx, device.RoomLivingRoom, device.TypeTemperature, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("GetHistory(10) returned %d records", len(got))
	}
	if v, _ := got[0].Value.Float(); v != 34 {
		t.Errorf("newest record = %v, want 34", v)
	}
	if v, _ := got[9].Value.Float(); v != 25 {
		t.Errorf("oldest returned record = %v, want 25", v)
	}

	for _, limit := range []int{0, -4} {
		got, _ := f.svc.GetHistory(ctx, device.RoomLivingRoom, device.TypeTemperature, limit)
		if len(got) != DefaultHistoryLimit {
			t.Errorf("GetHistory(%d) returned %d, want default", limit, len(got))
		}
	}
	if got, _ := f.svc.GetHistory(ctx, device.RoomLivingRoom, device.TypeTemperature, 5000); len(got) != 15 {
		t.Errorf("GetHistory(5000) returned %d, want all 15", len(got))
	}
}

func TestGetHistory_ClampsToMax(t *testing.T) {
	s := newCountingStore()
	svc, err := NewService(Deps{Registry: device.SensorRegistry(), Store: s, MaxHistory: 3})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.SetValue(ctx, device.RoomLivingRoom, device.TypeTemperature, "20"); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := svc.GetHistory(ctx, device.RoomLivingRoom, device.TypeTemperature, 100); len(got) != 3 {
		t.Errorf("GetHistory(100) returned %d, want clamp to 3", len(got))
	}
}

func TestSetValue_StateWriteFailure(t *testing.T) {
	f := sensors(t)
	f.store.failWrite = errors.New("redis: connection refused")

	res, err := f.svc.SetValue(context.Background(), device.RoomLivingRoom, device.TypeGas, "900")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("SetValue() = %v, want ErrStoreUnavailable", err)
	}
	if res != nil {
		t.Error("result returned for a failed state write")
	}
	if f.sink.count() != 0 {
		t.Error("alert raised for a failed write")
	}
	if len(f.obs.readings) != 0 {
		t.Error("observers notified of a failed write")
	}
}

func TestSetValue_HistoryFailureIsPartial(t *testing.T) {
	f := sensors(t)
	f.store.failAppend = errors.New("disk full")
	ctx := context.Background()

	res, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeGas, "701")
	if !errors.Is(err, ErrHistoryAppend) {
		t.Fatalf("SetValue() = %v, want ErrHistoryAppend", err)
	}
	var partial *PartialWriteError
	if !errors.As(err, &partial) || partial.Path != "sensor_history/salon/gas" {
		t.Errorf("err = %#v, want PartialWriteError for history path", err)
	}
	if res == nil || res.Value.String() != "701" {
		t.Fatalf("result = %+v, want the stored value", res)
	}
	if f.sink.count() != 1 {
		t.Error("alert should still be raised when only history failed")
	}

	cur, _ := f.svc.GetCurrent(ctx, device.RoomLivingRoom, device.TypeGas)
	if cur.Status != StatusPresent {
		t.Errorf("state not written: %+v", cur)
	}
}

func TestSetValue_SinkFailureIsLogged(t *testing.T) {
	f := sensors(t)
	f.sink.err = errors.New("sqlite: database is locked")

	res, err := f.svc.SetValue(context.Background(), device.RoomLivingRoom, device.TypeGas, "800")
	if err != nil {
		t.Fatalf("SetValue() error = %v, notification failures must not be returned", err)
	}
	if !res.Classification.Alerted || res.Classification.NotificationID != "" {
		t.Errorf("classification = %+v", res.Classification)
	}
	if len(f.logger.errors) != 1 {
		t.Errorf("errors logged = %v, want one", f.logger.errors)
	}
}

func TestGetCurrent_StoreFailure(t *testing.T) {
	f := sensors(t)
	f.store.failRead = errors.New("timeout")

	if _, err := f.svc.GetCurrent(context.Background(), device.RoomLivingRoom, device.TypeGas); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("GetCurrent() = %v, want ErrStoreUnavailable", err)
	}
}

func TestSetValueAt_UsesGivenTimestamp(t *testing.T) {
	f := sensors(t)
	at := time.Date(2026, 2, 14, 18, 30, 0, 0, time.FixedZone("TRT", 3*3600))

	res, err := f.svc.SetValueAt(context.Background(), device.RoomEntrance, device.TypeFaceID, device.FaceDetected, at)
	if err != nil {
		t.Fatalf("SetValueAt() error = %v", err)
	}
	if !res.Timestamp.Equal(at) || res.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", res.Timestamp, at)
	}
	if len(f.obs.readings) != 1 || f.obs.readings[0].Direction != device.DirectionSensor {
		t.Errorf("observer readings = %+v", f.obs.readings)
	}
}

func TestListRoom(t *testing.T) {
	f := commands(t)
	ctx := context.Background()

	if _, err := f.svc.SetValue(ctx, device.RoomLivingRoom, device.TypeLight, "on"); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.ListRoom(ctx, device.RoomLivingRoom)
	if err != nil {
		t.Fatalf("ListRoom() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRoom() = %+v, want light and temperature", got)
	}
	if got[0].Type != device.TypeLight || got[0].Status != StatusPresent {
		t.Errorf("light = %+v", got[0])
	}
	if got[1].Type != device.TypeTemperature || got[1].Status != StatusNoData {
		t.Errorf("temperature = %+v", got[1])
	}

	if _, err := f.svc.ListRoom(ctx, "attic"); !errors.Is(err, device.ErrRoomNotApplicable) {
		t.Errorf("ListRoom(attic) = %v, want ErrRoomNotApplicable", err)
	}
}

func TestSetValue_ClassifiedWriteSkipsStateRead(t *testing.T) {
	f := sensors(t)
	f.store.failRead = errors.New("read timeout")

	res, err := f.svc.SetValue(context.Background(), device.RoomLivingRoom, device.TypeGas, "701")
	if err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if !res.Classification.Alerted {
		t.Errorf("classification = %+v, want alerted", res.Classification)
	}
	// history append + state write
	if n := f.store.count(); n != 2 {
		t.Errorf("store saw %d calls, want 2", n)
	}
}
