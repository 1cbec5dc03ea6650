package faceid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/notification"
	"github.com/smarthome-app/smarthome-core/internal/store"
)

type recordingSink struct {
	recorded []*notification.Notification
	err      error
}

func (s *recordingSink) Record(_ context.Context, n *notification.Notification) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.recorded = append(s.recorded, n)
	return "ntf-1", nil
}

type failingHistory struct {
	*store.MemoryStore
}

func (failingHistory) AppendHistory(context.Context, string, store.Entry) (string, error) {
	return "", errors.New("disk full")
}

func newRelay(t *testing.T, st store.StateStore) (*Relay, *control.Service, *recordingSink) {
	t.Helper()
	svc, err := control.NewService(control.Deps{Registry: device.SensorRegistry(), Store: st})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	sink := &recordingSink{}
	relay := NewRelay(svc, sink, map[string]string{"cam-front": device.RoomEntrance})
	return relay, svc, sink
}

func TestHandle_RecognizedAndNot(t *testing.T) {
	tests := []struct {
		recognized bool
		wantState  string
		wantWord   string
	}{
		{true, device.FaceDetected, "recognized"},
		{false, device.FaceNotDetected, "not recognized"},
	}

	for _, tt := range tests {
		t.Run(tt.wantState, func(t *testing.T) {
			relay, svc, sink := newRelay(t, store.NewMemoryStore())
			at := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)

			res, err := relay.Handle(context.Background(), Event{DeviceID: "cam-front", Recognized: tt.recognized, Timestamp: at})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if res.Room != device.RoomEntrance || res.NotificationID != "ntf-1" {
				t.Errorf("result = %+v", res)
			}

			cur, err := svc.GetCurrent(context.Background(), device.RoomEntrance, device.TypeFaceID)
			if err != nil {
				t.Fatalf("GetCurrent() error = %v", err)
			}
			if cur.Value.String() != tt.wantState || !cur.Timestamp.Equal(at) {
				t.Errorf("face_id = %+v, want %s at %v", cur, tt.wantState, at)
			}

			if len(sink.recorded) != 1 {
				t.Fatalf("notifications = %d, want 1", len(sink.recorded))
			}
			n := sink.recorded[0]
			if n.Category != notification.CategoryFaceRecognition || n.Severity != notification.SeverityInfo {
				t.Errorf("notification = %+v", n)
			}
			if n.Message != "Face "+tt.wantWord+" on device cam-front" {
				t.Errorf("Message = %q", n.Message)
			}
		})
	}
}

func TestHandle_UnmappedDeviceUsesIDAsRoom(t *testing.T) {
	relay, _, _ := newRelay(t, store.NewMemoryStore())

	res, err := relay.Handle(context.Background(), Event{DeviceID: device.RoomEntrance, Recognized: true})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Room != device.RoomEntrance {
		t.Errorf("Room = %q", res.Room)
	}
}

func TestHandle_RoomWithoutFaceSensorStillNotifies(t *testing.T) {
	relay, svc, sink := newRelay(t, store.NewMemoryStore())

	res, err := relay.Handle(context.Background(), Event{DeviceID: "cam-garage", Recognized: true})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Write != nil || res.Skipped == "" {
		t.Errorf("result = %+v, want a skipped reading", res)
	}
	if len(sink.recorded) != 1 || res.NotificationID != "ntf-1" {
		t.Fatalf("notifications = %d, id = %q, want one", len(sink.recorded), res.NotificationID)
	}
	if n := sink.recorded[0]; n.Room != "cam-garage" || n.Message != "Face recognized on device cam-garage" {
		t.Errorf("notification = %+v", n)
	}

	cur, err := svc.GetCurrent(context.Background(), device.RoomEntrance, device.TypeFaceID)
	if err != nil {
		t.Fatalf("GetCurrent() error = %v", err)
	}
	if cur.Status == control.StatusPresent {
		t.Errorf("face_id written for an unmapped camera: %+v", cur)
	}
}

type unavailableStore struct {
	*store.MemoryStore
}

func (unavailableStore) Write(context.Context, string, store.Entry) error {
	return errors.New("connection refused")
}

func TestHandle_StoreFailureStillNotifies(t *testing.T) {
	relay, _, sink := newRelay(t, unavailableStore{store.NewMemoryStore()})

	res, err := relay.Handle(context.Background(), Event{DeviceID: "cam-front", Recognized: false})
	if !errors.Is(err, control.ErrStoreUnavailable) {
		t.Fatalf("Handle() = %v, want ErrStoreUnavailable", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if len(sink.recorded) != 1 {
		t.Errorf("notifications = %d, want 1", len(sink.recorded))
	}
}

func TestHandle_MissingDeviceID(t *testing.T) {
	relay, _, _ := newRelay(t, store.NewMemoryStore())

	_, err := relay.Handle(context.Background(), Event{Recognized: true})
	if !errors.Is(err, device.ErrMalformedRequest) || device.FieldOf(err) != "device_id" {
		t.Errorf("Handle() = %v, want malformed device_id", err)
	}
}

func TestHandle_PartialWriteStillNotifies(t *testing.T) {
	relay, _, sink := newRelay(t, failingHistory{store.NewMemoryStore()})

	res, err := relay.Handle(context.Background(), Event{DeviceID: "cam-front", Recognized: false})
	if !errors.Is(err, control.ErrHistoryAppend) {
		t.Fatalf("Handle() = %v, want ErrHistoryAppend", err)
	}
	if res == nil || len(sink.recorded) != 1 {
		t.Errorf("result = %+v, notifications = %d", res, len(sink.recorded))
	}
}

func TestHandle_SinkFailureNotReturned(t *testing.T) {
	relay, _, sink := newRelay(t, store.NewMemoryStore())
	sink.err = errors.New("locked")

	res, err := relay.Handle(context.Background(), Event{DeviceID: "cam-front", Recognized: true})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.NotificationID != "" {
		t.Errorf("NotificationID = %q, want empty", res.NotificationID)
	}
}
