// Package control runs the sensor and command state machine: validate an
// inbound value, record it in history, replace the current state, and raise
// alerts for classified readings.
//
// One Service serves one direction. The sensor and command services differ
// only in their registry and whether they have a notification sink.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/alerting"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/notification"
	"github.com/smarthome-app/smarthome-core/internal/store"
)

const (
	// DefaultHistoryLimit applies when a caller asks for zero or fewer records.
	DefaultHistoryLimit = 10

	// DefaultMaxHistory caps history queries unless Deps.MaxHistory says otherwise.
	DefaultMaxHistory = 200

	// defaultBinaryState is reported for a binary type that was never written.
	defaultBinaryState = "off"
)

// Status describes where a Current value came from.
type Status string

const (
	StatusPresent    Status = "present"
	StatusDefaultOff Status = "default_off"
	StatusNoData     Status = "no_data"
)

// Current is the answer to "what is the value of type in room right now".
type Current struct {
	Room      string       `json:"room"`
	Type      string       `json:"type"`
	Status    Status       `json:"status"`
	Value     device.Value `json:"value"`
	Timestamp *time.Time   `json:"timestamp"`
}

// Classification reports what the alerting engine made of a reading.
type Classification struct {
	Classified     bool              `json:"classified"`
	Severity       alerting.Severity `json:"severity,omitempty"`
	Alerted        bool              `json:"alerted"`
	NotificationID string            `json:"notification_id,omitempty"`
}

// WriteResult describes an accepted write.
type WriteResult struct {
	Room           string          `json:"room"`
	Type           string          `json:"type"`
	Value          device.Value    `json:"value"`
	Timestamp      time.Time       `json:"timestamp"`
	HistoryID      string          `json:"history_id,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
}

// Reading is handed to observers after a write is stored.
type Reading struct {
	Direction device.Direction
	Room      string
	Type      string
	Value     device.Value
	Timestamp time.Time
}

// Observer receives every stored write. Observers run synchronously and must
// not block; they cannot fail the write.
type Observer interface {
	Observe(ctx context.Context, r Reading)
}

// Logger is the logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the collaborators of a Service.
type Deps struct {
	Registry *device.Registry
	Store    store.StateStore

	// Sink receives alerts for classified types. Nil disables alerting output.
	Sink notification.Sink

	Logger    Logger
	Observers []Observer

	// MaxHistory caps GetHistory. Zero means DefaultMaxHistory.
	MaxHistory int

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service implements the read and write operations for one direction.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	registry   *device.Registry
	store      store.StateStore
	sink       notification.Sink
	logger     Logger
	observers  []Observer
	maxHistory int
	now        func() time.Time
}

// NewService validates deps and builds a Service.
func NewService(deps Deps) (*Service, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("control: registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("control: store is required")
	}

	s := &Service{
		registry:   deps.Registry,
		store:      deps.Store,
		sink:       deps.Sink,
		logger:     deps.Logger,
		observers:  deps.Observers,
		maxHistory: deps.MaxHistory,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Registry returns the catalogue this service validates against.
func (s *Service) Registry() *device.Registry {
	return s.registry
}

// Direction returns the registry's direction.
func (s *Service) Direction() device.Direction {
	return s.registry.Direction()
}

// GetCurrent returns the current value of typ in room. A type that does not
// exist in room fails before the store is touched.
func (s *Service) GetCurrent(ctx context.Context, room, typ string) (Current, error) {
	spec, err := s.registry.Check(typ, room)
	if err != nil {
		return Current{}, err
	}

	entry, ok, err := s.store.Read(ctx, store.StatePath(s.Direction(), room, typ))
	if err != nil {
		return Current{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	cur := Current{Room: room, Type: typ}
	switch {
	case ok:
		ts := entry.Timestamp
		cur.Status = StatusPresent
		cur.Value = entry.Value
		cur.Timestamp = &ts
	case spec.Kind == device.KindBinary:
		cur.Status = StatusDefaultOff
		cur.Value = device.EnumValue(defaultBinaryState)
	default:
		cur.Status = StatusNoData
	}
	return cur, nil
}

// ListRoom returns the current value of every type available in room, in
// catalogue order.
func (s *Service) ListRoom(ctx context.Context, room string) ([]Current, error) {
	specs := s.registry.TypesForRoom(room)
	if len(specs) == 0 {
		return nil, &device.ValidationError{
			Field:  "room",
			Value:  room,
			Err:    device.ErrRoomNotApplicable,
			Detail: fmt.Sprintf("known rooms: %v", s.registry.Rooms()),
		}
	}

	out := make([]Current, 0, len(specs))
	for _, spec := range specs {
		cur, err := s.GetCurrent(ctx, room, spec.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}

// SetValue validates raw and stores it with the current time.
func (s *Service) SetValue(ctx context.Context, room, typ, raw string) (*WriteResult, error) {
	return s.SetValueAt(ctx, room, typ, raw, s.now())
}

// SetValueAt validates raw and stores it with timestamp at.
//
// History is appended first, then the current state is replaced. A failed
// state write returns ErrStoreUnavailable and nothing else happens. A failed
// history append still returns the result, together with a
// *PartialWriteError. Notification failures are logged and never returned.
func (s *Service) SetValueAt(ctx context.Context, room, typ, raw string, at time.Time) (*WriteResult, error) {
	spec, err := s.registry.Check(typ, room)
	if err != nil {
		return nil, err
	}
	value, err := device.Validate(spec, raw)
	if err != nil {
		return nil, err
	}

	dir := s.Direction()
	statePath := store.StatePath(dir, room, typ)
	historyPath := store.HistoryPath(dir, room, typ)
	entry := store.Entry{Value: value, Timestamp: at.UTC()}

	historyID, historyErr := s.store.AppendHistory(ctx, historyPath, entry)
	if err := s.store.Write(ctx, statePath, entry); err != nil {
		s.logger.Error("state write failed", "path", statePath, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	result := &WriteResult{
		Room:      room,
		Type:      typ,
		Value:     value,
		Timestamp: entry.Timestamp,
		HistoryID: historyID,
	}

	if spec.Classified() {
		result.Classification = s.classify(ctx, spec, room, value, entry.Timestamp)
	}

	reading := Reading{Direction: dir, Room: room, Type: typ, Value: value, Timestamp: entry.Timestamp}
	for _, o := range s.observers {
		o.Observe(ctx, reading)
	}

	if historyErr != nil {
		s.logger.Warn("history append failed, state was updated", "path", historyPath, "error", historyErr)
		return result, &PartialWriteError{Path: historyPath, Err: historyErr}
	}

	s.logger.Info("value updated", "direction", dir, "room", room, "type", typ, "value", value.String())
	return result, nil
}

// classify alerts on the reading alone. Alerts are value-triggered, so the
// stored value is never consulted.
func (s *Service) classify(ctx context.Context, spec device.Spec, room string, value device.Value, at time.Time) *Classification {
	i, _ := value.Int()
	severity, err := alerting.Classify(spec, i)
	if err != nil {
		s.logger.Warn("reading outside every severity band", "room", room, "type", spec.Name, "value", i)
		return &Classification{Classified: false}
	}

	c := &Classification{Classified: true, Severity: severity}
	if !alerting.ShouldAlert(alerting.SeverityNone, severity) {
		return c
	}

	c.Alerted = true
	if s.sink == nil {
		s.logger.Warn("alert raised without a notification sink", "room", room, "type", spec.Name, "severity", severity)
		return c
	}

	n := alerting.Alert(spec, room, value, severity)
	n.Timestamp = at
	id, err := s.sink.Record(ctx, n)
	if err != nil {
		s.logger.Error("recording alert failed",
			"room", room, "type", spec.Name, "severity", severity,
			"error", fmt.Errorf("%w: %w", ErrNotificationFailed, err))
		return c
	}
	c.NotificationID = id
	s.logger.Warn("alert raised", "room", room, "type", spec.Name, "severity", severity, "value", i, "notification_id", id)
	return c
}

// GetHistory returns the newest records for typ in room. A non-positive
// limit means DefaultHistoryLimit; larger limits are clamped to the maximum.
func (s *Service) GetHistory(ctx context.Context, room, typ string, limit int) ([]store.Record, error) {
	if _, err := s.registry.Check(typ, room); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > s.maxHistory {
		limit = s.maxHistory
	}

	records, err := s.store.ReadHistory(ctx, store.HistoryPath(s.Direction(), room, typ), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}
