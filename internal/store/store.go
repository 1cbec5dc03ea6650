// Package store persists current state and append-only history for every
// (room, type) pair behind a path-addressed StateStore.
//
// Three backends share the contract: SQLiteStore (default, durable),
// RedisStore (a shared key-value document store) and MemoryStore (tests and
// throwaway runs).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

// DefaultHistoryLimit is used when ReadHistory gets a non-positive limit.
const DefaultHistoryLimit = 10

// ErrInvalidPath is returned for empty paths.
var ErrInvalidPath = errors.New("store: invalid path")

// Entry is the current value at a path.
type Entry struct {
	Value     device.Value `json:"value"`
	Timestamp time.Time    `json:"timestamp"`
}

// Record is one history item.
type Record struct {
	ID string `json:"id"`
	Entry
}

// StateStore is a path-addressed document store.
//
// Write replaces the entry at a path. AppendHistory never overwrites. Both
// are safe for concurrent use; the last completed Write wins.
type StateStore interface {
	// Read returns the entry at path. ok is false when nothing was ever written.
	Read(ctx context.Context, path string) (entry Entry, ok bool, err error)

	Write(ctx context.Context, path string, entry Entry) error

	// AppendHistory adds entry to the history at path and returns its ID.
	AppendHistory(ctx context.Context, path string, entry Entry) (string, error)

	// ReadHistory returns up to limit records, newest first by timestamp.
	// Ties keep the most recently appended record first.
	ReadHistory(ctx context.Context, path string, limit int) ([]Record, error)
}

// StatePath is where the current value for room/typ lives.
//
//	StatePath(device.DirectionSensor, "salon", "gas") // "sensors/salon/gas"
func StatePath(dir device.Direction, room, typ string) string {
	return fmt.Sprintf("%ss/%s/%s", dir, room, typ)
}

// HistoryPath is where the history for room/typ lives.
//
//	HistoryPath(device.DirectionCommand, "salon", "light") // "command_history/salon/light"
func HistoryPath(dir device.Direction, room, typ string) string {
	return fmt.Sprintf("%s_history/%s/%s", dir, room, typ)
}

func checkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
