package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	state   map[string]Entry
	history map[string][]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state:   make(map[string]Entry),
		history: make(map[string][]Record),
	}
}

// Read returns the entry at path.
func (m *MemoryStore) Read(_ context.Context, path string) (Entry, bool, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.state[path]
	return e, ok, nil
}

// Write replaces the entry at path.
func (m *MemoryStore) Write(_ context.Context, path string, entry Entry) error {
	if err := checkPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[path] = entry
	return nil
}

// AppendHistory appends entry under path.
func (m *MemoryStore) AppendHistory(_ context.Context, path string, entry Entry) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}
	rec := Record{ID: uuid.NewString(), Entry: entry}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[path] = append(m.history[path], rec)
	return rec.ID, nil
}

// ReadHistory returns the newest records under path.
func (m *MemoryStore) ReadHistory(_ context.Context, path string, limit int) ([]Record, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	m.mu.RLock()
	all := m.history[path]
	out := make([]Record, len(all))
	// Reverse so that after a stable sort, equal timestamps keep the later append first.
	for i, rec := range all {
		out[len(all)-1-i] = rec
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
