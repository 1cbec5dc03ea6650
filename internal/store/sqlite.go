package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

// SQLiteStore implements StateStore on the state_entries and history_records tables.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Read returns the entry at path.
func (s *SQLiteStore) Read(ctx context.Context, path string) (Entry, bool, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, false, err
	}

	var kind, text string
	var recordedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT kind, value, recorded_at FROM state_entries WHERE path = ?", path,
	).Scan(&kind, &text, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading state %s: %w", path, err)
	}

	entry, err := decodeEntry(kind, text, recordedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading state %s: %w", path, err)
	}
	return entry, true, nil
}

// Write upserts the entry at path.
func (s *SQLiteStore) Write(ctx context.Context, path string, entry Entry) error {
	if err := checkPath(path); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_entries (path, kind, value, recorded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, value = excluded.value, recorded_at = excluded.recorded_at`,
		path, string(entry.Value.Kind()), entry.Value.String(), entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing state %s: %w", path, err)
	}
	return nil
}

// AppendHistory inserts a history row and returns its row ID.
func (s *SQLiteStore) AppendHistory(ctx context.Context, path string, entry Entry) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO history_records (path, kind, value, recorded_at) VALUES (?, ?, ?, ?)",
		path, string(entry.Value.Kind()), entry.Value.String(), entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("appending history %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("appending history %s: %w", path, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// ReadHistory returns the newest records under path.
func (s *SQLiteStore) ReadHistory(ctx context.Context, path string, limit int) ([]Record, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, value, recorded_at
		 FROM history_records
		 WHERE path = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		path, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history %s: %w", path, err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			id         int64
			kind, text string
			recordedAt int64
		)
		if err := rows.Scan(&id, &kind, &text, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning history %s: %w", path, err)
		}
		entry, err := decodeEntry(kind, text, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("decoding history %s: %w", path, err)
		}
		records = append(records, Record{ID: strconv.FormatInt(id, 10), Entry: entry})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history %s: %w", path, err)
	}
	return records, nil
}

func decodeEntry(kind, text string, unixNano int64) (Entry, error) {
	v, err := device.DecodeValue(kind, text)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: v, Timestamp: time.Unix(0, unixNano).UTC()}, nil
}
