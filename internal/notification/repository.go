package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// SQLiteRepository stores notifications in the notifications table.
// It implements Sink.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new notification repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts n. The ID and Timestamp are generated if empty, and Read is
// always stored as false.
func (r *SQLiteRepository) Record(ctx context.Context, n *Notification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	if n.ID == "" {
		n.ID = "ntf-" + uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = r.now().UTC()
	}
	n.Read = false

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, title, message, category, severity, source_value, room, device_type, created_at, read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		n.ID, n.Title, n.Message, n.Category,
		nullableString(n.Severity), nullableString(n.SourceValue),
		nullableString(n.Room), nullableString(n.DeviceType),
		n.Timestamp.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting notification: %w", err)
	}
	return n.ID, nil
}

// nullableString returns nil for empty strings so optional columns stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns notifications matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	var conditions []string
	var args []any
	if filter.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from fixed conditions with ? placeholders
		`SELECT id, title, message, category, severity, source_value, room, device_type, created_at, read
		 FROM notifications %s ORDER BY created_at DESC, id LIMIT ?`,
		where,
	)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return out, nil
}

// Get returns one notification by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Notification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, message, category, severity, source_value, room, device_type, created_at, read
		 FROM notifications WHERE id = ?`, id)

	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead flips Read to true. Marking an already-read notification succeeds.
func (r *SQLiteRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes a notification.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var (
		n                                    Notification
		severity, sourceValue, room, devType sql.NullString
		createdAt                            int64
		read                                 int
	)
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Category,
		&severity, &sourceValue, &room, &devType, &createdAt, &read)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Notification{}, err
		}
		return Notification{}, fmt.Errorf("scanning notification: %w", err)
	}
	n.Severity = severity.String
	n.SourceValue = sourceValue.String
	n.Room = room.String
	n.DeviceType = devType.String
	n.Timestamp = time.Unix(0, createdAt).UTC()
	n.Read = read == 1
	return n, nil
}
