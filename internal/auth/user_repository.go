package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Count(ctx context.Context) (int, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	RecordLogout(ctx context.Context, username string, at time.Time) error
}

// SQLiteUserRepository implements UserRepository on the users table.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a repository on an open, migrated database.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = "id, username, display_name, password_hash, role, is_active, last_login, last_logout, created_at, updated_at"

// Create inserts user, generating the ID when empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if !IsValidUsername(user.Username) {
		return fmt.Errorf("invalid username %q", user.Username)
	}
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	now := time.Now().UTC().Truncate(time.Second)
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, password_hash, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.DisplayName, user.PasswordHash, string(user.Role),
		boolToInt(user.IsActive), now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByUsername returns the account for username.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// Count returns the number of accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// RecordLogin stamps last_login for the user with id.
func (r *SQLiteUserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.stamp(ctx, "UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?", id, at)
}

// RecordLogout stamps last_logout for username.
func (r *SQLiteUserRepository) RecordLogout(ctx context.Context, username string, at time.Time) error {
	return r.stamp(ctx, "UPDATE users SET last_logout = ?, updated_at = ? WHERE username = ?", username, at)
}

func (r *SQLiteUserRepository) stamp(ctx context.Context, query, key string, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, query, ts, ts, key)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*User, error) {
	var (
		u                     User
		role                  string
		active                int
		lastLogin, lastLogout sql.NullString
		createdAt, updatedAt  string
	)
	err := s.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &role, &active,
		&lastLogin, &lastLogout, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.IsActive = active == 1
	u.LastLogin = parseOptionalTime(lastLogin)
	u.LastLogout = parseOptionalTime(lastLogout)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by Create
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // written by Create
	return &u, nil
}

func parseOptionalTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
