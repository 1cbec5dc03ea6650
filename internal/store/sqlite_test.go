package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *SQLiteStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	return mock, NewSQLiteStore(db)
}

func TestSQLiteStore_AppendHistoryError(t *testing.T) {
	mock, s := setupMockStore(t)

	diskFull := errors.New("database or disk is full")
	mock.ExpectExec(`INSERT INTO history_records`).
		WithArgs("sensor_history/salon/gas", "integer", "701", t0.UnixNano()).
		WillReturnError(diskFull)

	_, err := s.AppendHistory(context.Background(), "sensor_history/salon/gas",
		Entry{Value: device.IntValue(701), Timestamp: t0})

	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "sensor_history/salon/gas")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_WriteUpserts(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectExec(`INSERT INTO state_entries .* ON CONFLICT\(path\) DO UPDATE`).
		WithArgs("commands/salon/temperature", "float", "25.5", t0.UnixNano()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Write(context.Background(), "commands/salon/temperature",
		Entry{Value: device.FloatValue(25.5), Timestamp: t0})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_ReadHistoryDecodeError(t *testing.T) {
	mock, s := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "kind", "value", "recorded_at"}).
		AddRow(int64(1), "integer", "not-a-number", t0.UnixNano())
	mock.ExpectQuery(`SELECT id, kind, value, recorded_at`).
		WithArgs("sensor_history/salon/gas", 10).
		WillReturnRows(rows)

	_, err := s.ReadHistory(context.Background(), "sensor_history/salon/gas", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_ReadQueryError(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectQuery(`SELECT kind, value, recorded_at FROM state_entries`).
		WithArgs("sensors/salon/gas").
		WillReturnError(errors.New("database is locked"))

	_, ok, err := s.Read(context.Background(), "sensors/salon/gas")

	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
