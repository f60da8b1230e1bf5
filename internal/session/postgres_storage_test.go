package session

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStorage(db, "ward-3"), mock
}

func TestPostgresStorage_Get(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectQuery("SELECT value FROM session_storage").
		WithArgs("ward-3", KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("t1"))

	value, ok, err := storage.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetMissing(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectQuery("SELECT value FROM session_storage").
		WithArgs("ward-3", KeyUser).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := storage.Get(context.Background(), KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetError(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectQuery("SELECT value FROM session_storage").
		WithArgs("ward-3", KeyUser).
		WillReturnError(errors.New("connection reset"))

	_, ok, err := storage.Get(context.Background(), KeyUser)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPostgresStorage_Set(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectExec("INSERT INTO session_storage").
		WithArgs("ward-3", KeyPermissions, `["VIEW_PATIENTS"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, storage.Set(context.Background(), KeyPermissions, `["VIEW_PATIENTS"]`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_RemoveAndClear(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectExec("DELETE FROM session_storage WHERE profile = \\$1 AND key = \\$2").
		WithArgs("ward-3", KeyToken).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM session_storage WHERE profile = \\$1$").
		WithArgs("ward-3").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, storage.Remove(context.Background(), KeyToken))
	require.NoError(t, storage.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_SetError(t *testing.T) {
	storage, mock := newMockPostgresStorage(t)

	mock.ExpectExec("INSERT INTO session_storage").
		WillReturnError(errors.New("disk full"))

	err := storage.Set(context.Background(), KeyToken, "t1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
