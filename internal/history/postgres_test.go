package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-scan-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	record := sampleRecord("scan-1", "Sugar")
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM scan_history").
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := store.Get(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "scan-1", got[0].ID)
	assert.Equal(t, domain.NOVA3, got[0].Result.FoodItems[0].NovaCategory)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT payload FROM scan_history").
		WithArgs("empty-session").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := store.Get(context.Background(), "empty-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put(t *testing.T) {
	store, mock := newMockStore(t)

	records := []domain.ScanRecord{
		sampleRecord("scan-2", "Bread"),
		sampleRecord("scan-1", "Sugar"),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM scan_history").
		WithArgs("session-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO scan_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scan_history").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.Put(context.Background(), "session-1", records)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
