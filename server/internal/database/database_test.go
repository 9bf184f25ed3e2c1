package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vattention/facio-superpowers/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func seedKey(t *testing.T, db *DB, id string) {
	t.Helper()
	require.NoError(t, db.CreateAPIKey(&APIKey{ID: id, Name: "team " + id, Hash: "hash"}))
}

func record(ts time.Time, modelName, op string, cost float64) model.UsageRecord {
	return model.UsageRecord{
		Timestamp:    ts,
		Model:        modelName,
		Operation:    op,
		InputTokens:  100,
		OutputTokens: 50,
		Cost:         cost,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Migrate())
}

func TestAPIKeys(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")

	key, err := db.GetAPIKey("k1")
	require.NoError(t, err)
	assert.Equal(t, "team k1", key.Name)
	assert.Equal(t, "hash", key.Hash)

	_, err = db.GetAPIKey("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateClient(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")
	seedKey(t, db, "k2")

	c, err := db.GetOrCreateClient("k1", "c1", "laptop")
	require.NoError(t, err)
	assert.Equal(t, "laptop", c.Name)
	assert.Nil(t, c.LastSyncAt)

	c, err = db.GetOrCreateClient("k1", "c1", "desktop")
	require.NoError(t, err)
	assert.Equal(t, "desktop", c.Name)

	_, err = db.GetOrCreateClient("k2", "c1", "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertUsageRecordsIgnoresDuplicates(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")
	_, err := db.GetOrCreateClient("k1", "c1", "laptop")
	require.NoError(t, err)

	ts := time.Date(2026, 10, 14, 9, 30, 0, 123456789, time.UTC)
	module := "auth"
	first := record(ts, "sonnet", "code-gen", 0.01)
	first.Module = &module
	first.FilesChanged = 3

	n, err := db.InsertUsageRecords("c1", []model.UsageRecord{first, record(ts, "haiku", "code-gen", 0.002)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// same client, timestamp, model, operation and token counts
	n, err = db.InsertUsageRecords("c1", []model.UsageRecord{record(ts, "sonnet", "code-gen", 9.99)})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	records, err := db.ListUsage(time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ts, records[0].Timestamp)
	assert.Equal(t, "auth", records[0].ModuleName())
	assert.Equal(t, 3, records[0].FilesChanged)
	assert.InDelta(t, 0.01, records[0].Cost, 1e-9)
	assert.Nil(t, records[1].Module)
}

func TestInsertUsageRecordsKeepsCallsWithDifferentTokens(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")
	_, err := db.GetOrCreateClient("k1", "c1", "laptop")
	require.NoError(t, err)

	// two calls logged within the same second
	ts := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	a := record(ts, "sonnet", "code-gen", 0.01)
	b := record(ts, "sonnet", "code-gen", 0.02)
	b.InputTokens = 2500
	c := record(ts, "sonnet", "code-gen", 0.03)
	c.OutputTokens = 900

	n, err := db.InsertUsageRecords("c1", []model.UsageRecord{a, b, c})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = db.InsertUsageRecords("c1", []model.UsageRecord{a, b, c})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	records, err := db.ListUsage(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestListUsageAndCountClientsHonourRange(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")
	for _, id := range []string{"c1", "c2"} {
		_, err := db.GetOrCreateClient("k1", id, id)
		require.NoError(t, err)
	}

	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	_, err := db.InsertUsageRecords("c1", []model.UsageRecord{
		record(day.Add(-time.Nanosecond), "sonnet", "a", 1),
		record(day, "sonnet", "b", 2),
	})
	require.NoError(t, err)
	_, err = db.InsertUsageRecords("c2", []model.UsageRecord{
		record(day.Add(24*time.Hour), "sonnet", "c", 4),
	})
	require.NoError(t, err)

	records, err := db.ListUsage(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Operation)

	n, err := db.CountClients(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.CountClients(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClientSyncStatus(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "k1")
	_, err := db.GetOrCreateClient("k1", "c1", "laptop")
	require.NoError(t, err)

	status, err := db.GetClientSyncStatus("k1", "c1")
	require.NoError(t, err)
	assert.Nil(t, status)

	later := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpdateClientLastSync("c1", later))
	require.NoError(t, db.UpdateClientLastSync("c1", later.Add(-time.Hour)))

	status, err = db.GetClientSyncStatus("k1", "c1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, later, *status)

	status, err = db.GetClientSyncStatus("other", "c1")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &DB{conn}, mock
}

func TestInsertUsageRecordsRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR IGNORE INTO usage_records").
		ExpectExec().
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	n, err := db.InsertUsageRecords("c1", []model.UsageRecord{record(time.Now(), "sonnet", "x", 1)})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsageQueryError(t *testing.T) {
	db, mock := newMockDB(t)

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT timestamp, model, operation").
		WithArgs(since.UnixNano()).
		WillReturnError(errors.New("no such table: usage_records"))

	_, err := db.ListUsage(since, time.Time{})
	assert.ErrorContains(t, err, "no such table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountClientsBuildsRange(t *testing.T) {
	db, mock := newMockDB(t)

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT client_id\) FROM usage_records WHERE timestamp >= \? AND timestamp < \?`).
		WithArgs(since.UnixNano(), until.UnixNano()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := db.CountClients(since, until)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
