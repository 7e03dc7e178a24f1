package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestProbe(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectPing()

	assert.NoError(t, s.Probe(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbeFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := s.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database probe failed")
}

func TestTableCount(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_orders`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1234))

	count, err := s.TableCount(context.Background(), "ods_orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateODSCoversEveryTable(t *testing.T) {
	s, mock := newMockStore(t)
	for _, table := range ODSTables {
		mock.ExpectExec("TRUNCATE TABLE " + table).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("TRUNCATE TABLE ods_generation_meta").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.TruncateODS(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAndReadGenerationMeta(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for range ODSTables {
		mock.ExpectExec(`REPLACE INTO ods_generation_meta`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	counts := map[string]int{"ods_orders": 100, "ods_stores": 5}
	require.NoError(t, s.RecordGenerationMeta(context.Background(), counts, at))

	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "row_count"}).
			AddRow("ods_orders", 100).
			AddRow("ods_stores", 5))

	meta, err := s.GenerationMeta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), meta["ods_orders"])
	assert.Equal(t, int64(5), meta["ods_stores"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchUnknownTable(t *testing.T) {
	s, _ := newMockStore(t)
	err := insertBatch(context.Background(), s, "ods_nope", []struct{}{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no insert statement")
}
