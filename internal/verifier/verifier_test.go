package verifier

import (
	"context"
	"testing"

	"dw-pipeline/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockVerifier(t *testing.T) (*Verifier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(store.NewStoreFromDB(sqlx.NewDb(db, "sqlmock"))), mock
}

func metaRows(counts map[string]int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"table_name", "row_count"})
	for _, table := range store.ODSTables {
		if c, ok := counts[table]; ok {
			rows.AddRow(table, c)
		}
	}
	return rows
}

func fullMeta(n int64) map[string]int64 {
	m := make(map[string]int64, len(store.ODSTables))
	for _, table := range store.ODSTables {
		m[table] = n
	}
	return m
}

func countRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"c"}).AddRow(n)
}

func expectCleanRun(mock sqlmock.Sqlmock, rowCount int64) {
	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(metaRows(fullMeta(rowCount)))
	for range store.ODSTables {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_`).
			WillReturnRows(countRow(rowCount))
	}
	// Order arithmetic: no header/line disagreements, no paid-amount
	// contract violations.
	mock.ExpectQuery(`WHERE o.gross_amount <> d.line_total`).
		WillReturnRows(countRow(0))
	mock.ExpectQuery(`paid_amount <> gross_amount \+ shipping_fee`).
		WillReturnRows(countRow(0))
	// Transform layers not built yet.
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))
}

func TestVerifyConsistent(t *testing.T) {
	v, mock := newMockVerifier(t)
	expectCleanRun(mock, 10)

	report, err := v.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Empty(t, report.Findings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyReportsCountMismatch(t *testing.T) {
	v, mock := newMockVerifier(t)

	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(metaRows(fullMeta(10)))
	for i := range store.ODSTables {
		actual := int64(10)
		if i == 0 {
			actual = 7
		}
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_`).
			WillReturnRows(countRow(actual))
	}
	mock.ExpectQuery(`WHERE o.gross_amount <> d.line_total`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`paid_amount <> gross_amount \+ shipping_fee`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))

	report, err := v.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, store.ODSTables[0], f.Table)
	assert.Equal(t, "row_count", f.Field)
	assert.Equal(t, "10", f.Expected)
	assert.Equal(t, "7", f.Actual)
}

func TestVerifyReportsMissingAuditRow(t *testing.T) {
	v, mock := newMockVerifier(t)

	partial := fullMeta(10)
	delete(partial, "ods_traffic")
	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(metaRows(partial))
	// One fewer count query: the unaudited table is reported, not counted.
	for range store.ODSTables[:len(store.ODSTables)-1] {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_`).WillReturnRows(countRow(10))
	}
	mock.ExpectQuery(`WHERE o.gross_amount <> d.line_total`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`paid_amount <> gross_amount \+ shipping_fee`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))

	report, err := v.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "ods_traffic", report.Findings[0].Table)
	assert.Contains(t, report.Findings[0].Actual, "no audit row")
}

func TestVerifyChecksLayerTotalsWhenBuilt(t *testing.T) {
	v, mock := newMockVerifier(t)

	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(metaRows(fullMeta(10)))
	for range store.ODSTables {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_`).WillReturnRows(countRow(10))
	}
	mock.ExpectQuery(`WHERE o.gross_amount <> d.line_total`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`paid_amount <> gross_amount \+ shipping_fee`).WillReturnRows(countRow(0))

	// dwd exists and its paid total drifted by one cent.
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(1))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(paid_amount\), 0\) FROM ods_orders`).
		WillReturnRows(countRow(500000))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(paid_amount\), 0\) FROM dwd_fact_order`).
		WillReturnRows(countRow(499999))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM ods_order_details`).
		WillReturnRows(countRow(480000))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM dwd_fact_order_detail`).
		WillReturnRows(countRow(480000))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))

	report, err := v.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, "dwd_fact_order", f.Table)
	assert.Equal(t, "500000", f.Expected)
	assert.Equal(t, "499999", f.Actual)
}

func TestVerifyRecomputesTrafficConversionRates(t *testing.T) {
	v, mock := newMockVerifier(t)

	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnRows(metaRows(fullMeta(10)))
	for range store.ODSTables {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ods_`).WillReturnRows(countRow(10))
	}
	mock.ExpectQuery(`WHERE o.gross_amount <> d.line_total`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`paid_amount <> gross_amount \+ shipping_fee`).WillReturnRows(countRow(0))

	// dwd absent, summaries built; three rows disagree with their
	// recomputed conversion rates.
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(1))
	mock.ExpectQuery(`ABS\(profit_rate - profit / sales_amount \* 100\)`).
		WillReturnRows(countRow(0))
	mock.ExpectQuery(`information_schema.tables`).WillReturnRows(countRow(1))
	mock.ExpectQuery(`ABS\(conversion_rate - customer_count / visitors \* 100\)`).
		WillReturnRows(countRow(3))

	report, err := v.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, "dws_traffic_summary", f.Table)
	assert.Equal(t, "conversion_rate", f.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMetaReadFailureIsError(t *testing.T) {
	v, mock := newMockVerifier(t)
	mock.ExpectQuery(`SELECT table_name, row_count FROM ods_generation_meta`).
		WillReturnError(assert.AnError)

	_, err := v.Verify(context.Background())
	require.Error(t, err)
}
