package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRunner(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunner(store.NewStoreFromDB(sqlx.NewDb(db, "sqlmock"))), mock
}

func TestStagesOrdered(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, models.StageDWD, stages[0].ID)
	assert.Equal(t, models.StageDWS, stages[1].ID)
	assert.Equal(t, models.StageADS, stages[2].ID)
	for _, st := range stages {
		assert.NotEmpty(t, st.Statements, "stage %s", st.ID)
	}
}

func TestRunExecutesStatementsInOrder(t *testing.T) {
	r, mock := newMockRunner(t)
	mock.MatchExpectationsInOrder(true)
	for range dwdStatements {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	var lines []string
	err := r.Run(context.Background(), models.StageDWD, func(msg string) {
		lines = append(lines, msg)
	})
	require.NoError(t, err)
	assert.Len(t, lines, len(dwdStatements))
	assert.Contains(t, lines[0], "[1/")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsOnStatementError(t *testing.T) {
	r, mock := newMockRunner(t)
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(".*").WillReturnError(errors.New("table gone"))

	err := r.Run(context.Background(), models.StageDWD, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), dwdStatements[1].Label)
}

func TestRunUnknownStage(t *testing.T) {
	r, _ := newMockRunner(t)
	err := r.Run(context.Background(), models.StageID("bogus"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform stage")
}

func TestRunHonorsCancellation(t *testing.T) {
	r, _ := newMockRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, models.StageDWS, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func statementByLabel(t *testing.T, id models.StageID, label string) Statement {
	t.Helper()
	st, ok := StageByID(id)
	require.True(t, ok)
	for _, stmt := range st.Statements {
		if stmt.Label == label {
			return stmt
		}
	}
	t.Fatalf("stage %s has no statement %q", id, label)
	return Statement{}
}

// conversion_rate counts converting users against visitors;
// order_conversion_rate counts orders. The two must not be conflated.
func TestTrafficConversionRateCountsUsers(t *testing.T) {
	sql := statementByLabel(t, models.StageDWS, "build dws_traffic_summary").SQL

	idx := strings.Index(sql, "END AS conversion_rate")
	require.Greater(t, idx, 0)
	expr := sql[strings.LastIndex(sql[:idx], "CASE"):idx]
	assert.Contains(t, expr, "COUNT(DISTINCT f.user_id) / t.visitors")
	assert.NotContains(t, expr, "order_id")

	idx = strings.Index(sql, "END AS order_conversion_rate")
	require.Greater(t, idx, 0)
	expr = sql[strings.LastIndex(sql[:idx], "CASE"):idx]
	assert.Contains(t, expr, "COUNT(DISTINCT f.order_id) / t.visitors")
}

// Completed orders with no surviving detail rows still count, under the
// 未分类 category bucket.
func TestSalesSummaryKeepsOrdersWithoutLines(t *testing.T) {
	sql := statementByLabel(t, models.StageDWS, "build dws_sales_summary").SQL
	assert.Contains(t, sql, "LEFT JOIN dwd_fact_order_detail")
	assert.Contains(t, sql, "COALESCE(fd.category_l1, '未分类')")
	assert.Contains(t, sql, "COALESCE(fd.category_l2, '未分类')")
}

func TestDateDimensionBuilt(t *testing.T) {
	sql := statementByLabel(t, models.StageDWD, "build dim_date").SQL
	assert.Contains(t, sql, "AS date_key")
	assert.Contains(t, sql, "weekday_name")
	assert.Contains(t, sql, "is_weekend")
	// Three years back from today.
	assert.Contains(t, sql, "<= 1095")
}

// The traffic report unions paid rows at product grain with organic rows
// at store grain.
func TestTrafficReportCoversPaidAndOrganic(t *testing.T) {
	sql := statementByLabel(t, models.StageADS, "build ads_traffic_report").SQL
	assert.Contains(t, sql, "'付费' AS traffic_type")
	assert.Contains(t, sql, "'自然' AS traffic_type")
	assert.Contains(t, sql, "UNION ALL")
	assert.Contains(t, sql, "FROM dwd_fact_promotion")
	assert.Contains(t, sql, "FROM dwd_fact_traffic")
	// Report surface: spend and sales land in yuan.
	assert.Contains(t, sql, "ROUND(SUM(pm.spend) / 100, 2) AS promo_spend")
}

// Every ratio column in the transform layer must leave a zero denominator
// NULL instead of coercing it to zero.
func TestRatiosNullOnZeroDenominator(t *testing.T) {
	ratioColumns := []string{
		"profit_margin", "margin_rate", "click_rate", "avg_click_cost",
		"profit_rate", "avg_order_value", "avg_customer_value",
		"conversion_rate", "order_conversion_rate", "pages_per_visit", "search_share",
		"recommend_share", "direct_share", "click_conversion_rate",
		"roi", "turnover_rate", "gross_margin", "net_margin",
	}

	for _, st := range Stages() {
		for _, stmt := range st.Statements {
			for _, col := range ratioColumns {
				marker := "END AS " + col
				idx := strings.Index(stmt.SQL, marker)
				if idx < 0 {
					continue
				}
				// The guard immediately preceding the column's END must
				// fall through to NULL.
				guard := stmt.SQL[:idx]
				lastElse := strings.LastIndex(guard, "ELSE")
				require.GreaterOrEqual(t, lastElse, 0, "%s/%s %s has no ELSE branch", st.ID, stmt.Label, col)
				assert.True(t, strings.HasPrefix(guard[lastElse:], "ELSE NULL"),
					"%s/%s %s coerces a zero denominator", st.ID, stmt.Label, col)
			}
		}
	}
}
