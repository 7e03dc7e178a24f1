// Package verifier audits the warehouse against the recorded generation
// counts and recomputes aggregates across layers.
package verifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dw-pipeline/internal/store"
	"dw-pipeline/internal/util"
)

// ratioEpsilon tolerates rounding in stored DECIMAL(…,2) ratios. Monetary
// sums never get an epsilon: cents either match or they don't.
const ratioEpsilon = 0.01

// Finding is one detected discrepancy.
type Finding struct {
	Table    string `json:"table"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Report is the outcome of one verification pass.
type Report struct {
	CheckedAt  time.Time `json:"checked_at"`
	Consistent bool      `json:"consistent"`
	Findings   []Finding `json:"findings"`
}

type Verifier struct {
	store  *store.Store
	logger *zap.Logger
}

func New(st *store.Store) *Verifier {
	return &Verifier{store: st, logger: util.GetLogger()}
}

// Verify runs every check and returns the full report. Discrepancies are
// report content, not errors; the error return is for the audit itself
// failing (dead database, missing meta).
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	report := &Report{CheckedAt: time.Now()}

	meta, err := v.store.GenerationMeta(ctx)
	if err != nil {
		return nil, err
	}

	v.checkRowCounts(ctx, report, meta)
	v.checkOrderArithmetic(ctx, report)

	if v.tableExists(ctx, "dwd_fact_order") {
		v.checkLayerTotals(ctx, report)
	}
	if v.tableExists(ctx, "dws_sales_summary") {
		v.checkSummaryRatios(ctx, report)
	}

	report.Consistent = len(report.Findings) == 0
	for _, f := range report.Findings {
		util.VerificationDiscrepancies.WithLabelValues(f.Table).Inc()
	}
	v.logger.Info("Verification finished",
		zap.Bool("consistent", report.Consistent),
		zap.Int("findings", len(report.Findings)))
	return report, nil
}

func (v *Verifier) addFinding(report *Report, table, field, expected, actual string) {
	report.Findings = append(report.Findings, Finding{
		Table:    table,
		Field:    field,
		Expected: expected,
		Actual:   actual,
	})
}

// checkRowCounts compares COUNT(*) of every ODS table against the audit
// row written at load time. A table without an audit row is unverifiable
// and reported as such.
func (v *Verifier) checkRowCounts(ctx context.Context, report *Report, meta map[string]int64) {
	for _, table := range store.ODSTables {
		expected, ok := meta[table]
		if !ok {
			v.addFinding(report, table, "row_count", "recorded generation count", "no audit row")
			continue
		}
		actual, err := v.store.TableCount(ctx, table)
		if err != nil {
			v.addFinding(report, table, "row_count", fmt.Sprintf("%d", expected), "count failed: "+err.Error())
			continue
		}
		if actual != expected {
			v.addFinding(report, table, "row_count",
				fmt.Sprintf("%d", expected), fmt.Sprintf("%d", actual))
		}
	}
}

// checkOrderArithmetic recomputes order headers from their lines.
func (v *Verifier) checkOrderArithmetic(ctx context.Context, report *Report) {
	db := v.store.GetDB()

	var mismatched int64
	err := db.GetContext(ctx, &mismatched, `
		SELECT COUNT(*)
		FROM ods_orders o
		JOIN (
			SELECT order_id, SUM(amount) AS line_total
			FROM ods_order_details
			GROUP BY order_id
		) d ON d.order_id = o.order_id
		WHERE o.gross_amount <> d.line_total`)
	if err != nil {
		v.addFinding(report, "ods_orders", "gross_amount", "recomputable from lines", "query failed: "+err.Error())
	} else if mismatched > 0 {
		v.addFinding(report, "ods_orders", "gross_amount", "0 mismatches",
			fmt.Sprintf("%d orders disagree with their lines", mismatched))
	}

	var badPaid int64
	err = db.GetContext(ctx, &badPaid, `
		SELECT COUNT(*)
		FROM ods_orders
		WHERE (order_status = '已完成' AND paid_amount <> gross_amount + shipping_fee)
		   OR (order_status <> '已完成' AND paid_amount <> 0)`)
	if err != nil {
		v.addFinding(report, "ods_orders", "paid_amount", "status-consistent", "query failed: "+err.Error())
	} else if badPaid > 0 {
		v.addFinding(report, "ods_orders", "paid_amount", "0 mismatches",
			fmt.Sprintf("%d orders violate the paid-amount contract", badPaid))
	}
}

// checkLayerTotals demands exact monetary equality between ODS and the
// detail layer.
func (v *Verifier) checkLayerTotals(ctx context.Context, report *Report) {
	db := v.store.GetDB()

	var odsPaid, dwdPaid int64
	if err := db.GetContext(ctx, &odsPaid,
		`SELECT COALESCE(SUM(paid_amount), 0) FROM ods_orders`); err != nil {
		v.addFinding(report, "ods_orders", "paid_amount_total", "sum", "query failed: "+err.Error())
		return
	}
	if err := db.GetContext(ctx, &dwdPaid,
		`SELECT COALESCE(SUM(paid_amount), 0) FROM dwd_fact_order`); err != nil {
		v.addFinding(report, "dwd_fact_order", "paid_amount_total", "sum", "query failed: "+err.Error())
		return
	}
	if odsPaid != dwdPaid {
		v.addFinding(report, "dwd_fact_order", "paid_amount_total",
			fmt.Sprintf("%d", odsPaid), fmt.Sprintf("%d", dwdPaid))
	}

	var odsAmount, dwdAmount int64
	if err := db.GetContext(ctx, &odsAmount,
		`SELECT COALESCE(SUM(amount), 0) FROM ods_order_details`); err == nil {
		if err := db.GetContext(ctx, &dwdAmount,
			`SELECT COALESCE(SUM(amount), 0) FROM dwd_fact_order_detail`); err == nil {
			if odsAmount != dwdAmount {
				v.addFinding(report, "dwd_fact_order_detail", "amount_total",
					fmt.Sprintf("%d", odsAmount), fmt.Sprintf("%d", dwdAmount))
			}
		}
	}
}

// checkSummaryRatios recomputes stored summary ratios within epsilon.
func (v *Verifier) checkSummaryRatios(ctx context.Context, report *Report) {
	db := v.store.GetDB()

	var badRatios int64
	err := db.GetContext(ctx, &badRatios, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM dws_sales_summary
		WHERE sales_amount > 0
		  AND ABS(profit_rate - profit / sales_amount * 100) > %v`, ratioEpsilon))
	if err != nil {
		v.addFinding(report, "dws_sales_summary", "profit_rate", "recomputable", "query failed: "+err.Error())
		return
	}
	if badRatios > 0 {
		v.addFinding(report, "dws_sales_summary", "profit_rate", "0 mismatches",
			fmt.Sprintf("%d rows drift past %v", badRatios, ratioEpsilon))
	}

	if !v.tableExists(ctx, "dws_traffic_summary") {
		return
	}
	// conversion_rate counts converting users, order_conversion_rate
	// counts orders; both divide by the day's visitors.
	var badConversions int64
	err = db.GetContext(ctx, &badConversions, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM dws_traffic_summary
		WHERE visitors > 0
		  AND (ABS(conversion_rate - customer_count / visitors * 100) > %v
		    OR ABS(order_conversion_rate - order_count / visitors * 100) > %v)`,
		ratioEpsilon, ratioEpsilon))
	if err != nil {
		v.addFinding(report, "dws_traffic_summary", "conversion_rate", "recomputable", "query failed: "+err.Error())
		return
	}
	if badConversions > 0 {
		v.addFinding(report, "dws_traffic_summary", "conversion_rate", "0 mismatches",
			fmt.Sprintf("%d rows drift past %v", badConversions, ratioEpsilon))
	}
}

func (v *Verifier) tableExists(ctx context.Context, table string) bool {
	var count int64
	err := v.store.GetDB().GetContext(ctx, &count,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = DATABASE() AND table_name = ?`, table)
	return err == nil && count > 0
}
