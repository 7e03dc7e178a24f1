package store

import (
	"context"
	"fmt"
	"time"

	"dw-pipeline/internal/generator"
	"dw-pipeline/internal/util"
)

// insertBatchSize keeps multi-row named inserts under MySQL packet limits.
const insertBatchSize = 500

var insertStatements = map[string]string{
	"ods_stores": `INSERT INTO ods_stores (store_id, store_name, platform, open_date)
		VALUES (:store_id, :store_name, :platform, :open_date)`,
	"ods_products": `INSERT INTO ods_products (product_id, store_id, platform, product_name,
			category_l1, category_l2, price, cost, stock, created_at)
		VALUES (:product_id, :store_id, :platform, :product_name,
			:category_l1, :category_l2, :price, :cost, :stock, :created_at)`,
	"ods_users": `INSERT INTO ods_users (user_id, user_name, gender, age, city, register_date)
		VALUES (:user_id, :user_name, :gender, :age, :city, :register_date)`,
	"ods_orders": `INSERT INTO ods_orders (order_id, user_id, store_id, platform, order_time,
			order_status, gross_amount, shipping_fee, paid_amount, total_cost)
		VALUES (:order_id, :user_id, :store_id, :platform, :order_time,
			:order_status, :gross_amount, :shipping_fee, :paid_amount, :total_cost)`,
	"ods_order_details": `INSERT INTO ods_order_details (detail_id, order_id, product_id,
			quantity, unit_price, amount)
		VALUES (:detail_id, :order_id, :product_id, :quantity, :unit_price, :amount)`,
	"ods_promotion": `INSERT INTO ods_promotion (promo_id, promo_date, store_id, platform,
			product_id, category_l1, category_l2, channel, spend, impressions, clicks)
		VALUES (:promo_id, :promo_date, :store_id, :platform,
			:product_id, :category_l1, :category_l2, :channel, :spend, :impressions, :clicks)`,
	"ods_traffic": `INSERT INTO ods_traffic (traffic_date, store_id, platform, visitors,
			page_views, search_traffic, recommend_traffic, direct_traffic)
		VALUES (:traffic_date, :store_id, :platform, :visitors,
			:page_views, :search_traffic, :recommend_traffic, :direct_traffic)`,
	"ods_inventory": `INSERT INTO ods_inventory (movement_id, movement_date, product_id,
			store_id, change_type, change_qty, resulting_stock)
		VALUES (:movement_id, :movement_date, :product_id,
			:store_id, :change_type, :change_qty, :resulting_stock)`,
}

func insertBatch[T any](ctx context.Context, s *Store, table string, rows []T) error {
	stmt, ok := insertStatements[table]
	if !ok {
		return fmt.Errorf("no insert statement for table %s", table)
	}
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := s.db.NamedExecContext(ctx, stmt, rows[start:end]); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	util.RowsLoadedTotal.WithLabelValues(table).Add(float64(len(rows)))
	return nil
}

// LoadDataset truncates the ODS layer, writes the dataset, and records the
// per-table row counts for later verification. Not transactional across
// tables: a failed load leaves the audit row absent, which the verifier
// reports as unverifiable rather than consistent.
func (s *Store) LoadDataset(ctx context.Context, ds *generator.Dataset) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := s.TruncateODS(ctx); err != nil {
		return err
	}

	if err := insertBatch(ctx, s, "ods_stores", ds.Stores); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_products", ds.Products); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_users", ds.Users); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_orders", ds.Orders); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_order_details", ds.OrderDetails); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_promotion", ds.Promotions); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_traffic", ds.Traffic); err != nil {
		return err
	}
	if err := insertBatch(ctx, s, "ods_inventory", ds.Inventory); err != nil {
		return err
	}

	return s.RecordGenerationMeta(ctx, ds.Counts(), time.Now())
}

// RecordGenerationMeta stores the expected per-table row counts.
func (s *Store) RecordGenerationMeta(ctx context.Context, counts map[string]int, at time.Time) error {
	for _, table := range ODSTables {
		_, err := s.db.ExecContext(ctx,
			`REPLACE INTO ods_generation_meta (table_name, row_count, generated_at) VALUES (?, ?, ?)`,
			table, counts[table], at)
		if err != nil {
			return fmt.Errorf("failed to record generation meta for %s: %w", table, err)
		}
	}
	return nil
}

// GenerationMeta returns the recorded expected counts, keyed by table.
func (s *Store) GenerationMeta(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		TableName string `db:"table_name"`
		RowCount  int64  `db:"row_count"`
	}{}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT table_name, row_count FROM ods_generation_meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read generation meta: %w", err)
	}

	meta := make(map[string]int64, len(rows))
	for _, r := range rows {
		meta[r.TableName] = r.RowCount
	}
	return meta, nil
}
