package store

import (
	"context"
	"fmt"
)

// ODSTables lists the raw tables in load order. Truncation and auditing
// iterate this slice so the two never drift apart.
var ODSTables = []string{
	"ods_stores",
	"ods_products",
	"ods_users",
	"ods_orders",
	"ods_order_details",
	"ods_promotion",
	"ods_traffic",
	"ods_inventory",
}

// Monetary columns are BIGINT cents. DECIMAL conversion happens in the
// transform layer where ratios are produced.
var odsSchema = []string{
	`CREATE TABLE IF NOT EXISTS ods_stores (
		store_id   VARCHAR(16) PRIMARY KEY,
		store_name VARCHAR(128) NOT NULL,
		platform   VARCHAR(32) NOT NULL,
		open_date  DATE NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_products (
		product_id   VARCHAR(16) PRIMARY KEY,
		store_id     VARCHAR(16) NOT NULL,
		platform     VARCHAR(32) NOT NULL,
		product_name VARCHAR(128) NOT NULL,
		category_l1  VARCHAR(64) NOT NULL,
		category_l2  VARCHAR(64) NOT NULL,
		price        BIGINT NOT NULL,
		cost         BIGINT NOT NULL,
		stock        INT NOT NULL,
		created_at   DATE NOT NULL,
		KEY idx_products_store (store_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_users (
		user_id       VARCHAR(16) PRIMARY KEY,
		user_name     VARCHAR(64) NOT NULL,
		gender        VARCHAR(8) NOT NULL,
		age           INT NOT NULL,
		city          VARCHAR(32) NOT NULL,
		register_date DATE NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_orders (
		order_id     VARCHAR(16) PRIMARY KEY,
		user_id      VARCHAR(16) NOT NULL,
		store_id     VARCHAR(16) NOT NULL,
		platform     VARCHAR(32) NOT NULL,
		order_time   DATETIME NOT NULL,
		order_status VARCHAR(16) NOT NULL,
		gross_amount BIGINT NOT NULL,
		shipping_fee BIGINT NOT NULL,
		paid_amount  BIGINT NOT NULL,
		total_cost   BIGINT NOT NULL,
		KEY idx_orders_store_time (store_id, order_time),
		KEY idx_orders_status (order_status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_order_details (
		detail_id  VARCHAR(16) PRIMARY KEY,
		order_id   VARCHAR(16) NOT NULL,
		product_id VARCHAR(16) NOT NULL,
		quantity   INT NOT NULL,
		unit_price BIGINT NOT NULL,
		amount     BIGINT NOT NULL,
		KEY idx_details_order (order_id),
		KEY idx_details_product (product_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_promotion (
		promo_id    VARCHAR(16) PRIMARY KEY,
		promo_date  DATE NOT NULL,
		store_id    VARCHAR(16) NOT NULL,
		platform    VARCHAR(32) NOT NULL,
		product_id  VARCHAR(16) NOT NULL,
		category_l1 VARCHAR(64) NOT NULL,
		category_l2 VARCHAR(64) NOT NULL,
		channel     VARCHAR(64) NOT NULL,
		spend       BIGINT NOT NULL,
		impressions INT NOT NULL,
		clicks      INT NOT NULL,
		KEY idx_promo_store_date (store_id, promo_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_traffic (
		traffic_date      DATE NOT NULL,
		store_id          VARCHAR(16) NOT NULL,
		platform          VARCHAR(32) NOT NULL,
		visitors          INT NOT NULL,
		page_views        INT NOT NULL,
		search_traffic    INT NOT NULL,
		recommend_traffic INT NOT NULL,
		direct_traffic    INT NOT NULL,
		PRIMARY KEY (traffic_date, store_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_inventory (
		movement_id     VARCHAR(16) PRIMARY KEY,
		movement_date   DATE NOT NULL,
		product_id      VARCHAR(16) NOT NULL,
		store_id        VARCHAR(16) NOT NULL,
		change_type     VARCHAR(8) NOT NULL,
		change_qty      INT NOT NULL,
		resulting_stock INT NOT NULL,
		KEY idx_inventory_product_date (product_id, movement_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ods_generation_meta (
		table_name   VARCHAR(64) PRIMARY KEY,
		row_count    BIGINT NOT NULL,
		generated_at DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the ODS tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range odsSchema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create ods table: %w", err)
		}
	}
	return nil
}

// TruncateODS empties all ODS tables and the generation audit. A new load
// always starts from a clean layer.
func (s *Store) TruncateODS(ctx context.Context) error {
	for _, table := range append(append([]string{}, ODSTables...), "ods_generation_meta") {
		if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}
