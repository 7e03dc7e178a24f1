package pipeline

// The detail layer rebuilds from ODS on every run: drop then create-select,
// so a rerun never mixes generations. Monetary columns stay integer cents;
// ratio columns are DECIMAL percentages and are NULL when the denominator
// is zero, never a fabricated 0.
var dwdStatements = []Statement{
	{"drop dim_date", `DROP TABLE IF EXISTS dim_date`},
	// Rolling three-year calendar ending today. The digit cross join is a
	// pure-SQL sequence generator; MySQL has no generate_series.
	{"build dim_date", `
		CREATE TABLE dim_date AS
		SELECT
			CAST(DATE_FORMAT(dates.date_value, '%Y%m%d') AS UNSIGNED) AS date_key,
			dates.date_value,
			YEAR(dates.date_value) AS ` + "`year`" + `,
			QUARTER(dates.date_value) AS ` + "`quarter`" + `,
			MONTH(dates.date_value) AS ` + "`month`" + `,
			WEEK(dates.date_value, 1) AS ` + "`week`" + `,
			DAY(dates.date_value) AS ` + "`day`" + `,
			WEEKDAY(dates.date_value) + 1 AS ` + "`weekday`" + `,
			CASE WEEKDAY(dates.date_value)
				WHEN 0 THEN '周一' WHEN 1 THEN '周二' WHEN 2 THEN '周三'
				WHEN 3 THEN '周四' WHEN 4 THEN '周五' WHEN 5 THEN '周六'
				WHEN 6 THEN '周日'
			END AS weekday_name,
			CASE WHEN WEEKDAY(dates.date_value) IN (5, 6) THEN 1 ELSE 0 END AS is_weekend,
			DATE_FORMAT(dates.date_value, '%Y-%m') AS ` + "`year_month`" + `
		FROM (
			SELECT DATE_SUB(CURDATE(), INTERVAL a.n + b.n * 10 + c.n * 100 + d.n * 1000 DAY) AS date_value
			FROM (SELECT 0 AS n UNION SELECT 1 UNION SELECT 2 UNION SELECT 3 UNION SELECT 4
				UNION SELECT 5 UNION SELECT 6 UNION SELECT 7 UNION SELECT 8 UNION SELECT 9) a,
				(SELECT 0 AS n UNION SELECT 1 UNION SELECT 2 UNION SELECT 3 UNION SELECT 4
				UNION SELECT 5 UNION SELECT 6 UNION SELECT 7 UNION SELECT 8 UNION SELECT 9) b,
				(SELECT 0 AS n UNION SELECT 1 UNION SELECT 2 UNION SELECT 3 UNION SELECT 4
				UNION SELECT 5 UNION SELECT 6 UNION SELECT 7 UNION SELECT 8 UNION SELECT 9) c,
				(SELECT 0 AS n UNION SELECT 1 UNION SELECT 2) d
			WHERE a.n + b.n * 10 + c.n * 100 + d.n * 1000 <= 1095
		) dates`},

	{"drop dim_store", `DROP TABLE IF EXISTS dim_store`},
	{"build dim_store", `
		CREATE TABLE dim_store AS
		SELECT
			store_id,
			store_name,
			platform,
			CASE
				WHEN store_name LIKE '%旗舰店%' THEN '旗舰店'
				WHEN store_name LIKE '%专卖店%' THEN '专卖店'
				WHEN store_name LIKE '%官方店%' THEN '官方店'
				WHEN store_name LIKE '%直营店%' THEN '直营店'
				ELSE '其他'
			END AS store_type,
			open_date
		FROM ods_stores`},

	{"drop dim_product", `DROP TABLE IF EXISTS dim_product`},
	{"build dim_product", `
		CREATE TABLE dim_product AS
		SELECT
			product_id,
			store_id,
			platform,
			product_name,
			category_l1,
			category_l2,
			price,
			cost,
			CASE WHEN price > 0
				THEN ROUND((price - cost) / price * 100, 2)
				ELSE NULL
			END AS profit_margin,
			stock,
			created_at
		FROM ods_products`},

	{"drop dim_user", `DROP TABLE IF EXISTS dim_user`},
	{"build dim_user", `
		CREATE TABLE dim_user AS
		SELECT
			user_id,
			user_name,
			gender,
			age,
			CASE
				WHEN age < 18 THEN '未成年'
				WHEN age BETWEEN 18 AND 25 THEN '18-25岁'
				WHEN age BETWEEN 26 AND 35 THEN '26-35岁'
				WHEN age BETWEEN 36 AND 45 THEN '36-45岁'
				ELSE '46岁以上'
			END AS age_group,
			city,
			register_date
		FROM ods_users`},

	{"drop dwd_fact_order", `DROP TABLE IF EXISTS dwd_fact_order`},
	{"build dwd_fact_order", `
		CREATE TABLE dwd_fact_order AS
		SELECT
			o.order_id,
			o.user_id,
			o.store_id,
			s.store_name,
			o.platform,
			DATE(o.order_time) AS order_date,
			DATE_FORMAT(o.order_time, '%Y-%m') AS order_month,
			o.order_status,
			o.gross_amount,
			o.shipping_fee,
			o.paid_amount,
			o.total_cost,
			o.paid_amount - o.total_cost AS profit
		FROM ods_orders o
		LEFT JOIN ods_stores s ON s.store_id = o.store_id`},

	{"drop dwd_fact_order_detail", `DROP TABLE IF EXISTS dwd_fact_order_detail`},
	{"build dwd_fact_order_detail", `
		CREATE TABLE dwd_fact_order_detail AS
		SELECT
			od.detail_id,
			od.order_id,
			od.product_id,
			p.store_id,
			p.platform,
			p.category_l1,
			p.category_l2,
			DATE(o.order_time) AS order_date,
			o.order_status,
			od.quantity,
			od.unit_price,
			od.amount,
			COALESCE(p.cost, 0) * od.quantity AS cost_amount,
			CASE WHEN od.amount > 0
				THEN ROUND((od.amount - COALESCE(p.cost, 0) * od.quantity) / od.amount * 100, 2)
				ELSE NULL
			END AS margin_rate
		FROM ods_order_details od
		JOIN ods_orders o ON o.order_id = od.order_id
		LEFT JOIN ods_products p ON p.product_id = od.product_id`},

	{"drop dwd_fact_promotion", `DROP TABLE IF EXISTS dwd_fact_promotion`},
	{"build dwd_fact_promotion", `
		CREATE TABLE dwd_fact_promotion AS
		SELECT
			pm.promo_id,
			pm.promo_date,
			pm.store_id,
			pm.platform,
			pm.product_id,
			pm.category_l1,
			pm.category_l2,
			pm.channel,
			pm.spend,
			pm.impressions,
			pm.clicks,
			CASE WHEN pm.impressions > 0
				THEN ROUND(pm.clicks / pm.impressions * 100, 2)
				ELSE NULL
			END AS click_rate,
			CASE WHEN pm.clicks > 0
				THEN ROUND(pm.spend / pm.clicks, 2)
				ELSE NULL
			END AS avg_click_cost
		FROM ods_promotion pm`},

	{"drop dwd_fact_traffic", `DROP TABLE IF EXISTS dwd_fact_traffic`},
	{"build dwd_fact_traffic", `
		CREATE TABLE dwd_fact_traffic AS
		SELECT
			t.traffic_date,
			t.store_id,
			s.store_name,
			t.platform,
			t.visitors,
			t.page_views,
			t.search_traffic,
			t.recommend_traffic,
			t.direct_traffic
		FROM ods_traffic t
		LEFT JOIN ods_stores s ON s.store_id = t.store_id`},

	{"drop dwd_fact_inventory", `DROP TABLE IF EXISTS dwd_fact_inventory`},
	{"build dwd_fact_inventory", `
		CREATE TABLE dwd_fact_inventory AS
		SELECT
			i.movement_id,
			i.movement_date,
			i.product_id,
			i.store_id,
			i.change_type,
			CASE WHEN i.change_type = '入库' THEN i.change_qty ELSE 0 END AS inbound_qty,
			CASE WHEN i.change_type = '出库' THEN i.change_qty ELSE 0 END AS outbound_qty,
			i.resulting_stock
		FROM ods_inventory i`},
}
