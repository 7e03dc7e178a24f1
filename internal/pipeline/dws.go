package pipeline

// Summary ratios follow the same contract as the detail layer: a zero
// denominator yields NULL, so a day with no traffic has an unknown
// conversion rate rather than a zero one.
var dwsStatements = []Statement{
	{"drop dws_sales_summary", `DROP TABLE IF EXISTS dws_sales_summary`},
	{"build dws_sales_summary", `
		CREATE TABLE dws_sales_summary AS
		SELECT
			f.order_date,
			f.order_month,
			f.platform,
			f.store_id,
			f.store_name,
			COALESCE(fd.category_l1, '未分类') AS category_l1,
			COALESCE(fd.category_l2, '未分类') AS category_l2,
			COUNT(DISTINCT f.order_id) AS order_count,
			COUNT(DISTINCT f.user_id) AS customer_count,
			COALESCE(SUM(f.paid_amount), 0) AS sales_amount,
			COALESCE(SUM(f.total_cost), 0) AS cost_amount,
			COALESCE(SUM(f.profit), 0) AS profit,
			CASE WHEN SUM(f.paid_amount) > 0
				THEN ROUND(SUM(f.profit) / SUM(f.paid_amount) * 100, 2)
				ELSE NULL
			END AS profit_rate,
			CASE WHEN COUNT(DISTINCT f.order_id) > 0
				THEN ROUND(SUM(f.paid_amount) / COUNT(DISTINCT f.order_id), 2)
				ELSE NULL
			END AS avg_order_value,
			CASE WHEN COUNT(DISTINCT f.user_id) > 0
				THEN ROUND(SUM(f.paid_amount) / COUNT(DISTINCT f.user_id), 2)
				ELSE NULL
			END AS avg_customer_value
		FROM dwd_fact_order f
		LEFT JOIN dwd_fact_order_detail fd ON fd.order_id = f.order_id
		WHERE f.order_status = '已完成'
		GROUP BY f.order_date, f.order_month, f.platform, f.store_id, f.store_name,
			fd.category_l1, fd.category_l2`},

	{"drop dws_traffic_summary", `DROP TABLE IF EXISTS dws_traffic_summary`},
	{"build dws_traffic_summary", `
		CREATE TABLE dws_traffic_summary AS
		SELECT
			t.traffic_date,
			t.store_id,
			t.store_name,
			t.platform,
			t.visitors,
			t.page_views,
			COUNT(DISTINCT f.order_id) AS order_count,
			COALESCE(SUM(f.paid_amount), 0) AS sales_amount,
			COUNT(DISTINCT f.user_id) AS customer_count,
			CASE WHEN t.visitors > 0
				THEN ROUND(COUNT(DISTINCT f.user_id) / t.visitors * 100, 2)
				ELSE NULL
			END AS conversion_rate,
			CASE WHEN t.visitors > 0
				THEN ROUND(COUNT(DISTINCT f.order_id) / t.visitors * 100, 2)
				ELSE NULL
			END AS order_conversion_rate,
			CASE WHEN t.visitors > 0
				THEN ROUND(t.page_views / t.visitors, 2)
				ELSE NULL
			END AS pages_per_visit,
			CASE WHEN t.visitors > 0
				THEN ROUND(t.search_traffic / t.visitors * 100, 2)
				ELSE NULL
			END AS search_share,
			CASE WHEN t.visitors > 0
				THEN ROUND(t.recommend_traffic / t.visitors * 100, 2)
				ELSE NULL
			END AS recommend_share,
			CASE WHEN t.visitors > 0
				THEN ROUND(t.direct_traffic / t.visitors * 100, 2)
				ELSE NULL
			END AS direct_share
		FROM dwd_fact_traffic t
		LEFT JOIN dwd_fact_order f
			ON f.store_id = t.store_id
			AND f.order_date = t.traffic_date
			AND f.order_status = '已完成'
		GROUP BY t.traffic_date, t.store_id, t.store_name, t.platform,
			t.visitors, t.page_views, t.search_traffic, t.recommend_traffic, t.direct_traffic`},

	{"drop dws_promotion_summary", `DROP TABLE IF EXISTS dws_promotion_summary`},
	{"build dws_promotion_summary", `
		CREATE TABLE dws_promotion_summary AS
		SELECT
			pm.promo_date,
			pm.platform,
			pm.store_id,
			pm.product_id,
			pm.category_l1,
			pm.category_l2,
			pm.channel,
			COALESCE(SUM(pm.spend), 0) AS promo_spend,
			COALESCE(SUM(pm.impressions), 0) AS impressions,
			COALESCE(SUM(pm.clicks), 0) AS clicks,
			CASE WHEN SUM(pm.impressions) > 0
				THEN ROUND(SUM(pm.clicks) / SUM(pm.impressions) * 100, 2)
				ELSE NULL
			END AS click_rate,
			CASE WHEN SUM(pm.clicks) > 0
				THEN ROUND(SUM(pm.spend) / SUM(pm.clicks), 2)
				ELSE NULL
			END AS avg_click_cost,
			COUNT(DISTINCT f.order_id) AS order_count,
			COALESCE(SUM(f.paid_amount), 0) AS sales_amount,
			CASE WHEN SUM(pm.clicks) > 0
				THEN ROUND(COUNT(DISTINCT f.order_id) / SUM(pm.clicks) * 100, 2)
				ELSE NULL
			END AS click_conversion_rate,
			CASE WHEN SUM(pm.spend) > 0
				THEN ROUND(SUM(f.paid_amount) / SUM(pm.spend), 2)
				ELSE NULL
			END AS roi
		FROM dwd_fact_promotion pm
		LEFT JOIN dwd_fact_order f
			ON f.store_id = pm.store_id
			AND f.order_date = pm.promo_date
			AND f.order_status = '已完成'
		GROUP BY pm.promo_date, pm.platform, pm.store_id, pm.product_id,
			pm.category_l1, pm.category_l2, pm.channel`},

	{"drop dws_inventory_summary", `DROP TABLE IF EXISTS dws_inventory_summary`},
	{"build dws_inventory_summary", `
		CREATE TABLE dws_inventory_summary AS
		SELECT
			p.product_id,
			p.product_name,
			p.store_id,
			p.platform,
			p.category_l1,
			p.category_l2,
			p.stock,
			COALESCE(SUM(i.inbound_qty), 0) AS inbound_qty,
			COALESCE(SUM(i.outbound_qty), 0) AS outbound_qty,
			CASE WHEN p.stock > 0
				THEN ROUND(SUM(i.outbound_qty) / p.stock, 2)
				ELSE NULL
			END AS turnover_rate
		FROM dim_product p
		LEFT JOIN dwd_fact_inventory i ON i.product_id = p.product_id
		GROUP BY p.product_id, p.product_name, p.store_id, p.platform,
			p.category_l1, p.category_l2, p.stock`},
}
