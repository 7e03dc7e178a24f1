package pipeline

// The application layer is the report surface: monetary columns convert
// from cents to DECIMAL yuan here and nowhere earlier, so every layer
// below stays exact integer arithmetic.
//
// Fee model per daily report row: after-sale 2%, platform commission 5%,
// management overhead 10%, all charged on sales.
var adsStatements = []Statement{
	{"drop ads_daily_report", `DROP TABLE IF EXISTS ads_daily_report`},
	{"build ads_daily_report", `
		CREATE TABLE ads_daily_report AS
		SELECT
			fd.order_date,
			fd.platform,
			fd.store_id,
			s.store_name,
			fd.product_id,
			p.product_name,
			fd.category_l1,
			fd.category_l2,
			COUNT(DISTINCT fd.order_id) AS order_count,
			COALESCE(SUM(fd.quantity), 0) AS units_sold,
			ROUND(SUM(fd.amount) / 100, 2) AS sales_amount,
			ROUND(SUM(fd.cost_amount) / 100, 2) AS goods_cost,
			ROUND(SUM(fd.quantity * CASE WHEN fd.category_l1 LIKE '整车%' THEN 3000 ELSE 300 END) / 100, 2) AS shipping_cost,
			ROUND((SUM(fd.amount) - SUM(fd.cost_amount)
				- SUM(fd.quantity * CASE WHEN fd.category_l1 LIKE '整车%' THEN 3000 ELSE 300 END)) / 100, 2) AS gross_profit,
			CASE WHEN SUM(fd.amount) > 0
				THEN ROUND((SUM(fd.amount) - SUM(fd.cost_amount)
					- SUM(fd.quantity * CASE WHEN fd.category_l1 LIKE '整车%' THEN 3000 ELSE 300 END))
					/ SUM(fd.amount) * 100, 2)
				ELSE NULL
			END AS gross_margin,
			ROUND(COALESCE(pm.promo_spend, 0) / 100, 2) AS promo_spend,
			ROUND(SUM(fd.amount) * 0.02 / 100, 2) AS aftersale_fee,
			ROUND(SUM(fd.amount) * 0.05 / 100, 2) AS platform_fee,
			ROUND(SUM(fd.amount) * 0.10 / 100, 2) AS management_fee,
			ROUND((SUM(fd.amount) - SUM(fd.cost_amount)
				- SUM(fd.quantity * CASE WHEN fd.category_l1 LIKE '整车%' THEN 3000 ELSE 300 END)
				- COALESCE(pm.promo_spend, 0)
				- SUM(fd.amount) * 0.02 - SUM(fd.amount) * 0.05 - SUM(fd.amount) * 0.10) / 100, 2) AS net_profit,
			CASE WHEN SUM(fd.amount) > 0
				THEN ROUND((SUM(fd.amount) - SUM(fd.cost_amount)
					- SUM(fd.quantity * CASE WHEN fd.category_l1 LIKE '整车%' THEN 3000 ELSE 300 END)
					- COALESCE(pm.promo_spend, 0)
					- SUM(fd.amount) * 0.02 - SUM(fd.amount) * 0.05 - SUM(fd.amount) * 0.10)
					/ SUM(fd.amount) * 100, 2)
				ELSE NULL
			END AS net_margin,
			CASE WHEN COUNT(DISTINCT fd.order_id) > 0
				THEN ROUND(SUM(fd.amount) / COUNT(DISTINCT fd.order_id) / 100, 2)
				ELSE NULL
			END AS avg_order_value
		FROM dwd_fact_order_detail fd
		LEFT JOIN dim_store s ON s.store_id = fd.store_id
		LEFT JOIN dim_product p ON p.product_id = fd.product_id
		LEFT JOIN (
			SELECT promo_date, store_id, product_id, SUM(spend) AS promo_spend
			FROM dwd_fact_promotion
			GROUP BY promo_date, store_id, product_id
		) pm ON pm.promo_date = fd.order_date
			AND pm.store_id = fd.store_id
			AND pm.product_id = fd.product_id
		WHERE fd.order_status = '已完成'
		GROUP BY fd.order_date, fd.platform, fd.store_id, s.store_name,
			fd.product_id, p.product_name, fd.category_l1, fd.category_l2, pm.promo_spend`},

	{"drop ads_platform_summary", `DROP TABLE IF EXISTS ads_platform_summary`},
	{"build ads_platform_summary", `
		CREATE TABLE ads_platform_summary AS
		SELECT
			platform,
			COUNT(DISTINCT store_id) AS store_count,
			SUM(order_count) AS total_orders,
			ROUND(SUM(sales_amount), 2) AS total_sales,
			ROUND(SUM(goods_cost), 2) AS total_cost,
			ROUND(SUM(gross_profit), 2) AS total_gross_profit,
			ROUND(SUM(promo_spend), 2) AS total_promo_spend,
			ROUND(SUM(net_profit), 2) AS total_net_profit,
			CASE WHEN SUM(sales_amount) > 0
				THEN ROUND(SUM(net_profit) / SUM(sales_amount) * 100, 2)
				ELSE NULL
			END AS net_margin,
			CASE WHEN SUM(order_count) > 0
				THEN ROUND(SUM(sales_amount) / SUM(order_count), 2)
				ELSE NULL
			END AS avg_order_value
		FROM ads_daily_report
		GROUP BY platform`},

	{"drop ads_store_ranking", `DROP TABLE IF EXISTS ads_store_ranking`},
	{"build ads_store_ranking", `
		CREATE TABLE ads_store_ranking AS
		SELECT
			platform,
			store_id,
			store_name,
			SUM(order_count) AS total_orders,
			ROUND(SUM(sales_amount), 2) AS total_sales,
			ROUND(SUM(net_profit), 2) AS total_net_profit,
			CASE WHEN SUM(sales_amount) > 0
				THEN ROUND(SUM(net_profit) / SUM(sales_amount) * 100, 2)
				ELSE NULL
			END AS net_margin,
			RANK() OVER (ORDER BY SUM(sales_amount) DESC) AS sales_rank
		FROM ads_daily_report
		GROUP BY platform, store_id, store_name`},

	{"drop ads_traffic_report", `DROP TABLE IF EXISTS ads_traffic_report`},
	// Paid and organic traffic in one report. Paid rows come from the
	// promotion facts at product grain; organic rows from the store-level
	// traffic facts, where a page view stands in for an impression and a
	// visitor for a click.
	{"build ads_traffic_report", `
		CREATE TABLE ads_traffic_report AS
		SELECT
			pm.promo_date AS report_date,
			pm.platform,
			pm.store_id,
			pm.product_id,
			pm.category_l1,
			pm.category_l2,
			'付费' AS traffic_type,
			SUM(pm.impressions) AS impressions,
			SUM(pm.clicks) AS clicks,
			CASE WHEN SUM(pm.impressions) > 0
				THEN ROUND(SUM(pm.clicks) / SUM(pm.impressions) * 100, 2)
				ELSE NULL
			END AS click_rate,
			COALESCE(sales.units_sold, 0) AS units_sold,
			ROUND(COALESCE(sales.sales_amount, 0) / 100, 2) AS sales_amount,
			CASE WHEN SUM(pm.clicks) > 0
				THEN ROUND(COALESCE(sales.units_sold, 0) / SUM(pm.clicks) * 100, 2)
				ELSE NULL
			END AS click_conversion_rate,
			ROUND(SUM(pm.spend) / 100, 2) AS promo_spend,
			CASE WHEN SUM(pm.clicks) > 0
				THEN ROUND(SUM(pm.spend) / SUM(pm.clicks) / 100, 2)
				ELSE NULL
			END AS avg_click_cost,
			CASE WHEN SUM(pm.spend) > 0
				THEN ROUND(COALESCE(sales.sales_amount, 0) / SUM(pm.spend), 2)
				ELSE NULL
			END AS roi
		FROM dwd_fact_promotion pm
		LEFT JOIN (
			SELECT order_date, store_id, product_id,
				SUM(quantity) AS units_sold, SUM(amount) AS sales_amount
			FROM dwd_fact_order_detail
			WHERE order_status = '已完成'
			GROUP BY order_date, store_id, product_id
		) sales ON sales.order_date = pm.promo_date
			AND sales.store_id = pm.store_id
			AND sales.product_id = pm.product_id
		GROUP BY pm.promo_date, pm.platform, pm.store_id, pm.product_id,
			pm.category_l1, pm.category_l2, sales.units_sold, sales.sales_amount

		UNION ALL

		SELECT
			t.traffic_date AS report_date,
			t.platform,
			t.store_id,
			NULL AS product_id,
			NULL AS category_l1,
			NULL AS category_l2,
			'自然' AS traffic_type,
			t.page_views AS impressions,
			t.visitors AS clicks,
			CASE WHEN t.page_views > 0
				THEN ROUND(t.visitors / t.page_views * 100, 2)
				ELSE NULL
			END AS click_rate,
			COALESCE(sales.units_sold, 0) AS units_sold,
			ROUND(COALESCE(sales.sales_amount, 0) / 100, 2) AS sales_amount,
			CASE WHEN t.visitors > 0
				THEN ROUND(COALESCE(sales.units_sold, 0) / t.visitors * 100, 2)
				ELSE NULL
			END AS click_conversion_rate,
			0 AS promo_spend,
			NULL AS avg_click_cost,
			NULL AS roi
		FROM dwd_fact_traffic t
		LEFT JOIN (
			SELECT order_date, store_id,
				SUM(quantity) AS units_sold, SUM(amount) AS sales_amount
			FROM dwd_fact_order_detail
			WHERE order_status = '已完成'
			GROUP BY order_date, store_id
		) sales ON sales.order_date = t.traffic_date
			AND sales.store_id = t.store_id`},
}
