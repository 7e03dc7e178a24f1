package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	csvDateLayout = "2006-01-02"
	csvTimeLayout = "2006-01-02 15:04:05"
)

// ExportCSV writes one CSV file per ODS table into dir, header row first.
// Column names and order match the warehouse schema so the files load back
// cleanly. Monetary fields stay integer cents.
func ExportCSV(ds *Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	exports := []struct {
		table  string
		header []string
		rows   func(w *csv.Writer) error
	}{
		{
			table:  "ods_stores",
			header: []string{"store_id", "store_name", "platform", "open_date"},
			rows: func(w *csv.Writer) error {
				for _, s := range ds.Stores {
					if err := w.Write([]string{s.ID, s.Name, s.Platform, s.OpenDate.Format(csvDateLayout)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table: "ods_products",
			header: []string{"product_id", "store_id", "platform", "product_name",
				"category_l1", "category_l2", "price", "cost", "stock", "created_at"},
			rows: func(w *csv.Writer) error {
				for _, p := range ds.Products {
					if err := w.Write([]string{p.ID, p.StoreID, p.Platform, p.Name,
						p.CategoryL1, p.CategoryL2,
						strconv.FormatInt(p.Price, 10), strconv.FormatInt(p.Cost, 10),
						strconv.Itoa(p.Stock), p.CreatedAt.Format(csvTimeLayout)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table:  "ods_users",
			header: []string{"user_id", "user_name", "gender", "age", "city", "register_date"},
			rows: func(w *csv.Writer) error {
				for _, u := range ds.Users {
					if err := w.Write([]string{u.ID, u.Name, u.Gender,
						strconv.Itoa(u.Age), u.City, u.RegisterDate.Format(csvDateLayout)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table: "ods_orders",
			header: []string{"order_id", "user_id", "store_id", "platform", "order_time",
				"order_status", "gross_amount", "shipping_fee", "paid_amount", "total_cost"},
			rows: func(w *csv.Writer) error {
				for _, o := range ds.Orders {
					if err := w.Write([]string{o.ID, o.UserID, o.StoreID, o.Platform,
						o.OrderTime.Format(csvTimeLayout), o.Status,
						strconv.FormatInt(o.GrossAmount, 10), strconv.FormatInt(o.Shipping, 10),
						strconv.FormatInt(o.PaidAmount, 10), strconv.FormatInt(o.TotalCost, 10)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table:  "ods_order_details",
			header: []string{"detail_id", "order_id", "product_id", "quantity", "unit_price", "amount"},
			rows: func(w *csv.Writer) error {
				for _, d := range ds.OrderDetails {
					if err := w.Write([]string{d.ID, d.OrderID, d.ProductID,
						strconv.Itoa(d.Quantity), strconv.FormatInt(d.UnitPrice, 10),
						strconv.FormatInt(d.Amount, 10)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table: "ods_promotion",
			header: []string{"promo_id", "promo_date", "store_id", "platform", "product_id",
				"category_l1", "category_l2", "channel", "spend", "impressions", "clicks"},
			rows: func(w *csv.Writer) error {
				for _, p := range ds.Promotions {
					if err := w.Write([]string{p.ID, p.Date.Format(csvDateLayout), p.StoreID,
						p.Platform, p.ProductID, p.CategoryL1, p.CategoryL2, p.Channel,
						strconv.FormatInt(p.Spend, 10), strconv.Itoa(p.Impressions),
						strconv.Itoa(p.Clicks)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table: "ods_traffic",
			header: []string{"traffic_date", "store_id", "platform", "visitors",
				"page_views", "search_traffic", "recommend_traffic", "direct_traffic"},
			rows: func(w *csv.Writer) error {
				for _, t := range ds.Traffic {
					if err := w.Write([]string{t.Date.Format(csvDateLayout), t.StoreID, t.Platform,
						strconv.Itoa(t.Visitors), strconv.Itoa(t.PageViews),
						strconv.Itoa(t.SearchTraffic), strconv.Itoa(t.RecommendTraffic),
						strconv.Itoa(t.DirectTraffic)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			table: "ods_inventory",
			header: []string{"movement_id", "movement_date", "product_id", "store_id",
				"change_type", "change_qty", "resulting_stock"},
			rows: func(w *csv.Writer) error {
				for _, m := range ds.Inventory {
					if err := w.Write([]string{m.ID, m.Date.Format(csvDateLayout), m.ProductID,
						m.StoreID, m.ChangeType, strconv.Itoa(m.ChangeQty),
						strconv.Itoa(m.ResultingStock)}); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}

	for _, exp := range exports {
		if err := writeCSV(filepath.Join(dir, exp.table+".csv"), exp.header, exp.rows); err != nil {
			return fmt.Errorf("failed to export %s: %w", exp.table, err)
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
