package generator

import (
	"fmt"

	"dw-pipeline/internal/models"
)

// Validate checks the structural invariants of a generated dataset. Any
// violation is a bug in generation and aborts the run; rows are never
// repaired after the fact.
func Validate(ds *Dataset) error {
	storeIDs := make(map[string]struct{}, len(ds.Stores))
	for _, s := range ds.Stores {
		if _, dup := storeIDs[s.ID]; dup {
			return &models.InvariantViolation{Table: "ods_stores", Detail: fmt.Sprintf("duplicate store id %s", s.ID)}
		}
		storeIDs[s.ID] = struct{}{}
	}

	products := make(map[string]models.Product, len(ds.Products))
	for _, p := range ds.Products {
		if _, dup := products[p.ID]; dup {
			return &models.InvariantViolation{Table: "ods_products", Detail: fmt.Sprintf("duplicate product id %s", p.ID)}
		}
		if _, ok := storeIDs[p.StoreID]; !ok {
			return &models.InvariantViolation{Table: "ods_products", Detail: fmt.Sprintf("product %s references unknown store %s", p.ID, p.StoreID)}
		}
		if p.Cost >= p.Price {
			return &models.InvariantViolation{Table: "ods_products", Detail: fmt.Sprintf("product %s cost %d not below price %d", p.ID, p.Cost, p.Price)}
		}
		products[p.ID] = p
	}

	userIDs := make(map[string]struct{}, len(ds.Users))
	for _, u := range ds.Users {
		userIDs[u.ID] = struct{}{}
	}

	orderIDs := make(map[string]struct{}, len(ds.Orders))
	grossByOrder := make(map[string]int64, len(ds.Orders))
	for _, o := range ds.Orders {
		if _, dup := orderIDs[o.ID]; dup {
			return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("duplicate order id %s", o.ID)}
		}
		orderIDs[o.ID] = struct{}{}

		if _, ok := storeIDs[o.StoreID]; !ok {
			return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s references unknown store %s", o.ID, o.StoreID)}
		}
		if _, ok := userIDs[o.UserID]; !ok {
			return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s references unknown user %s", o.ID, o.UserID)}
		}

		switch o.Status {
		case models.OrderStatusCompleted:
			if o.PaidAmount != o.GrossAmount+o.Shipping {
				return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s paid %d != gross %d + shipping %d", o.ID, o.PaidAmount, o.GrossAmount, o.Shipping)}
			}
		case models.OrderStatusCancelled, models.OrderStatusRefunded:
			if o.PaidAmount != 0 || o.TotalCost != 0 {
				return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s is %s but carries paid %d cost %d", o.ID, o.Status, o.PaidAmount, o.TotalCost)}
			}
		default:
			return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s has unknown status %q", o.ID, o.Status)}
		}
	}

	detailIDs := make(map[string]struct{}, len(ds.OrderDetails))
	for _, d := range ds.OrderDetails {
		if _, dup := detailIDs[d.ID]; dup {
			return &models.InvariantViolation{Table: "ods_order_details", Detail: fmt.Sprintf("duplicate detail id %s", d.ID)}
		}
		detailIDs[d.ID] = struct{}{}

		if _, ok := orderIDs[d.OrderID]; !ok {
			return &models.InvariantViolation{Table: "ods_order_details", Detail: fmt.Sprintf("detail %s references unknown order %s", d.ID, d.OrderID)}
		}
		product, ok := products[d.ProductID]
		if !ok {
			return &models.InvariantViolation{Table: "ods_order_details", Detail: fmt.Sprintf("detail %s references unknown product %s", d.ID, d.ProductID)}
		}
		if d.UnitPrice != product.Price {
			return &models.InvariantViolation{Table: "ods_order_details", Detail: fmt.Sprintf("detail %s unit price %d != product price %d", d.ID, d.UnitPrice, product.Price)}
		}
		if d.Amount != int64(d.Quantity)*d.UnitPrice {
			return &models.InvariantViolation{Table: "ods_order_details", Detail: fmt.Sprintf("detail %s amount %d != %d * %d", d.ID, d.Amount, d.Quantity, d.UnitPrice)}
		}
		grossByOrder[d.OrderID] += d.Amount
	}
	for _, o := range ds.Orders {
		if grossByOrder[o.ID] != o.GrossAmount {
			return &models.InvariantViolation{Table: "ods_orders", Detail: fmt.Sprintf("order %s gross %d != sum of lines %d", o.ID, o.GrossAmount, grossByOrder[o.ID])}
		}
	}

	for _, pm := range ds.Promotions {
		if _, ok := storeIDs[pm.StoreID]; !ok {
			return &models.InvariantViolation{Table: "ods_promotion", Detail: fmt.Sprintf("promotion %s references unknown store %s", pm.ID, pm.StoreID)}
		}
		if _, ok := products[pm.ProductID]; !ok {
			return &models.InvariantViolation{Table: "ods_promotion", Detail: fmt.Sprintf("promotion %s references unknown product %s", pm.ID, pm.ProductID)}
		}
		if pm.Clicks > pm.Impressions {
			return &models.InvariantViolation{Table: "ods_promotion", Detail: fmt.Sprintf("promotion %s clicks %d exceed impressions %d", pm.ID, pm.Clicks, pm.Impressions)}
		}
	}

	for _, t := range ds.Traffic {
		if _, ok := storeIDs[t.StoreID]; !ok {
			return &models.InvariantViolation{Table: "ods_traffic", Detail: fmt.Sprintf("traffic row for unknown store %s", t.StoreID)}
		}
		if t.SearchTraffic+t.RecommendTraffic+t.DirectTraffic > t.Visitors {
			return &models.InvariantViolation{Table: "ods_traffic", Detail: fmt.Sprintf("store %s channel split exceeds visitors on %s", t.StoreID, t.Date.Format("2006-01-02"))}
		}
	}

	for _, m := range ds.Inventory {
		if _, ok := products[m.ProductID]; !ok {
			return &models.InvariantViolation{Table: "ods_inventory", Detail: fmt.Sprintf("movement %s references unknown product %s", m.ID, m.ProductID)}
		}
		if m.ResultingStock < 0 {
			return &models.InvariantViolation{Table: "ods_inventory", Detail: fmt.Sprintf("movement %s drives stock negative (%d)", m.ID, m.ResultingStock)}
		}
	}

	return nil
}
