package generator

import (
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/scale"
	"dw-pipeline/internal/storeconfig"
)

// Request fully determines the shape of a generated dataset.
type Request struct {
	PlatformStores storeconfig.Config `json:"platformStores"`
	BusinessScale  string             `json:"businessScale"`
	TimeSpanDays   int                `json:"timeSpanDays"`
	MainCategory   string             `json:"mainCategory"`
	TargetOrders   int                `json:"targetOrders,omitempty"`
	Seed           int64              `json:"seed,omitempty"`
}

// Validate rejects malformed requests at the boundary so undefined fields
// never propagate into generation.
func (r *Request) Validate() error {
	if err := r.PlatformStores.Validate(); err != nil {
		return err
	}
	if _, err := scale.Resolve(r.BusinessScale); err != nil {
		return &models.ConfigurationError{Field: "businessScale", Reason: err.Error()}
	}
	if r.TimeSpanDays <= 0 {
		return &models.ConfigurationError{Field: "timeSpanDays", Reason: "must be positive"}
	}
	if _, ok := Categories[r.MainCategory]; !ok {
		return &models.ConfigurationError{Field: "mainCategory", Reason: "unknown category " + r.MainCategory}
	}
	if r.TargetOrders < 0 {
		return &models.ConfigurationError{Field: "targetOrders", Reason: "must not be negative"}
	}
	return nil
}

// Dataset holds the eight raw entity tables of one generation run.
type Dataset struct {
	Stores       []models.Store
	Products     []models.Product
	Users        []models.User
	Orders       []models.Order
	OrderDetails []models.OrderDetail
	Promotions   []models.Promotion
	Traffic      []models.Traffic
	Inventory    []models.InventoryMovement
}

// Counts returns per-table row counts keyed by ODS table name. Recorded at
// load time so the verifier can audit the warehouse later.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"ods_stores":        len(d.Stores),
		"ods_products":      len(d.Products),
		"ods_users":         len(d.Users),
		"ods_orders":        len(d.Orders),
		"ods_order_details": len(d.OrderDetails),
		"ods_promotion":     len(d.Promotions),
		"ods_traffic":       len(d.Traffic),
		"ods_inventory":     len(d.Inventory),
	}
}
