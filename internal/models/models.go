package models

import "time"

// Store represents a shop on one of the e-commerce platforms.
type Store struct {
	ID       string    `db:"store_id" json:"store_id"`
	Name     string    `db:"store_name" json:"store_name"`
	Platform string    `db:"platform" json:"platform"`
	OpenDate time.Time `db:"open_date" json:"open_date"`
}

// Product represents one sellable item listed by a store.
// Monetary fields are integer cents so line arithmetic stays exact.
type Product struct {
	ID         string    `db:"product_id" json:"product_id"`
	StoreID    string    `db:"store_id" json:"store_id"`
	Platform   string    `db:"platform" json:"platform"`
	Name       string    `db:"product_name" json:"product_name"`
	CategoryL1 string    `db:"category_l1" json:"category_l1"`
	CategoryL2 string    `db:"category_l2" json:"category_l2"`
	Price      int64     `db:"price" json:"price"`
	Cost       int64     `db:"cost" json:"cost"`
	Stock      int       `db:"stock" json:"stock"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// User represents a buyer.
type User struct {
	ID           string    `db:"user_id" json:"user_id"`
	Name         string    `db:"user_name" json:"user_name"`
	Gender       string    `db:"gender" json:"gender"`
	Age          int       `db:"age" json:"age"`
	City         string    `db:"city" json:"city"`
	RegisterDate time.Time `db:"register_date" json:"register_date"`
}

// Order represents one order header.
//
// For completed orders PaidAmount = GrossAmount + Shipping exactly; for
// cancelled and refunded orders PaidAmount is 0. Downstream margin
// computations depend on this contract being exact, not approximate.
type Order struct {
	ID          string    `db:"order_id" json:"order_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	StoreID     string    `db:"store_id" json:"store_id"`
	Platform    string    `db:"platform" json:"platform"`
	OrderTime   time.Time `db:"order_time" json:"order_time"`
	Status      string    `db:"order_status" json:"order_status"`
	GrossAmount int64     `db:"gross_amount" json:"gross_amount"`
	Shipping    int64     `db:"shipping_fee" json:"shipping_fee"`
	PaidAmount  int64     `db:"paid_amount" json:"paid_amount"`
	TotalCost   int64     `db:"total_cost" json:"total_cost"`
}

// OrderDetail is one order line. Amount == Quantity * UnitPrice exactly.
type OrderDetail struct {
	ID        string `db:"detail_id" json:"detail_id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Amount    int64  `db:"amount" json:"amount"`
}

// Promotion is one paid-traffic placement for a product on a day.
type Promotion struct {
	ID          string    `db:"promo_id" json:"promo_id"`
	Date        time.Time `db:"promo_date" json:"promo_date"`
	StoreID     string    `db:"store_id" json:"store_id"`
	Platform    string    `db:"platform" json:"platform"`
	ProductID   string    `db:"product_id" json:"product_id"`
	CategoryL1  string    `db:"category_l1" json:"category_l1"`
	CategoryL2  string    `db:"category_l2" json:"category_l2"`
	Channel     string    `db:"channel" json:"channel"`
	Spend       int64     `db:"spend" json:"spend"`
	Impressions int       `db:"impressions" json:"impressions"`
	Clicks      int       `db:"clicks" json:"clicks"`
}

// Traffic is one store's visitor funnel for a day.
type Traffic struct {
	Date             time.Time `db:"traffic_date" json:"traffic_date"`
	StoreID          string    `db:"store_id" json:"store_id"`
	Platform         string    `db:"platform" json:"platform"`
	Visitors         int       `db:"visitors" json:"visitors"`
	PageViews        int       `db:"page_views" json:"page_views"`
	SearchTraffic    int       `db:"search_traffic" json:"search_traffic"`
	RecommendTraffic int       `db:"recommend_traffic" json:"recommend_traffic"`
	DirectTraffic    int       `db:"direct_traffic" json:"direct_traffic"`
}

// InventoryMovement is one stock change for a product.
type InventoryMovement struct {
	ID             string    `db:"movement_id" json:"movement_id"`
	Date           time.Time `db:"movement_date" json:"movement_date"`
	ProductID      string    `db:"product_id" json:"product_id"`
	StoreID        string    `db:"store_id" json:"store_id"`
	ChangeType     string    `db:"change_type" json:"change_type"`
	ChangeQty      int       `db:"change_qty" json:"change_qty"`
	ResultingStock int       `db:"resulting_stock" json:"resulting_stock"`
}

// Order statuses
const (
	OrderStatusCompleted = "已完成"
	OrderStatusCancelled = "已取消"
	OrderStatusRefunded  = "退款"
)

// Inventory change types
const (
	InventoryInbound  = "入库"
	InventoryOutbound = "出库"
)

// StageID identifies one pipeline stage slot.
type StageID string

const (
	StageODS    StageID = "ods"
	StageDWD    StageID = "dwd"
	StageDWS    StageID = "dws"
	StageADS    StageID = "ads"
	StageVerify StageID = "verify"
)

// PipelineStages lists the ordered transform pipeline. ODS generation runs
// first; each later stage requires its predecessor to be Done.
var PipelineStages = []StageID{StageODS, StageDWD, StageDWS, StageADS}

// ParseStage maps a path/topic token to a StageID.
func ParseStage(s string) (StageID, bool) {
	switch StageID(s) {
	case StageODS, StageDWD, StageDWS, StageADS, StageVerify:
		return StageID(s), true
	}
	return "", false
}

// StageStatus is the lifecycle status of a stage slot.
type StageStatus string

const (
	StatusNotRun  StageStatus = "not_run"
	StatusRunning StageStatus = "running"
	StatusDone    StageStatus = "done"
	StatusFailed  StageStatus = "failed"
	StatusStopped StageStatus = "stopped"
)

// StageState is a point-in-time snapshot of one stage slot.
type StageState struct {
	Stage     StageID     `json:"stage"`
	Status    StageStatus `json:"status"`
	RunID     string      `json:"run_id,omitempty"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	LastLine  string      `json:"last_line,omitempty"`
	Error     string      `json:"error,omitempty"`
}
