package purchasing

import (
	"time"

	"github.com/pawsuite/pawsuite/internal/finance"
)

// CreateOrderInput opens a new draft purchase order.
type CreateOrderInput struct {
	BranchID   int64            `json:"branch_id" validate:"required,gt=0"`
	SupplierID int64            `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  time.Time        `json:"order_date"`
	Note       string           `json:"note" validate:"max=500"`
	CreatedBy  int64            `json:"-"`
	Items      []OrderItemInput `json:"items" validate:"dive"`
}

// OrderItemInput adds one line to a draft order. A zero UnitCost falls back
// to the product's purchase price.
type OrderItemInput struct {
	ProductID  int64   `json:"product_id" validate:"required,gt=0"`
	VariantID  int64   `json:"variant_id"`
	Qty        float64 `json:"qty" validate:"required,gt=0"`
	UnitCost   float64 `json:"unit_cost" validate:"gte=0"`
	TaxPercent float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

// ReceiptLine records goods arriving against one order line. Batch details
// are mandatory for expiry-tracked products.
type ReceiptLine struct {
	ItemID      int64      `json:"item_id" validate:"required,gt=0"`
	Qty         float64    `json:"qty" validate:"required,gt=0"`
	UnitCost    float64    `json:"unit_cost" validate:"gte=0"`
	BatchNumber string     `json:"batch_number"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// ReceiveInput books a (possibly partial) goods receipt. An optional payment
// settles part of the invoice immediately; the rest lands on payables.
type ReceiveInput struct {
	OrderID int64
	Lines   []ReceiptLine
	Payment *finance.PaymentInput
	ActorID int64
}
