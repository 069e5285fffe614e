package purchasing

import "time"

// OrderStatus enumerates the purchase order lifecycle.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusOrdered   OrderStatus = "ORDERED"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PurchaseOrder tracks goods ordered from a supplier. Receiving is the
// financially meaningful event: it raises stock and posts the journal.
type PurchaseOrder struct {
	ID          int64
	Number      string
	BranchID    int64
	SupplierID  int64
	Status      OrderStatus
	OrderDate   time.Time
	Subtotal    float64
	TaxTotal    float64
	Total       float64
	PaidTotal   float64
	Outstanding float64
	Note        string
	CreatedBy   int64
	OrderedAt   *time.Time
	ReceivedAt  *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []OrderItem
}

// OrderItem is one ordered line. QtyReceived accumulates across partial
// receipts and never exceeds QtyOrdered.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	VariantID   int64
	SKU         string
	Name        string
	Category    string
	QtyOrdered  float64
	QtyReceived float64
	UnitCost    float64
	TaxPercent  float64
	LineTotal   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows order listings.
type ListFilter struct {
	BranchID   int64
	SupplierID int64
	Status     OrderStatus
	Limit      int
}
