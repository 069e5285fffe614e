package sales

import "time"

// SaleStatus enumerates the sale lifecycle. Items are editable only while
// the sale is a draft; submission is final.
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "DRAFT"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// Sale is a point-of-sale transaction. The subtotal sums the already-rounded
// line nets; the sale-level discount and tax then apply on top of it.
type Sale struct {
	ID              int64
	Number          string
	BranchID        int64
	CustomerID      *int64
	Status          SaleStatus
	SaleDate        time.Time
	DiscountAmount  float64
	DiscountPercent float64
	TaxPercent      float64
	Subtotal        float64
	DiscountTotal   float64
	TaxTotal        float64
	Total           float64
	PaidTotal       float64
	ChangeTotal     float64
	Outstanding     float64
	Note            string
	CreatedBy       int64
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []SaleItem
	Payments        []SalePayment
}

// SaleItem snapshots product identity and pricing at the moment the line was
// added. Cost fields are filled at submission from the inventory ledger.
type SaleItem struct {
	ID              int64
	SaleID          int64
	ProductID       int64
	VariantID       int64
	SKU             string
	Name            string
	Category        string
	Qty             float64
	UnitPrice       float64
	DiscountAmount  float64
	DiscountPercent float64
	TaxPercent      float64
	Gross           float64
	DiscountTotal   float64
	TaxAmount       float64
	LineTotal       float64
	COGS            float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SalePayment is one recorded payment against a sale.
type SalePayment struct {
	ID        int64
	SaleID    int64
	Method    string
	Amount    float64
	Tendered  float64
	Reference string
	PaidAt    time.Time
}

// ListFilter narrows sale listings.
type ListFilter struct {
	BranchID int64
	Status   SaleStatus
	From     time.Time
	To       time.Time
	Limit    int
}
