package sales

import (
	"time"

	"github.com/pawsuite/pawsuite/internal/finance"
)

// CreateSaleInput opens a new draft. Number is optional; when empty the
// daily sequence assigns one.
type CreateSaleInput struct {
	BranchID        int64       `json:"branch_id" validate:"required,gt=0"`
	CustomerID      *int64      `json:"customer_id"`
	Number          string      `json:"number" validate:"omitempty,max=40"`
	SaleDate        time.Time   `json:"sale_date"`
	DiscountAmount  float64     `json:"discount_amount" validate:"gte=0"`
	DiscountPercent float64     `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64     `json:"tax_percent" validate:"gte=0,lte=100"`
	Note            string      `json:"note" validate:"max=500"`
	CreatedBy       int64       `json:"-"`
	Items           []ItemInput `json:"items" validate:"dive"`
}

// ItemInput adds or replaces one line on a draft. A zero UnitPrice falls
// back to the product's sale price.
type ItemInput struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	VariantID       int64   `json:"variant_id"`
	Qty             float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountAmount  float64 `json:"discount_amount" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

// DiscountInput adjusts the sale-level discount and tax while the sale is
// still a draft.
type DiscountInput struct {
	Amount     float64 `json:"amount" validate:"gte=0"`
	Percent    float64 `json:"percent" validate:"gte=0,lte=100"`
	TaxPercent float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

// SubmitInput finalizes a draft: payments are settled, stock moves and the
// journal entry posts, all in one transaction.
type SubmitInput struct {
	SaleID   int64
	Payments []finance.PaymentInput
	ActorID  int64
}
