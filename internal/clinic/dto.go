package clinic

import (
	"time"

	"github.com/pawsuite/pawsuite/internal/finance"
)

// ScheduleInput books a new visit.
type ScheduleInput struct {
	BranchID        int64       `json:"branch_id" validate:"required,gt=0"`
	PetID           int64       `json:"pet_id" validate:"required,gt=0"`
	CustomerID      *int64      `json:"customer_id"`
	VetID           int64       `json:"vet_id" validate:"required,gt=0"`
	VisitDate       time.Time   `json:"visit_date"`
	Diagnosis       string      `json:"diagnosis" validate:"max=2000"`
	DiscountAmount  float64     `json:"discount_amount" validate:"gte=0"`
	DiscountPercent float64     `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64     `json:"tax_percent" validate:"gte=0,lte=100"`
	CreatedBy       int64       `json:"-"`
	Items           []ItemInput `json:"items" validate:"dive"`
}

// ItemInput adds one billed line to a scheduled visit.
type ItemInput struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	VariantID       int64   `json:"variant_id"`
	Qty             float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountAmount  float64 `json:"discount_amount" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	IsPrescription  bool    `json:"is_prescription"`
}

// DiscountInput adjusts the visit-level discount and tax while the
// appointment is still scheduled.
type DiscountInput struct {
	Amount     float64 `json:"amount" validate:"gte=0"`
	Percent    float64 `json:"percent" validate:"gte=0,lte=100"`
	TaxPercent float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

// CompleteInput finalizes a visit.
type CompleteInput struct {
	AppointmentID int64
	Diagnosis     string
	Payments      []finance.PaymentInput
	ActorID       int64
}
