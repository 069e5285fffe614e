package hotel

import (
	"time"

	"github.com/pawsuite/pawsuite/internal/finance"
)

// ReserveInput books a stay. The room charge is fixed here: daily rate
// times nights, nights derived from the dates.
type ReserveInput struct {
	BranchID     int64     `json:"branch_id" validate:"required,gt=0"`
	PetID        int64     `json:"pet_id" validate:"required,gt=0"`
	CustomerID   *int64    `json:"customer_id"`
	RoomID       int64     `json:"room_id" validate:"required,gt=0"`
	CheckInDate  time.Time `json:"check_in_date" validate:"required"`
	CheckOutDate time.Time `json:"check_out_date" validate:"required"`
	DailyRate    float64   `json:"daily_rate" validate:"required,gt=0"`
	TaxPercent   float64   `json:"tax_percent" validate:"gte=0,lte=100"`
	Note         string    `json:"note" validate:"max=500"`
	CreatedBy    int64     `json:"-"`
}

// ServiceInput adds one service performed during the stay.
type ServiceInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// ConsumableInput records one product consumed during the stay.
type ConsumableInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	VariantID int64   `json:"variant_id"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// DiscountInput adjusts the booking-level discount while the stay is open.
type DiscountInput struct {
	Amount  float64 `json:"amount" validate:"gte=0"`
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

// CheckoutInput closes the stay and posts the invoice.
type CheckoutInput struct {
	BookingID int64
	ActorID   int64
}

// PaymentRecordInput settles part of the booking's receivable.
type PaymentRecordInput struct {
	BookingID int64
	Payment   finance.PaymentInput
	ActorID   int64
}
