package hotel

import "time"

// BookingStatus enumerates the stay lifecycle.
type BookingStatus string

const (
	BookingStatusReserved   BookingStatus = "RESERVED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// Booking is one pet-hotel stay. The room charge is locked in at reservation
// time (daily rate times nights); services and consumables accumulate during
// the stay. Checkout charges the full invoice total to receivables; payments
// settle it separately.
type Booking struct {
	ID              int64
	Number          string
	BranchID        int64
	PetID           int64
	CustomerID      *int64
	RoomID          int64
	Status          BookingStatus
	CheckInDate     time.Time
	CheckOutDate    time.Time
	Nights          int
	DailyRate       float64
	RoomCharge      float64
	ServiceTotal    float64
	ConsumableTotal float64
	DiscountAmount  float64
	DiscountPercent float64
	DiscountTotal   float64
	TaxPercent      float64
	TaxTotal        float64
	Total           float64
	PaidTotal       float64
	Outstanding     float64
	Note            string
	CreatedBy       int64
	CheckedInAt     *time.Time
	CheckedOutAt    *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Services        []BookingService
	Consumables     []BookingConsumable
	Payments        []BookingPayment
}

// BookingService is one service performed during the stay.
type BookingService struct {
	ID        int64
	BookingID int64
	ProductID int64
	SKU       string
	Name      string
	Qty       float64
	UnitPrice float64
	LineTotal float64
	AddedAt   time.Time
}

// BookingConsumable is one product consumed during the stay. Stock moves
// immediately when the row is added; COGS captures the weighted average cost
// at that moment.
type BookingConsumable struct {
	ID         int64
	BookingID  int64
	ProductID  int64
	VariantID  int64
	SKU        string
	Name       string
	Category   string
	Qty        float64
	UnitPrice  float64
	LineTotal  float64
	COGS       float64
	ConsumedAt time.Time
}

// BookingPayment is one settlement against the stay's receivable.
type BookingPayment struct {
	ID        int64
	BookingID int64
	Method    string
	Amount    float64
	Tendered  float64
	Reference string
	PaidAt    time.Time
}

// ListFilter narrows booking listings.
type ListFilter struct {
	BranchID int64
	RoomID   int64
	Status   BookingStatus
	Limit    int
}
