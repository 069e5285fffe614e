package clinic

import "time"

// AppointmentStatus enumerates the visit lifecycle.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// ItemKind separates billed services from dispensed products.
type ItemKind string

const (
	ItemKindService ItemKind = "SERVICE"
	ItemKindProduct ItemKind = "PRODUCT"
)

// Appointment is one clinic visit. Completion is the terminal business
// event: payments settle, non-prescription products are dispensed and the
// journal entry posts. Prescription lines keep their stock until an explicit
// pickup.
type Appointment struct {
	ID              int64
	Number          string
	BranchID        int64
	PetID           int64
	CustomerID      *int64
	VetID           int64
	Status          AppointmentStatus
	VisitDate       time.Time
	Diagnosis       string
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
	CreatedBy       int64
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []AppointmentItem
	Payments        []AppointmentPayment
}

// AppointmentItem is one billed line. Product lines snapshot the product at
// the time they were added; COGS is filled when stock actually moves.
type AppointmentItem struct {
	ID              int64
	AppointmentID   int64
	Kind            ItemKind
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
	IsPrescription  bool
	PickedUpAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentPayment is one recorded payment against a visit.
type AppointmentPayment struct {
	ID            int64
	AppointmentID int64
	Method        string
	Amount        float64
	Tendered      float64
	Reference     string
	PaidAt        time.Time
}

// ListFilter narrows appointment listings.
type ListFilter struct {
	BranchID int64
	VetID    int64
	Status   AppointmentStatus
	From     time.Time
	To       time.Time
	Limit    int
}
