package inventory

import (
	"fmt"
	"time"

	"github.com/pawsuite/pawsuite/internal/shared"
)

// MovementType enumerates the audited stock movement kinds.
type MovementType string

const (
	MovementPurchaseIn       MovementType = "PURCHASE_IN"
	MovementSaleOut          MovementType = "SALE_OUT"
	MovementAdjustmentIn     MovementType = "ADJUSTMENT_IN"
	MovementAdjustmentOut    MovementType = "ADJUSTMENT_OUT"
	MovementTransferIn       MovementType = "TRANSFER_IN"
	MovementTransferOut      MovementType = "TRANSFER_OUT"
	MovementHotelConsumption MovementType = "HOTEL_CONSUMPTION"
	MovementInitialStock     MovementType = "INITIAL_STOCK"
)

// Inbound reports whether the movement type increases stock.
func (t MovementType) Inbound() bool {
	switch t {
	case MovementPurchaseIn, MovementAdjustmentIn, MovementTransferIn, MovementInitialStock:
		return true
	}
	return false
}

// StockLevel is the current position for (branch, product, variant-or-none).
// Quantity never goes below zero; average cost is recomputed on every inbound
// movement and untouched by outbound ones.
type StockLevel struct {
	BranchID  int64
	ProductID int64
	VariantID int64
	Qty       float64
	AvgCost   float64
	UpdatedAt time.Time
}

// StockBatch is a FEFO tracking lot for expiry-tracked products. Quantity
// depletion order is governed by ascending expiry date; cost is not
// batch-specific.
type StockBatch struct {
	ID              int64
	BranchID        int64
	ProductID       int64
	VariantID       int64
	BatchNumber     string
	ExpiryDate      time.Time
	QtyRemaining    float64
	QtyInitial      float64
	ReceivedAt      time.Time
	PurchaseOrderID *int64
}

// Movement is one append-only audit row. Qty is signed.
type Movement struct {
	ID        int64
	BranchID  int64
	ProductID int64
	VariantID int64
	Type      MovementType
	Qty       float64
	RefType   string
	RefID     string
	MovedAt   time.Time
	Note      string
}

// BatchInput identifies the lot received with an inbound movement.
type BatchInput struct {
	Number          string
	ExpiryDate      time.Time
	PurchaseOrderID *int64
}

// IncreaseInput describes an inbound movement.
type IncreaseInput struct {
	BranchID  int64
	ProductID int64
	VariantID int64
	Qty       float64
	UnitCost  float64
	Type      MovementType
	RefType   string
	RefID     string
	Batch     *BatchInput
	Note      string
	ActorID   int64
}

// DecreaseInput describes an outbound movement.
type DecreaseInput struct {
	BranchID  int64
	ProductID int64
	VariantID int64
	Qty       float64
	Type      MovementType
	RefType   string
	RefID     string
	Note      string
	ActorID   int64
}

// DecreaseResult reports the cost effect of an outbound movement. COGS uses
// the pre-decrease average cost.
type DecreaseResult struct {
	COGS    float64
	AvgCost float64
	Qty     float64
	Lots    []BatchDeduction
}

// BatchDeduction records how much of a lot an outbound movement consumed.
type BatchDeduction struct {
	BatchNumber string
	ExpiryDate  time.Time
	Qty         float64
}

// TransferInput moves stock between branches for the same product/variant.
type TransferInput struct {
	FromBranchID int64
	ToBranchID   int64
	ProductID    int64
	VariantID    int64
	Qty          float64
	RefID        string
	Note         string
	ActorID      int64
}

// MovementFilter filters the movement log.
type MovementFilter struct {
	BranchID  int64
	ProductID int64
	VariantID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrInsufficientStock is returned when a decrease exceeds available quantity.
var ErrInsufficientStock = fmt.Errorf("inventory: %w", shared.ErrInsufficientStock)

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = shared.Validationf("inventory: quantity must be positive")

// ErrInvalidUnitCost indicates a negative unit cost.
var ErrInvalidUnitCost = shared.Validationf("inventory: unit cost must be >= 0")

// ErrBatchRequired indicates a missing batch number or expiry date for an
// expiry-tracked product.
var ErrBatchRequired = shared.Validationf("inventory: batch number and expiry date required for expiry-tracked product")
