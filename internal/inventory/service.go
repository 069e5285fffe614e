package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pawsuite/pawsuite/internal/finance/calc"
	"github.com/pawsuite/pawsuite/internal/masterdata/products"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// ProductPort resolves product master data.
type ProductPort interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains per-(branch, product, variant) quantity and weighted
// average cost. Services and procedures share the same call paths as goods;
// for them every stock operation is a silent no-op with zero cost.
type Service struct {
	repo     RepositoryPort
	products ProductPort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, productPort ProductPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: productPort, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// IncreaseStock posts an inbound movement in its own transaction.
func (s *Service) IncreaseStock(ctx context.Context, input IncreaseInput) (StockLevel, error) {
	product, err := s.resolveProduct(ctx, input.ProductID)
	if err != nil {
		return StockLevel{}, err
	}
	if !product.Trackable() {
		return StockLevel{}, nil
	}
	var level StockLevel
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		level, err = s.ApplyIncrease(ctx, tx, product, input)
		return err
	})
	if err != nil {
		return StockLevel{}, err
	}
	s.recordAudit(ctx, input.ActorID, string(input.Type), input.BranchID, input.ProductID, input.Qty, input.Note)
	return level, nil
}

// DecreaseStock posts an outbound movement in its own transaction.
func (s *Service) DecreaseStock(ctx context.Context, input DecreaseInput) (DecreaseResult, error) {
	product, err := s.resolveProduct(ctx, input.ProductID)
	if err != nil {
		return DecreaseResult{}, err
	}
	if !product.Trackable() {
		return DecreaseResult{}, nil
	}
	var result DecreaseResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		result, err = s.ApplyDecrease(ctx, tx, product, input)
		return err
	})
	if err != nil {
		return DecreaseResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, string(input.Type), input.BranchID, input.ProductID, -input.Qty, input.Note)
	return result, nil
}

// TransferStock atomically moves stock between branches. The destination row
// inherits the source average cost when newly created; for expiry-tracked
// products the depleted lots are recreated at the destination.
func (s *Service) TransferStock(ctx context.Context, input TransferInput) error {
	if input.FromBranchID == input.ToBranchID {
		return shared.Validationf("inventory: source and destination branch must differ")
	}
	if input.Qty <= 0 {
		return ErrInvalidQuantity
	}
	product, err := s.resolveProduct(ctx, input.ProductID)
	if err != nil {
		return err
	}
	if !product.Trackable() {
		return nil
	}
	refID := input.RefID
	if refID == "" {
		refID = uuid.NewString()
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		out, err := s.ApplyDecrease(ctx, tx, product, DecreaseInput{
			BranchID:  input.FromBranchID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Qty:       input.Qty,
			Type:      MovementTransferOut,
			RefType:   "TRANSFER",
			RefID:     refID,
			Note:      fmt.Sprintf("Transfer to branch %d: %s", input.ToBranchID, input.Note),
			ActorID:   input.ActorID,
		})
		if err != nil {
			return err
		}
		_, err = s.ApplyIncrease(ctx, tx, product, IncreaseInput{
			BranchID:  input.ToBranchID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Qty:       input.Qty,
			UnitCost:  out.AvgCost,
			Type:      MovementTransferIn,
			RefType:   "TRANSFER",
			RefID:     refID,
			Note:      fmt.Sprintf("Transfer from branch %d: %s", input.FromBranchID, input.Note),
			ActorID:   input.ActorID,
		})
		if err != nil {
			return err
		}
		now := s.now()
		for _, lot := range out.Lots {
			if err := tx.InsertBatch(ctx, StockBatch{
				BranchID:     input.ToBranchID,
				ProductID:    input.ProductID,
				VariantID:    input.VariantID,
				BatchNumber:  lot.BatchNumber,
				ExpiryDate:   lot.ExpiryDate,
				QtyRemaining: lot.Qty,
				QtyInitial:   lot.Qty,
				ReceivedAt:   now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, input.ActorID, string(MovementTransferOut), input.FromBranchID, input.ProductID, -input.Qty, input.Note)
	return nil
}

// GetStock reads the current level.
func (s *Service) GetStock(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error) {
	level, err := s.repo.GetStock(ctx, branchID, productID, variantID)
	if errors.Is(err, ErrStockNotFound) {
		return StockLevel{BranchID: branchID, ProductID: productID, VariantID: variantID}, nil
	}
	return level, err
}

// ListMovements returns the audit log.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// ApplyIncrease runs the inbound mutation against an open transaction so
// orchestrators can combine it with journal posting atomically. The caller
// must have verified the product is trackable.
func (s *Service) ApplyIncrease(ctx context.Context, tx TxRepository, product products.Product, input IncreaseInput) (StockLevel, error) {
	if input.Qty <= 0 {
		return StockLevel{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return StockLevel{}, ErrInvalidUnitCost
	}
	if !input.Type.Inbound() {
		return StockLevel{}, shared.Validationf("inventory: %s is not an inbound movement", input.Type)
	}
	if product.HasExpiry && input.Type != MovementTransferIn {
		if input.Batch == nil || input.Batch.Number == "" || input.Batch.ExpiryDate.IsZero() {
			return StockLevel{}, ErrBatchRequired
		}
	}

	unitCost := input.UnitCost
	if unitCost == 0 {
		unitCost = product.PurchasePrice
	}

	level, err := tx.GetStockForUpdate(ctx, input.BranchID, input.ProductID, input.VariantID)
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		return StockLevel{}, err
	}
	if errors.Is(err, ErrStockNotFound) {
		level = StockLevel{BranchID: input.BranchID, ProductID: input.ProductID, VariantID: input.VariantID, AvgCost: unitCost}
		level.Qty = input.Qty
	} else {
		newQty := level.Qty + input.Qty
		level.AvgCost = (level.Qty*level.AvgCost + input.Qty*unitCost) / newQty
		level.Qty = newQty
	}
	if err := tx.UpsertStock(ctx, level); err != nil {
		return StockLevel{}, err
	}

	now := s.now()
	if err := tx.InsertMovement(ctx, Movement{
		BranchID:  input.BranchID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Type:      input.Type,
		Qty:       input.Qty,
		RefType:   input.RefType,
		RefID:     input.RefID,
		MovedAt:   now,
		Note:      input.Note,
	}); err != nil {
		return StockLevel{}, err
	}

	if product.HasExpiry && input.Batch != nil {
		if err := tx.InsertBatch(ctx, StockBatch{
			BranchID:        input.BranchID,
			ProductID:       input.ProductID,
			VariantID:       input.VariantID,
			BatchNumber:     input.Batch.Number,
			ExpiryDate:      input.Batch.ExpiryDate,
			QtyRemaining:    input.Qty,
			QtyInitial:      input.Qty,
			ReceivedAt:      now,
			PurchaseOrderID: input.Batch.PurchaseOrderID,
		}); err != nil {
			return StockLevel{}, err
		}
	}
	return level, nil
}

// ApplyDecrease runs the outbound mutation against an open transaction.
// COGS uses the pre-decrease average cost; the average itself is unchanged.
func (s *Service) ApplyDecrease(ctx context.Context, tx TxRepository, product products.Product, input DecreaseInput) (DecreaseResult, error) {
	if input.Qty <= 0 {
		return DecreaseResult{}, ErrInvalidQuantity
	}
	if input.Type.Inbound() {
		return DecreaseResult{}, shared.Validationf("inventory: %s is not an outbound movement", input.Type)
	}

	level, err := tx.GetStockForUpdate(ctx, input.BranchID, input.ProductID, input.VariantID)
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		return DecreaseResult{}, err
	}
	if input.Qty > level.Qty+1e-9 {
		return DecreaseResult{}, fmt.Errorf("%w: requested %g, available %g", ErrInsufficientStock, input.Qty, level.Qty)
	}

	cogs := calc.Round2(level.AvgCost * input.Qty)
	result := DecreaseResult{COGS: cogs, AvgCost: level.AvgCost, Qty: input.Qty}

	level.Qty -= input.Qty
	if level.Qty < 1e-9 {
		level.Qty = 0
	}
	if err := tx.UpsertStock(ctx, level); err != nil {
		return DecreaseResult{}, err
	}

	if err := tx.InsertMovement(ctx, Movement{
		BranchID:  input.BranchID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Type:      input.Type,
		Qty:       -input.Qty,
		RefType:   input.RefType,
		RefID:     input.RefID,
		MovedAt:   s.now(),
		Note:      input.Note,
	}); err != nil {
		return DecreaseResult{}, err
	}

	if product.HasExpiry {
		lots, err := s.depleteBatches(ctx, tx, input)
		if err != nil {
			return DecreaseResult{}, err
		}
		result.Lots = lots
	}
	return result, nil
}

// depleteBatches deducts the requested quantity from lots ordered by
// ascending expiry date, clamping each deduction to what the lot holds.
func (s *Service) depleteBatches(ctx context.Context, tx TxRepository, input DecreaseInput) ([]BatchDeduction, error) {
	batches, err := tx.ListBatchesForUpdate(ctx, input.BranchID, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}
	remaining := input.Qty
	lots := []BatchDeduction{}
	for _, batch := range batches {
		if remaining <= 1e-9 {
			break
		}
		take := batch.QtyRemaining
		if take > remaining {
			take = remaining
		}
		if err := tx.UpdateBatchRemaining(ctx, batch.ID, batch.QtyRemaining-take); err != nil {
			return nil, err
		}
		lots = append(lots, BatchDeduction{BatchNumber: batch.BatchNumber, ExpiryDate: batch.ExpiryDate, Qty: take})
		remaining -= take
	}
	return lots, nil
}

func (s *Service) resolveProduct(ctx context.Context, productID int64) (products.Product, error) {
	if productID == 0 {
		return products.Product{}, shared.Validationf("inventory: product required")
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return products.Product{}, err
	}
	return product, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, branchID, productID int64, qty float64, note string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   fmt.Sprintf("inventory:%s", action),
		Entity:   "stock_movement",
		EntityID: fmt.Sprintf("%d:%d", branchID, productID),
		Meta: map[string]any{
			"branch_id":  branchID,
			"product_id": productID,
			"qty":        qty,
			"note":       note,
		},
		At: s.now(),
	})
}
