package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/finance/calc"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/masterdata/products"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// ProductPort resolves product master data.
type ProductPort interface {
	Get(ctx context.Context, id int64) (products.Product, error)
	GetVariant(ctx context.Context, id int64) (products.Variant, error)
}

// StockPort applies stock movements inside an open transaction.
type StockPort interface {
	ApplyIncrease(ctx context.Context, tx inventory.TxRepository, product products.Product, input inventory.IncreaseInput) (inventory.StockLevel, error)
}

// JournalPort posts purchase journals inside an open transaction.
type JournalPort interface {
	PostPurchaseJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.PurchaseJournalInput) (journals.JournalEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates procurement. Goods receipts raise stock at the
// received unit cost and post the purchase journal in the same transaction.
type Service struct {
	repo     RepositoryPort
	products ProductPort
	stock    StockPort
	journal  JournalPort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, productPort ProductPort, stock StockPort, journal JournalPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		products: productPort,
		stock:    stock,
		journal:  journal,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one order with items.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, filter)
}

// CreateDraft opens a draft purchase order.
func (s *Service) CreateDraft(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.BranchID <= 0 || input.SupplierID <= 0 {
		return PurchaseOrder{}, shared.Validationf("purchasing: branch and supplier required")
	}
	if input.OrderDate.IsZero() {
		input.OrderDate = s.now()
	}

	var created PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		poTx := tx.Purchases()
		existing, err := poTx.ListNumbersForDay(ctx, shared.DocNumberPrefix(shared.PrefixPurchase, input.OrderDate))
		if err != nil {
			return err
		}
		order := PurchaseOrder{
			Number:     shared.NextDocNumber(shared.PrefixPurchase, input.OrderDate, existing),
			BranchID:   input.BranchID,
			SupplierID: input.SupplierID,
			Status:     OrderStatusDraft,
			OrderDate:  input.OrderDate,
			Note:       input.Note,
			CreatedBy:  input.CreatedBy,
		}
		if order.ID, err = poTx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, in := range input.Items {
			item, err := s.buildItem(ctx, order.ID, in)
			if err != nil {
				return err
			}
			if item.ID, err = poTx.InsertItem(ctx, item); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
		applyTotals(&order)
		if err := poTx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "purchase.create", created)
	return created, nil
}

// SubmitOrder marks a draft as ordered. Receipts are only accepted after
// this point.
func (s *Service) SubmitOrder(ctx context.Context, orderID, actorID int64) (PurchaseOrder, error) {
	var submitted PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		poTx := tx.Purchases()
		order, err := poTx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusDraft {
			return shared.StatusConflictf("purchasing: cannot submit %s order %s", order.Status, order.Number)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("%w: purchase order %s", shared.ErrNoItems, order.Number)
		}
		now := s.now()
		order.Status = OrderStatusOrdered
		order.OrderedAt = &now
		if err := poTx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		submitted = order
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase.submit", submitted)
	return submitted, nil
}

// Receive books a goods receipt. Every received line raises stock at the
// received unit cost (recomputing the weighted average), records a batch for
// expiry-tracked goods and accumulates into the purchase journal. An optional
// immediate payment reduces the payable.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: receipt", shared.ErrNoItems)
	}

	var received PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		poTx := tx.Purchases()
		order, err := poTx.GetOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusOrdered && order.Status != OrderStatusPartial {
			return shared.StatusConflictf("purchasing: cannot receive against %s order %s", order.Status, order.Number)
		}

		invTx := tx.Inventory()
		costByCategory := map[string]float64{}
		var receiptCost, receiptTax float64
		for _, line := range input.Lines {
			item := findItem(order.Items, line.ItemID)
			if item == nil {
				return shared.NotFoundf("purchase order item %d", line.ItemID)
			}
			remaining := item.QtyOrdered - item.QtyReceived
			if line.Qty > remaining+1e-9 {
				return shared.Validationf("purchasing: item %s over-receipt: %g ordered, %g already received",
					item.SKU, item.QtyOrdered, item.QtyReceived)
			}
			unitCost := line.UnitCost
			if unitCost == 0 {
				unitCost = item.UnitCost
			}

			product, err := s.products.Get(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.Trackable() {
				increase := inventory.IncreaseInput{
					BranchID:  order.BranchID,
					ProductID: item.ProductID,
					VariantID: item.VariantID,
					Qty:       line.Qty,
					UnitCost:  unitCost,
					Type:      inventory.MovementPurchaseIn,
					RefType:   "PURCHASE",
					RefID:     order.Number,
					ActorID:   input.ActorID,
				}
				if line.BatchNumber != "" && line.ExpiryDate != nil {
					increase.Batch = &inventory.BatchInput{
						Number:          line.BatchNumber,
						ExpiryDate:      *line.ExpiryDate,
						PurchaseOrderID: &order.ID,
					}
				}
				if _, err := s.stock.ApplyIncrease(ctx, invTx, product, increase); err != nil {
					return fmt.Errorf("%s: %w", products.DisplayName(ctx, s.products, product, item.VariantID), err)
				}
			}

			lineCost := calc.Round2(line.Qty * unitCost)
			costByCategory[item.Category] = calc.Round2(costByCategory[item.Category] + lineCost)
			receiptCost = calc.Round2(receiptCost + lineCost)
			receiptTax = calc.Round2(receiptTax + calc.Round2(lineCost*item.TaxPercent/100))

			item.QtyReceived = item.QtyReceived + line.Qty
			if err := poTx.UpdateItem(ctx, *item); err != nil {
				return err
			}
		}

		receiptTotal := calc.Round2(receiptCost + receiptTax)
		var paid float64
		var paidMethod string
		if input.Payment != nil {
			if input.Payment.Amount <= 0 {
				return shared.Validationf("purchasing: payment amount must be positive")
			}
			if input.Payment.Amount > receiptTotal+0.009 {
				return fmt.Errorf("%w: payment %.2f exceeds receipt total %.2f",
					shared.ErrPaymentExceedsTotal, input.Payment.Amount, receiptTotal)
			}
			paid = calc.Round2(input.Payment.Amount)
			paidMethod = input.Payment.Method
		}
		outstanding := calc.Round2(receiptTotal - paid)

		if _, err := s.journal.PostPurchaseJournalInTx(ctx, tx.Journals(), journals.PurchaseJournalInput{
			PurchaseID:     receiptSourceID(order.ID, order.Items),
			Number:         order.Number,
			Date:           s.now(),
			BranchID:       &order.BranchID,
			CostByCategory: costByCategory,
			TaxAmount:      receiptTax,
			PaidAmount:     paid,
			PaidMethod:     paidMethod,
			Outstanding:    outstanding,
			CreatedBy:      input.ActorID,
		}); err != nil {
			return err
		}

		order.PaidTotal = calc.Round2(order.PaidTotal + paid)
		order.Outstanding = calc.Round2(order.Outstanding + outstanding)
		if fullyReceived(order.Items) {
			now := s.now()
			order.Status = OrderStatusReceived
			order.ReceivedAt = &now
		} else {
			order.Status = OrderStatusPartial
		}
		if err := poTx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		received = order
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "goods receipt booked",
			slog.String("number", received.Number),
			slog.String("status", string(received.Status)))
	}
	s.recordAudit(ctx, input.ActorID, "purchase.receive", received)
	return received, nil
}

// Cancel discards an order that has not received any goods.
func (s *Service) Cancel(ctx context.Context, orderID, actorID int64) (PurchaseOrder, error) {
	var cancelled PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		poTx := tx.Purchases()
		order, err := poTx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusDraft && order.Status != OrderStatusOrdered {
			return shared.StatusConflictf("purchasing: cannot cancel %s order %s", order.Status, order.Number)
		}
		now := s.now()
		order.Status = OrderStatusCancelled
		order.CancelledAt = &now
		if err := poTx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase.cancel", cancelled)
	return cancelled, nil
}

func (s *Service) buildItem(ctx context.Context, orderID int64, input OrderItemInput) (OrderItem, error) {
	product, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return OrderItem{}, err
	}
	if !product.Trackable() {
		return OrderItem{}, shared.Validationf("purchasing: %s is not a stocked product", product.SKU)
	}
	unitCost := input.UnitCost
	if unitCost == 0 {
		unitCost = product.PurchasePrice
	}
	line := calc.CalculateLine(calc.LineInput{
		Quantity:   input.Qty,
		UnitPrice:  unitCost,
		TaxPercent: input.TaxPercent,
	})
	if line.Quantity <= 0 {
		return OrderItem{}, shared.Validationf("purchasing: quantity must be at least 1")
	}
	return OrderItem{
		OrderID:    orderID,
		ProductID:  product.ID,
		VariantID:  input.VariantID,
		SKU:        product.SKU,
		Name:       product.Name,
		Category:   product.Category,
		QtyOrdered: line.Quantity,
		UnitCost:   line.UnitPrice,
		TaxPercent: input.TaxPercent,
		LineTotal:  line.Net,
	}, nil
}

func applyTotals(order *PurchaseOrder) {
	var subtotal, tax, total float64
	for _, item := range order.Items {
		lineCost := calc.Round2(item.QtyOrdered * item.UnitCost)
		subtotal += lineCost
		tax += calc.Round2(lineCost * item.TaxPercent / 100)
		total += item.LineTotal
	}
	order.Subtotal = calc.Round2(subtotal)
	order.TaxTotal = calc.Round2(tax)
	order.Total = calc.Round2(total)
}

func findItem(items []OrderItem, id int64) *OrderItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func fullyReceived(items []OrderItem) bool {
	for _, item := range items {
		if item.QtyReceived < item.QtyOrdered-1e-9 {
			return false
		}
	}
	return true
}

// receiptSourceID makes each receipt's journal source unique, since one
// order can take several partial receipts.
func receiptSourceID(orderID int64, items []OrderItem) string {
	var receivedSoFar float64
	for _, item := range items {
		receivedSoFar += item.QtyReceived
	}
	return strconv.FormatInt(orderID, 10) + "/" + strconv.FormatFloat(receivedSoFar, 'f', -1, 64)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, order PurchaseOrder) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: order.Number,
		Meta: map[string]any{
			"status": string(order.Status),
			"total":  order.Total,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
