package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/finance"
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
	ApplyDecrease(ctx context.Context, tx inventory.TxRepository, product products.Product, input inventory.DecreaseInput) (inventory.DecreaseResult, error)
}

// JournalPort posts sale journals inside an open transaction.
type JournalPort interface {
	PostSaleJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.SaleJournalInput) (journals.JournalEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the point-of-sale flow. Submission settles payments,
// depletes stock and posts the journal entry in one transaction; a failure
// at any step rolls everything back.
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

// Get returns one sale with items and payments.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.List(ctx, filter)
}

// CreateDraft opens a new draft sale, optionally seeded with items.
func (s *Service) CreateDraft(ctx context.Context, input CreateSaleInput) (Sale, error) {
	if input.BranchID <= 0 {
		return Sale{}, shared.Validationf("sales: branch required")
	}
	if input.SaleDate.IsZero() {
		input.SaleDate = s.now()
	}

	var created Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		saleTx := tx.Sales()
		number := input.Number
		if number != "" {
			exists, err := saleTx.NumberExists(ctx, number)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: sale number %s", shared.ErrDuplicateEntry, number)
			}
		} else {
			existing, err := saleTx.ListNumbersForDay(ctx, shared.DocNumberPrefix(shared.PrefixSale, input.SaleDate))
			if err != nil {
				return err
			}
			number = shared.NextDocNumber(shared.PrefixSale, input.SaleDate, existing)
		}

		sale := Sale{
			Number:          number,
			BranchID:        input.BranchID,
			CustomerID:      input.CustomerID,
			Status:          SaleStatusDraft,
			SaleDate:        input.SaleDate,
			DiscountAmount:  calc.Round2(input.DiscountAmount),
			DiscountPercent: input.DiscountPercent,
			TaxPercent:      input.TaxPercent,
			Note:            input.Note,
			CreatedBy:       input.CreatedBy,
		}
		id, err := saleTx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id

		for _, in := range input.Items {
			item, err := s.buildItem(ctx, sale.ID, in)
			if err != nil {
				return err
			}
			if item.ID, err = saleTx.InsertItem(ctx, item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)
		}
		applyTotals(&sale)
		if err := saleTx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		created = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "sale.create", created)
	return created, nil
}

// AddItem appends a line to a draft and recomputes the totals.
func (s *Service) AddItem(ctx context.Context, saleID int64, input ItemInput, actorID int64) (Sale, error) {
	return s.mutateDraft(ctx, saleID, actorID, "sale.item_add", func(ctx context.Context, saleTx TxRepository, sale *Sale) error {
		item, err := s.buildItem(ctx, sale.ID, input)
		if err != nil {
			return err
		}
		if item.ID, err = saleTx.InsertItem(ctx, item); err != nil {
			return err
		}
		sale.Items = append(sale.Items, item)
		return nil
	})
}

// UpdateItem replaces the pricing figures of one line and recomputes.
func (s *Service) UpdateItem(ctx context.Context, saleID, itemID int64, input ItemInput, actorID int64) (Sale, error) {
	return s.mutateDraft(ctx, saleID, actorID, "sale.item_update", func(ctx context.Context, saleTx TxRepository, sale *Sale) error {
		for i := range sale.Items {
			if sale.Items[i].ID != itemID {
				continue
			}
			replacement, err := s.buildItem(ctx, sale.ID, input)
			if err != nil {
				return err
			}
			replacement.ID = itemID
			if err := saleTx.UpdateItem(ctx, replacement); err != nil {
				return err
			}
			sale.Items[i] = replacement
			return nil
		}
		return shared.NotFoundf("sale item %d", itemID)
	})
}

// RemoveItem drops a line from a draft and recomputes.
func (s *Service) RemoveItem(ctx context.Context, saleID, itemID int64, actorID int64) (Sale, error) {
	return s.mutateDraft(ctx, saleID, actorID, "sale.item_remove", func(ctx context.Context, saleTx TxRepository, sale *Sale) error {
		if err := saleTx.DeleteItem(ctx, sale.ID, itemID); err != nil {
			return err
		}
		kept := sale.Items[:0]
		for _, item := range sale.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		sale.Items = kept
		return nil
	})
}

// SetDiscount adjusts the sale-level discount and tax while the sale is a
// draft, then recomputes the totals.
func (s *Service) SetDiscount(ctx context.Context, saleID int64, input DiscountInput, actorID int64) (Sale, error) {
	return s.mutateDraft(ctx, saleID, actorID, "sale.discount_set", func(ctx context.Context, saleTx TxRepository, sale *Sale) error {
		sale.DiscountAmount = calc.Round2(input.Amount)
		sale.DiscountPercent = input.Percent
		sale.TaxPercent = input.TaxPercent
		return nil
	})
}

// Submit finalizes a draft. Payments are normalized against the total, every
// trackable line depletes stock at weighted average cost, and the journal
// entry posts, all atomically. A sale that is no longer a draft is rejected,
// which makes retried submissions harmless.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Sale, error) {
	var completed Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		saleTx := tx.Sales()
		sale, err := saleTx.GetSaleForUpdate(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusDraft {
			return shared.StatusConflictf("sales: cannot submit %s sale %s", sale.Status, sale.Number)
		}
		if len(sale.Items) == 0 {
			return fmt.Errorf("%w: sale %s", shared.ErrNoItems, sale.Number)
		}
		header := applyTotals(&sale)

		payments, err := finance.NormalizePayments(sale.Total, input.Payments)
		if err != nil {
			return err
		}

		invTx := tx.Inventory()
		revenueByCategory := map[string]float64{}
		cogsByCategory := map[string]float64{}
		for i, item := range sale.Items {
			product, err := s.products.Get(ctx, item.ProductID)
			if err != nil {
				return err
			}
			netBeforeTax := calc.Round2(item.LineTotal - item.TaxAmount)
			revenueByCategory[item.Category] = calc.Round2(revenueByCategory[item.Category] + netBeforeTax)
			if !product.Trackable() {
				continue
			}
			res, err := s.stock.ApplyDecrease(ctx, invTx, product, inventory.DecreaseInput{
				BranchID:  sale.BranchID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Qty:       item.Qty,
				Type:      inventory.MovementSaleOut,
				RefType:   "SALE",
				RefID:     sale.Number,
				ActorID:   input.ActorID,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", products.DisplayName(ctx, s.products, product, item.VariantID), err)
			}
			sale.Items[i].COGS = res.COGS
			if err := saleTx.UpdateItem(ctx, sale.Items[i]); err != nil {
				return err
			}
			cogsByCategory[item.Category] = calc.Round2(cogsByCategory[item.Category] + res.COGS)
		}

		paidByMethod := map[string]float64{}
		now := s.now()
		for _, p := range payments.Payments {
			paidByMethod[p.Method] = calc.Round2(paidByMethod[p.Method] + p.Amount)
			if err := saleTx.InsertPayment(ctx, SalePayment{
				SaleID:    sale.ID,
				Method:    p.Method,
				Amount:    p.Amount,
				Tendered:  p.Tendered,
				Reference: p.Reference,
				PaidAt:    now,
			}); err != nil {
				return err
			}
		}

		if _, err := s.journal.PostSaleJournalInTx(ctx, tx.Journals(), journals.SaleJournalInput{
			SaleID:            strconv.FormatInt(sale.ID, 10),
			Number:            sale.Number,
			Date:              sale.SaleDate,
			BranchID:          &sale.BranchID,
			PaidByMethod:      paidByMethod,
			Outstanding:       payments.Outstanding,
			RevenueByCategory: revenueByCategory,
			COGSByCategory:    cogsByCategory,
			DiscountAmount:    header.DiscountAmount,
			TaxAmount:         sale.TaxTotal,
			CreatedBy:         input.ActorID,
		}); err != nil {
			return err
		}

		sale.Status = SaleStatusCompleted
		sale.PaidTotal = payments.Paid
		sale.ChangeTotal = payments.Change
		sale.Outstanding = payments.Outstanding
		sale.CompletedAt = &now
		if err := saleTx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		completed = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "sale completed",
			slog.String("number", completed.Number),
			slog.Float64("total", completed.Total),
			slog.Float64("outstanding", completed.Outstanding))
	}
	s.recordAudit(ctx, input.ActorID, "sale.submit", completed)
	return completed, nil
}

// Cancel discards a draft. Completed sales cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, saleID, actorID int64) (Sale, error) {
	var cancelled Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		saleTx := tx.Sales()
		sale, err := saleTx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusDraft {
			return shared.StatusConflictf("sales: cannot cancel %s sale %s", sale.Status, sale.Number)
		}
		now := s.now()
		sale.Status = SaleStatusCancelled
		sale.CancelledAt = &now
		if err := saleTx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		cancelled = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.recordAudit(ctx, actorID, "sale.cancel", cancelled)
	return cancelled, nil
}

func (s *Service) mutateDraft(ctx context.Context, saleID, actorID int64, action string, mutate func(context.Context, TxRepository, *Sale) error) (Sale, error) {
	var updated Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		saleTx := tx.Sales()
		sale, err := saleTx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusDraft {
			return shared.StatusConflictf("sales: cannot edit %s sale %s", sale.Status, sale.Number)
		}
		if err := mutate(ctx, saleTx, &sale); err != nil {
			return err
		}
		applyTotals(&sale)
		if err := saleTx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		updated = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.recordAudit(ctx, actorID, action, updated)
	return updated, nil
}

// buildItem snapshots product data and normalizes the line arithmetic.
func (s *Service) buildItem(ctx context.Context, saleID int64, input ItemInput) (SaleItem, error) {
	product, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return SaleItem{}, err
	}
	if !product.IsActive {
		return SaleItem{}, shared.Validationf("sales: product %s is inactive", product.SKU)
	}
	unitPrice := input.UnitPrice
	if unitPrice == 0 {
		unitPrice = product.SalePrice
	}
	line := calc.CalculateLine(calc.LineInput{
		Quantity:        input.Qty,
		UnitPrice:       unitPrice,
		DiscountAmount:  input.DiscountAmount,
		DiscountPercent: input.DiscountPercent,
		TaxPercent:      input.TaxPercent,
	})
	if line.Quantity <= 0 {
		return SaleItem{}, shared.Validationf("sales: quantity must be at least 1")
	}
	return SaleItem{
		SaleID:          saleID,
		ProductID:       product.ID,
		VariantID:       input.VariantID,
		SKU:             product.SKU,
		Name:            product.Name,
		Category:        product.Category,
		Qty:             line.Quantity,
		UnitPrice:       line.UnitPrice,
		DiscountAmount:  line.DiscountAbs,
		DiscountPercent: line.DiscountPercent,
		TaxPercent:      input.TaxPercent,
		Gross:           line.Gross,
		DiscountTotal:   line.DiscountAmount,
		TaxAmount:       line.TaxAmount,
		LineTotal:       line.Net,
	}, nil
}

// applyTotals recomputes sale totals. The subtotal sums the rounded line
// nets; the sale-level discount and tax then run through the line calculator
// over that subtotal as if it were a single line. The computed header line
// is returned so submission can carry its discount into the journal entry.
func applyTotals(sale *Sale) calc.Line {
	var discount, tax, subtotal float64
	for _, item := range sale.Items {
		discount += item.DiscountTotal
		tax += item.TaxAmount
		subtotal += item.LineTotal
	}
	header := calc.CalculateLine(calc.LineInput{
		Quantity:        1,
		UnitPrice:       calc.Round2(subtotal),
		DiscountAmount:  sale.DiscountAmount,
		DiscountPercent: sale.DiscountPercent,
		TaxPercent:      sale.TaxPercent,
	})
	sale.Subtotal = calc.Round2(subtotal)
	sale.DiscountTotal = calc.Round2(discount + header.DiscountAmount)
	sale.TaxTotal = calc.Round2(tax + header.TaxAmount)
	sale.Total = header.Net
	return header
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, sale Sale) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: sale.Number,
		Meta: map[string]any{
			"status": string(sale.Status),
			"total":  sale.Total,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
