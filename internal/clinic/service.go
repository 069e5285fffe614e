package clinic

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

// JournalPort posts clinic journals inside an open transaction.
type JournalPort interface {
	PostClinicJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.ClinicJournalInput) (journals.JournalEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates clinic visits. Completion settles payments, dispenses
// non-prescription products and posts the journal entry atomically.
// Prescription lines hold their stock until PickupPrescription.
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

// Get returns one appointment with items and payments.
func (s *Service) Get(ctx context.Context, id int64) (Appointment, error) {
	return s.repo.Get(ctx, id)
}

// List returns appointments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.repo.List(ctx, filter)
}

// Schedule books a new visit, optionally seeded with items.
func (s *Service) Schedule(ctx context.Context, input ScheduleInput) (Appointment, error) {
	if input.BranchID <= 0 || input.PetID <= 0 || input.VetID <= 0 {
		return Appointment{}, shared.Validationf("clinic: branch, pet and vet required")
	}
	if input.VisitDate.IsZero() {
		input.VisitDate = s.now()
	}

	var created Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		clinicTx := tx.Clinic()
		existing, err := clinicTx.ListNumbersForDay(ctx, shared.DocNumberPrefix(shared.PrefixAppointment, input.VisitDate))
		if err != nil {
			return err
		}
		appt := Appointment{
			Number:          shared.NextDocNumber(shared.PrefixAppointment, input.VisitDate, existing),
			BranchID:        input.BranchID,
			PetID:           input.PetID,
			CustomerID:      input.CustomerID,
			VetID:           input.VetID,
			Status:          AppointmentStatusScheduled,
			VisitDate:       input.VisitDate,
			Diagnosis:       input.Diagnosis,
			DiscountAmount:  calc.Round2(input.DiscountAmount),
			DiscountPercent: input.DiscountPercent,
			TaxPercent:      input.TaxPercent,
			CreatedBy:       input.CreatedBy,
		}
		if appt.ID, err = clinicTx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		for _, in := range input.Items {
			item, err := s.buildItem(ctx, appt.ID, in)
			if err != nil {
				return err
			}
			if item.ID, err = clinicTx.InsertItem(ctx, item); err != nil {
				return err
			}
			appt.Items = append(appt.Items, item)
		}
		applyTotals(&appt)
		if err := clinicTx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "appointment.schedule", created)
	return created, nil
}

// AddItem appends a billed line to a scheduled visit and recomputes totals.
func (s *Service) AddItem(ctx context.Context, appointmentID int64, input ItemInput, actorID int64) (Appointment, error) {
	return s.mutateScheduled(ctx, appointmentID, actorID, "appointment.item_add", func(ctx context.Context, clinicTx TxRepository, appt *Appointment) error {
		item, err := s.buildItem(ctx, appt.ID, input)
		if err != nil {
			return err
		}
		if item.ID, err = clinicTx.InsertItem(ctx, item); err != nil {
			return err
		}
		appt.Items = append(appt.Items, item)
		return nil
	})
}

// RemoveItem drops a line from a scheduled visit and recomputes totals.
func (s *Service) RemoveItem(ctx context.Context, appointmentID, itemID int64, actorID int64) (Appointment, error) {
	return s.mutateScheduled(ctx, appointmentID, actorID, "appointment.item_remove", func(ctx context.Context, clinicTx TxRepository, appt *Appointment) error {
		if err := clinicTx.DeleteItem(ctx, appt.ID, itemID); err != nil {
			return err
		}
		kept := appt.Items[:0]
		for _, item := range appt.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		appt.Items = kept
		return nil
	})
}

// SetDiscount adjusts the visit-level discount and tax while the appointment
// is still scheduled, then recomputes the totals.
func (s *Service) SetDiscount(ctx context.Context, appointmentID int64, input DiscountInput, actorID int64) (Appointment, error) {
	return s.mutateScheduled(ctx, appointmentID, actorID, "appointment.discount_set", func(ctx context.Context, clinicTx TxRepository, appt *Appointment) error {
		appt.DiscountAmount = calc.Round2(input.Amount)
		appt.DiscountPercent = input.Percent
		appt.TaxPercent = input.TaxPercent
		return nil
	})
}

// Complete finalizes the visit: payments settle, non-prescription product
// lines dispense stock at weighted average cost, and the clinic journal
// posts, all in one transaction. Revenue for prescription lines is
// recognized now; their stock and cost follow at pickup.
func (s *Service) Complete(ctx context.Context, input CompleteInput) (Appointment, error) {
	var completed Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		clinicTx := tx.Clinic()
		appt, err := clinicTx.GetAppointmentForUpdate(ctx, input.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status != AppointmentStatusScheduled {
			return shared.StatusConflictf("clinic: cannot complete %s appointment %s", appt.Status, appt.Number)
		}
		if len(appt.Items) == 0 {
			return fmt.Errorf("%w: appointment %s", shared.ErrNoItems, appt.Number)
		}
		if input.Diagnosis != "" {
			appt.Diagnosis = input.Diagnosis
		}
		header := applyTotals(&appt)

		payments, err := finance.NormalizePayments(appt.Total, input.Payments)
		if err != nil {
			return err
		}

		invTx := tx.Inventory()
		var serviceRevenue float64
		revenueByCategory := map[string]float64{}
		cogsByCategory := map[string]float64{}
		for i, item := range appt.Items {
			netBeforeTax := calc.Round2(item.LineTotal - item.TaxAmount)
			if item.Kind == ItemKindService {
				serviceRevenue = calc.Round2(serviceRevenue + netBeforeTax)
				continue
			}
			revenueByCategory[item.Category] = calc.Round2(revenueByCategory[item.Category] + netBeforeTax)
			if item.IsPrescription {
				continue
			}
			product, err := s.products.Get(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !product.Trackable() {
				continue
			}
			res, err := s.stock.ApplyDecrease(ctx, invTx, product, inventory.DecreaseInput{
				BranchID:  appt.BranchID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Qty:       item.Qty,
				Type:      inventory.MovementSaleOut,
				RefType:   "CLINIC",
				RefID:     appt.Number,
				ActorID:   input.ActorID,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", products.DisplayName(ctx, s.products, product, item.VariantID), err)
			}
			appt.Items[i].COGS = res.COGS
			if err := clinicTx.UpdateItem(ctx, appt.Items[i]); err != nil {
				return err
			}
			cogsByCategory[item.Category] = calc.Round2(cogsByCategory[item.Category] + res.COGS)
		}

		paidByMethod := map[string]float64{}
		now := s.now()
		for _, p := range payments.Payments {
			paidByMethod[p.Method] = calc.Round2(paidByMethod[p.Method] + p.Amount)
			if err := clinicTx.InsertPayment(ctx, AppointmentPayment{
				AppointmentID: appt.ID,
				Method:        p.Method,
				Amount:        p.Amount,
				Tendered:      p.Tendered,
				Reference:     p.Reference,
				PaidAt:        now,
			}); err != nil {
				return err
			}
		}

		if _, err := s.journal.PostClinicJournalInTx(ctx, tx.Journals(), journals.ClinicJournalInput{
			AppointmentID:     strconv.FormatInt(appt.ID, 10),
			Number:            appt.Number,
			Date:              appt.VisitDate,
			BranchID:          &appt.BranchID,
			ServiceRevenue:    serviceRevenue,
			RevenueByCategory: revenueByCategory,
			COGSByCategory:    cogsByCategory,
			DiscountAmount:    header.DiscountAmount,
			TaxAmount:         appt.TaxTotal,
			PaidByMethod:      paidByMethod,
			Outstanding:       payments.Outstanding,
			CreatedBy:         input.ActorID,
		}); err != nil {
			return err
		}

		appt.Status = AppointmentStatusCompleted
		appt.PaidTotal = payments.Paid
		appt.ChangeTotal = payments.Change
		appt.Outstanding = payments.Outstanding
		appt.CompletedAt = &now
		if err := clinicTx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}
		completed = appt
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "appointment completed",
			slog.String("number", completed.Number),
			slog.Float64("total", completed.Total))
	}
	s.recordAudit(ctx, input.ActorID, "appointment.complete", completed)
	return completed, nil
}

// PickupPrescription dispenses one prescription line after the visit was
// completed. Stock moves now, at the current weighted average cost, and the
// cost entry posts against the same appointment.
func (s *Service) PickupPrescription(ctx context.Context, appointmentID, itemID, actorID int64) (AppointmentItem, error) {
	var dispensed AppointmentItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		clinicTx := tx.Clinic()
		appt, err := clinicTx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != AppointmentStatusCompleted {
			return shared.StatusConflictf("clinic: prescriptions dispense only from completed appointments")
		}
		item := findItem(appt.Items, itemID)
		if item == nil {
			return shared.NotFoundf("appointment item %d", itemID)
		}
		if !item.IsPrescription || item.Kind != ItemKindProduct {
			return shared.Validationf("clinic: item %d is not a prescription", itemID)
		}
		if item.PickedUpAt != nil {
			return shared.StatusConflictf("clinic: prescription %d already picked up", itemID)
		}

		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return err
		}
		res, err := s.stock.ApplyDecrease(ctx, tx.Inventory(), product, inventory.DecreaseInput{
			BranchID:  appt.BranchID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Qty:       item.Qty,
			Type:      inventory.MovementSaleOut,
			RefType:   "CLINIC",
			RefID:     appt.Number,
			ActorID:   actorID,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", products.DisplayName(ctx, s.products, product, item.VariantID), err)
		}

		now := s.now()
		item.COGS = res.COGS
		item.PickedUpAt = &now
		if err := clinicTx.UpdateItem(ctx, *item); err != nil {
			return err
		}

		// Revenue was recognized at completion. A zero-cost dispense has
		// no GL effect, so only post when there is cost to move.
		if res.COGS > 0 {
			if _, err := s.journal.PostClinicJournalInTx(ctx, tx.Journals(), journals.ClinicJournalInput{
				AppointmentID:  fmt.Sprintf("%d/pickup/%d", appt.ID, item.ID),
				Number:         appt.Number,
				Date:           now,
				BranchID:       &appt.BranchID,
				COGSByCategory: map[string]float64{item.Category: res.COGS},
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
		}
		dispensed = *item
		return nil
	})
	if err != nil {
		return AppointmentItem{}, err
	}
	s.recordAuditItem(ctx, actorID, "appointment.prescription_pickup", dispensed)
	return dispensed, nil
}

// Cancel discards a scheduled visit.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorID int64) (Appointment, error) {
	var cancelled Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		clinicTx := tx.Clinic()
		appt, err := clinicTx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != AppointmentStatusScheduled {
			return shared.StatusConflictf("clinic: cannot cancel %s appointment %s", appt.Status, appt.Number)
		}
		now := s.now()
		appt.Status = AppointmentStatusCancelled
		appt.CancelledAt = &now
		if err := clinicTx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}
		cancelled = appt
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	s.recordAudit(ctx, actorID, "appointment.cancel", cancelled)
	return cancelled, nil
}

func (s *Service) mutateScheduled(ctx context.Context, appointmentID, actorID int64, action string, mutate func(context.Context, TxRepository, *Appointment) error) (Appointment, error) {
	var updated Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		clinicTx := tx.Clinic()
		appt, err := clinicTx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != AppointmentStatusScheduled {
			return shared.StatusConflictf("clinic: cannot edit %s appointment %s", appt.Status, appt.Number)
		}
		if err := mutate(ctx, clinicTx, &appt); err != nil {
			return err
		}
		applyTotals(&appt)
		if err := clinicTx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	s.recordAudit(ctx, actorID, action, updated)
	return updated, nil
}

func (s *Service) buildItem(ctx context.Context, appointmentID int64, input ItemInput) (AppointmentItem, error) {
	product, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return AppointmentItem{}, err
	}
	if !product.IsActive {
		return AppointmentItem{}, shared.Validationf("clinic: product %s is inactive", product.SKU)
	}
	kind := ItemKindProduct
	if !product.Trackable() {
		kind = ItemKindService
	}
	if input.IsPrescription && kind != ItemKindProduct {
		return AppointmentItem{}, shared.Validationf("clinic: only products can be prescriptions")
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
		return AppointmentItem{}, shared.Validationf("clinic: quantity must be at least 1")
	}
	return AppointmentItem{
		AppointmentID:   appointmentID,
		Kind:            kind,
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
		IsPrescription:  input.IsPrescription,
	}, nil
}

// applyTotals recomputes visit totals. The subtotal sums the rounded line
// nets; the visit-level discount and tax then run through the line calculator
// over that subtotal as if it were a single line. The computed header line is
// returned so completion can carry its discount into the journal entry.
func applyTotals(appt *Appointment) calc.Line {
	var discount, tax, subtotal float64
	for _, item := range appt.Items {
		discount += item.DiscountTotal
		tax += item.TaxAmount
		subtotal += item.LineTotal
	}
	header := calc.CalculateLine(calc.LineInput{
		Quantity:        1,
		UnitPrice:       calc.Round2(subtotal),
		DiscountAmount:  appt.DiscountAmount,
		DiscountPercent: appt.DiscountPercent,
		TaxPercent:      appt.TaxPercent,
	})
	appt.Subtotal = calc.Round2(subtotal)
	appt.DiscountTotal = calc.Round2(discount + header.DiscountAmount)
	appt.TaxTotal = calc.Round2(tax + header.TaxAmount)
	appt.Total = header.Net
	return header
}

func findItem(items []AppointmentItem, id int64) *AppointmentItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, appt Appointment) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "clinic_appointment",
		EntityID: appt.Number,
		Meta: map[string]any{
			"status": string(appt.Status),
			"total":  appt.Total,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) recordAuditItem(ctx context.Context, actorID int64, action string, item AppointmentItem) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "clinic_appointment_item",
		EntityID: strconv.FormatInt(item.ID, 10),
		Meta: map[string]any{
			"sku": item.SKU,
			"qty": item.Qty,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
