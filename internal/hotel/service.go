package hotel

import (
	"context"
	"fmt"
	"log/slog"
	"math"
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

// JournalPort posts hotel journals inside an open transaction.
type JournalPort interface {
	PostHotelJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.HotelJournalInput) (journals.JournalEntry, error)
	PostPaymentJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.PaymentJournalInput) (journals.JournalEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates pet-hotel stays. Consumables reduce stock the moment
// they are recorded; checkout posts the invoice with the full total on
// receivables, and payments clear the receivable through their own entries.
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

// Get returns one booking with its children.
func (s *Service) Get(ctx context.Context, id int64) (Booking, error) {
	return s.repo.Get(ctx, id)
}

// List returns bookings matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	return s.repo.List(ctx, filter)
}

// Reserve creates a booking. The room charge is locked in here and never
// recomputed, even if the rate changes later.
func (s *Service) Reserve(ctx context.Context, input ReserveInput) (Booking, error) {
	if input.BranchID <= 0 || input.PetID <= 0 || input.RoomID <= 0 {
		return Booking{}, shared.Validationf("hotel: branch, pet and room required")
	}
	if input.DailyRate <= 0 {
		return Booking{}, shared.Validationf("hotel: daily rate must be positive")
	}
	if !input.CheckOutDate.After(input.CheckInDate) {
		return Booking{}, shared.Validationf("hotel: check-out must follow check-in")
	}
	nights := int(math.Ceil(input.CheckOutDate.Sub(input.CheckInDate).Hours() / 24))
	if nights < 1 {
		nights = 1
	}

	var created Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		existing, err := hotelTx.ListNumbersForDay(ctx, shared.DocNumberPrefix(shared.PrefixBooking, input.CheckInDate))
		if err != nil {
			return err
		}
		booking := Booking{
			Number:       shared.NextDocNumber(shared.PrefixBooking, input.CheckInDate, existing),
			BranchID:     input.BranchID,
			PetID:        input.PetID,
			CustomerID:   input.CustomerID,
			RoomID:       input.RoomID,
			Status:       BookingStatusReserved,
			CheckInDate:  input.CheckInDate,
			CheckOutDate: input.CheckOutDate,
			Nights:       nights,
			DailyRate:    calc.Round2(input.DailyRate),
			RoomCharge:   calc.Round2(float64(nights) * input.DailyRate),
			TaxPercent:   input.TaxPercent,
			Note:         input.Note,
			CreatedBy:    input.CreatedBy,
		}
		recompute(&booking)
		if booking.ID, err = hotelTx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		created = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "booking.reserve", created)
	return created, nil
}

// CheckIn opens the stay.
func (s *Service) CheckIn(ctx context.Context, bookingID, actorID int64) (Booking, error) {
	var checkedIn Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := hotelTx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != BookingStatusReserved {
			return shared.StatusConflictf("hotel: cannot check in %s booking %s", booking.Status, booking.Number)
		}
		now := s.now()
		booking.Status = BookingStatusCheckedIn
		booking.CheckedInAt = &now
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		checkedIn = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, actorID, "booking.check_in", checkedIn)
	return checkedIn, nil
}

// AddService bills one service to an open stay and recomputes the total.
func (s *Service) AddService(ctx context.Context, bookingID int64, input ServiceInput, actorID int64) (Booking, error) {
	var updated Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := s.openBooking(ctx, hotelTx, bookingID)
		if err != nil {
			return err
		}
		product, err := s.products.Get(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.Trackable() {
			return shared.Validationf("hotel: %s is a stocked product, record it as a consumable", product.SKU)
		}
		unitPrice := input.UnitPrice
		if unitPrice == 0 {
			unitPrice = product.SalePrice
		}
		line := calc.CalculateLine(calc.LineInput{Quantity: input.Qty, UnitPrice: unitPrice})
		if line.Quantity <= 0 {
			return shared.Validationf("hotel: quantity must be at least 1")
		}
		service := BookingService{
			BookingID: booking.ID,
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Qty:       line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.Net,
			AddedAt:   s.now(),
		}
		if service.ID, err = hotelTx.InsertService(ctx, service); err != nil {
			return err
		}
		booking.Services = append(booking.Services, service)
		recompute(&booking)
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, actorID, "booking.service_add", updated)
	return updated, nil
}

// AddConsumable records a product consumed during the stay. Stock moves
// immediately; the cost captured here is what checkout will post as COGS.
func (s *Service) AddConsumable(ctx context.Context, bookingID int64, input ConsumableInput, actorID int64) (Booking, error) {
	var updated Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := s.openBooking(ctx, hotelTx, bookingID)
		if err != nil {
			return err
		}
		product, err := s.products.Get(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !product.Trackable() {
			return shared.Validationf("hotel: %s is not a stocked product", product.SKU)
		}
		unitPrice := input.UnitPrice
		if unitPrice == 0 {
			unitPrice = product.SalePrice
		}
		line := calc.CalculateLine(calc.LineInput{Quantity: input.Qty, UnitPrice: unitPrice})
		if line.Quantity <= 0 {
			return shared.Validationf("hotel: quantity must be at least 1")
		}

		res, err := s.stock.ApplyDecrease(ctx, tx.Inventory(), product, inventory.DecreaseInput{
			BranchID:  booking.BranchID,
			ProductID: product.ID,
			VariantID: input.VariantID,
			Qty:       line.Quantity,
			Type:      inventory.MovementHotelConsumption,
			RefType:   "HOTEL",
			RefID:     booking.Number,
			ActorID:   actorID,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", products.DisplayName(ctx, s.products, product, input.VariantID), err)
		}

		consumable := BookingConsumable{
			BookingID:  booking.ID,
			ProductID:  product.ID,
			VariantID:  input.VariantID,
			SKU:        product.SKU,
			Name:       product.Name,
			Category:   product.Category,
			Qty:        line.Quantity,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.Net,
			COGS:       res.COGS,
			ConsumedAt: s.now(),
		}
		if consumable.ID, err = hotelTx.InsertConsumable(ctx, consumable); err != nil {
			return err
		}
		booking.Consumables = append(booking.Consumables, consumable)
		recompute(&booking)
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, actorID, "booking.consumable_add", updated)
	return updated, nil
}

// SetDiscount adjusts the booking-level discount while the stay is open.
func (s *Service) SetDiscount(ctx context.Context, bookingID int64, input DiscountInput, actorID int64) (Booking, error) {
	var updated Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := s.openBooking(ctx, hotelTx, bookingID)
		if err != nil {
			return err
		}
		booking.DiscountAmount = calc.Round2(input.Amount)
		booking.DiscountPercent = input.Percent
		recompute(&booking)
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, actorID, "booking.discount_set", updated)
	return updated, nil
}

// Checkout closes the stay and posts the invoice entry: the full total
// debits receivables regardless of payments already promised. Consumable
// costs recorded during the stay post as COGS here.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Booking, error) {
	var checkedOut Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := hotelTx.GetBookingForUpdate(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != BookingStatusCheckedIn {
			return shared.StatusConflictf("hotel: cannot check out %s booking %s", booking.Status, booking.Number)
		}
		recompute(&booking)

		revenueByCategory := map[string]float64{}
		cogsByCategory := map[string]float64{}
		for _, c := range booking.Consumables {
			revenueByCategory[c.Category] = calc.Round2(revenueByCategory[c.Category] + c.LineTotal)
			cogsByCategory[c.Category] = calc.Round2(cogsByCategory[c.Category] + c.COGS)
		}

		if _, err := s.journal.PostHotelJournalInTx(ctx, tx.Journals(), journals.HotelJournalInput{
			BookingID:         strconv.FormatInt(booking.ID, 10),
			Number:            booking.Number,
			Date:              s.now(),
			BranchID:          &booking.BranchID,
			Total:             booking.Total,
			RoomRevenue:       booking.RoomCharge,
			ServiceRevenue:    booking.ServiceTotal,
			RevenueByCategory: revenueByCategory,
			DiscountAmount:    booking.DiscountTotal,
			TaxAmount:         booking.TaxTotal,
			COGSByCategory:    cogsByCategory,
			CreatedBy:         input.ActorID,
		}); err != nil {
			return err
		}

		now := s.now()
		booking.Status = BookingStatusCheckedOut
		booking.CheckedOutAt = &now
		booking.Outstanding = calc.Round2(booking.Total - booking.PaidTotal)
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		checkedOut = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "booking checked out",
			slog.String("number", checkedOut.Number),
			slog.Float64("total", checkedOut.Total))
	}
	s.recordAudit(ctx, input.ActorID, "booking.checkout", checkedOut)
	return checkedOut, nil
}

// RecordPayment settles part of the booking's receivable after checkout.
// Cash above the amount owed comes back as change; other methods cannot
// exceed it.
func (s *Service) RecordPayment(ctx context.Context, input PaymentRecordInput) (Booking, error) {
	var updated Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := hotelTx.GetBookingForUpdate(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != BookingStatusCheckedOut {
			return shared.StatusConflictf("hotel: payments settle only after checkout")
		}
		if booking.Outstanding <= 0 {
			return shared.StatusConflictf("hotel: booking %s is fully paid", booking.Number)
		}

		result, err := finance.NormalizePayments(booking.Outstanding, []finance.PaymentInput{input.Payment})
		if err != nil {
			return err
		}
		now := s.now()
		for _, p := range result.Payments {
			if err := hotelTx.InsertPayment(ctx, BookingPayment{
				BookingID: booking.ID,
				Method:    p.Method,
				Amount:    p.Amount,
				Tendered:  p.Tendered,
				Reference: p.Reference,
				PaidAt:    now,
			}); err != nil {
				return err
			}
		}

		// Cumulative paid amount keys the entry so every settlement gets
		// its own journal source.
		if _, err := s.journal.PostPaymentJournalInTx(ctx, tx.Journals(), journals.PaymentJournalInput{
			PaymentID: fmt.Sprintf("%d/%s", booking.ID, strconv.FormatFloat(booking.PaidTotal+result.Paid, 'f', 2, 64)),
			RefNumber: booking.Number,
			Date:      now,
			BranchID:  &booking.BranchID,
			Method:    input.Payment.Method,
			Amount:    result.Paid,
			CreatedBy: input.ActorID,
		}); err != nil {
			return err
		}

		booking.PaidTotal = calc.Round2(booking.PaidTotal + result.Paid)
		booking.Outstanding = calc.Round2(booking.Total - booking.PaidTotal)
		if booking.Outstanding < 0 {
			booking.Outstanding = 0
		}
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, input.ActorID, "booking.payment", updated)
	return updated, nil
}

// Cancel discards a reservation before check-in.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID int64) (Booking, error) {
	var cancelled Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		hotelTx := tx.Hotel()
		booking, err := hotelTx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != BookingStatusReserved {
			return shared.StatusConflictf("hotel: cannot cancel %s booking %s", booking.Status, booking.Number)
		}
		now := s.now()
		booking.Status = BookingStatusCancelled
		booking.CancelledAt = &now
		if err := hotelTx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		cancelled = booking
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.recordAudit(ctx, actorID, "booking.cancel", cancelled)
	return cancelled, nil
}

func (s *Service) openBooking(ctx context.Context, hotelTx TxRepository, bookingID int64) (Booking, error) {
	booking, err := hotelTx.GetBookingForUpdate(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if booking.Status != BookingStatusCheckedIn {
		return Booking{}, shared.StatusConflictf("hotel: booking %s is not an open stay", booking.Number)
	}
	return booking, nil
}

// recompute rebuilds the booking total from its three charge groups, then
// applies the absolute discount, the percent discount on the remainder, and
// tax on the discounted net, in that order.
func recompute(booking *Booking) {
	var services, consumables float64
	for _, s := range booking.Services {
		services += s.LineTotal
	}
	for _, c := range booking.Consumables {
		consumables += c.LineTotal
	}
	booking.ServiceTotal = calc.Round2(services)
	booking.ConsumableTotal = calc.Round2(consumables)

	gross := calc.Round2(booking.RoomCharge + booking.ServiceTotal + booking.ConsumableTotal)
	abs := calc.Round2(booking.DiscountAmount)
	percentAmount := calc.Round2(math.Max(0, gross-abs) * booking.DiscountPercent / 100)
	booking.DiscountTotal = calc.Round2(abs + percentAmount)
	netBeforeTax := math.Max(0, calc.Round2(gross-booking.DiscountTotal))
	booking.TaxTotal = calc.Round2(netBeforeTax * booking.TaxPercent / 100)
	booking.Total = calc.Round2(netBeforeTax + booking.TaxTotal)
	booking.Outstanding = calc.Round2(booking.Total - booking.PaidTotal)
	if booking.Outstanding < 0 {
		booking.Outstanding = 0
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, booking Booking) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "hotel_booking",
		EntityID: booking.Number,
		Meta: map[string]any{
			"status": string(booking.Status),
			"total":  booking.Total,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
