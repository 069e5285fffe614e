package hotel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/finance"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/masterdata/products"
	"github.com/pawsuite/pawsuite/internal/shared"
)

type memRepo struct {
	bookings map[int64]*Booking
	nextID   int64
	numbers  []string
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: map[int64]*Booking{}}
}

type memTx struct{ repo *memRepo }

func (t memTx) Hotel() TxRepository               { return t.repo }
func (t memTx) Inventory() inventory.TxRepository { return nil }
func (t memTx) Journals() journals.TxRepository   { return nil }

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	snapshot := map[int64]*Booking{}
	for id, booking := range m.bookings {
		clone := *booking
		clone.Services = append([]BookingService(nil), booking.Services...)
		clone.Consumables = append([]BookingConsumable(nil), booking.Consumables...)
		clone.Payments = append([]BookingPayment(nil), booking.Payments...)
		snapshot[id] = &clone
	}
	nextID, numbers := m.nextID, append([]string(nil), m.numbers...)
	if err := fn(ctx, memTx{repo: m}); err != nil {
		m.bookings, m.nextID, m.numbers = snapshot, nextID, numbers
		return err
	}
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Booking, error) {
	booking, ok := m.bookings[id]
	if !ok {
		return Booking{}, shared.NotFoundf("booking %d", id)
	}
	// Copies must not alias the stored slices, same as a real row scan.
	clone := *booking
	clone.Services = append([]BookingService(nil), booking.Services...)
	clone.Consumables = append([]BookingConsumable(nil), booking.Consumables...)
	clone.Payments = append([]BookingPayment(nil), booking.Payments...)
	return clone, nil
}

func (m *memRepo) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	out := []Booking{}
	for _, booking := range m.bookings {
		out = append(out, *booking)
	}
	return out, nil
}

func (m *memRepo) InsertBooking(ctx context.Context, booking Booking) (int64, error) {
	m.nextID++
	booking.ID = m.nextID
	m.bookings[booking.ID] = &booking
	m.numbers = append(m.numbers, booking.Number)
	return booking.ID, nil
}

func (m *memRepo) GetBookingForUpdate(ctx context.Context, id int64) (Booking, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) UpdateBooking(ctx context.Context, booking Booking) error {
	stored, ok := m.bookings[booking.ID]
	if !ok {
		return shared.NotFoundf("booking %d", booking.ID)
	}
	services, consumables, payments := stored.Services, stored.Consumables, stored.Payments
	*stored = booking
	stored.Services, stored.Consumables, stored.Payments = services, consumables, payments
	return nil
}

func (m *memRepo) InsertService(ctx context.Context, service BookingService) (int64, error) {
	m.nextID++
	service.ID = m.nextID
	m.bookings[service.BookingID].Services = append(m.bookings[service.BookingID].Services, service)
	return service.ID, nil
}

func (m *memRepo) InsertConsumable(ctx context.Context, consumable BookingConsumable) (int64, error) {
	m.nextID++
	consumable.ID = m.nextID
	m.bookings[consumable.BookingID].Consumables = append(m.bookings[consumable.BookingID].Consumables, consumable)
	return consumable.ID, nil
}

func (m *memRepo) InsertPayment(ctx context.Context, payment BookingPayment) error {
	m.bookings[payment.BookingID].Payments = append(m.bookings[payment.BookingID].Payments, payment)
	return nil
}

func (m *memRepo) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	out := []string{}
	for _, number := range m.numbers {
		if len(number) >= len(prefix) && number[:len(prefix)] == prefix {
			out = append(out, number)
		}
	}
	return out, nil
}

type stubProducts struct {
	byID     map[int64]products.Product
	variants map[int64]products.Variant
}

func (s *stubProducts) Get(ctx context.Context, id int64) (products.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return products.Product{}, shared.NotFoundf("product %d", id)
	}
	return p, nil
}

func (s *stubProducts) GetVariant(ctx context.Context, id int64) (products.Variant, error) {
	v, ok := s.variants[id]
	if !ok {
		return products.Variant{}, shared.NotFoundf("product variant %d", id)
	}
	return v, nil
}

type stubStock struct {
	cogsPerUnit map[int64]float64
	calls       []inventory.DecreaseInput
	err         error
}

func (s *stubStock) ApplyDecrease(ctx context.Context, tx inventory.TxRepository, product products.Product, input inventory.DecreaseInput) (inventory.DecreaseResult, error) {
	if s.err != nil {
		return inventory.DecreaseResult{}, s.err
	}
	s.calls = append(s.calls, input)
	unit := s.cogsPerUnit[input.ProductID]
	return inventory.DecreaseResult{COGS: unit * input.Qty, AvgCost: unit}, nil
}

type stubJournal struct {
	checkouts []journals.HotelJournalInput
	payments  []journals.PaymentJournalInput
}

func (s *stubJournal) PostHotelJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.HotelJournalInput) (journals.JournalEntry, error) {
	s.checkouts = append(s.checkouts, in)
	return journals.JournalEntry{ID: int64(len(s.checkouts)), Status: journals.EntryStatusPosted}, nil
}

func (s *stubJournal) PostPaymentJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.PaymentJournalInput) (journals.JournalEntry, error) {
	s.payments = append(s.payments, in)
	return journals.JournalEntry{ID: int64(100 + len(s.payments)), Status: journals.EntryStatusPosted}, nil
}

func fixtureProducts() *stubProducts {
	return &stubProducts{byID: map[int64]products.Product{
		1: {ID: 1, SKU: "GROOM-FULL", Name: "Full Grooming", Category: "Grooming", Type: products.ProductTypeService, SalePrice: 50, IsActive: true},
		2: {ID: 2, SKU: "SNACK-CHK", Name: "Chicken Snack", Category: "Pet Food", Type: products.ProductTypeGoods, SalePrice: 30, IsActive: true},
	}}
}

func newTestHotel(t *testing.T) (*Service, *memRepo, *stubStock, *stubJournal) {
	t.Helper()
	repo := newMemRepo()
	stock := &stubStock{cogsPerUnit: map[int64]float64{2: 18}}
	journal := &stubJournal{}
	svc := NewService(repo, fixtureProducts(), stock, journal, nil, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC) })
	return svc, repo, stock, journal
}

func reservedBooking(t *testing.T, svc *Service) Booking {
	t.Helper()
	booking, err := svc.Reserve(context.Background(), ReserveInput{
		BranchID:     1,
		PetID:        9,
		RoomID:       4,
		CheckInDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		DailyRate:    100,
		TaxPercent:   10,
		CreatedBy:    5,
	})
	require.NoError(t, err)
	return booking
}

func openStay(t *testing.T, svc *Service) Booking {
	t.Helper()
	booking := reservedBooking(t, svc)
	booking, err := svc.CheckIn(context.Background(), booking.ID, 5)
	require.NoError(t, err)
	return booking
}

func TestReserveLocksRoomCharge(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	booking := reservedBooking(t, svc)

	require.Equal(t, "HTL-20260314-001", booking.Number)
	require.Equal(t, BookingStatusReserved, booking.Status)
	require.Equal(t, 3, booking.Nights)
	require.Equal(t, 300.0, booking.RoomCharge)
	require.Equal(t, 30.0, booking.TaxTotal)
	require.Equal(t, 330.0, booking.Total)
}

func TestReserveRejectsInvertedDates(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	_, err := svc.Reserve(context.Background(), ReserveInput{
		BranchID:     1,
		PetID:        9,
		RoomID:       4,
		CheckInDate:  time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		DailyRate:    100,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestChargesRequireOpenStay(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	ctx := context.Background()
	booking := reservedBooking(t, svc)

	_, err := svc.AddService(ctx, booking.ID, ServiceInput{ProductID: 1, Qty: 1}, 5)
	require.ErrorIs(t, err, shared.ErrStatusConflict)

	_, err = svc.AddConsumable(ctx, booking.ID, ConsumableInput{ProductID: 2, Qty: 1}, 5)
	require.ErrorIs(t, err, shared.ErrStatusConflict)

	_, err = svc.Checkout(ctx, CheckoutInput{BookingID: booking.ID, ActorID: 5})
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestServiceAndConsumableKindsEnforced(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)

	_, err := svc.AddService(ctx, booking.ID, ServiceInput{ProductID: 2, Qty: 1}, 5)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddConsumable(ctx, booking.ID, ConsumableInput{ProductID: 1, Qty: 1}, 5)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConsumableMovesStockImmediately(t *testing.T) {
	svc, _, stock, journal := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)

	updated, err := svc.AddConsumable(ctx, booking.ID, ConsumableInput{ProductID: 2, Qty: 2}, 5)
	require.NoError(t, err)
	require.Equal(t, 60.0, updated.ConsumableTotal)
	require.Equal(t, 36.0, updated.Consumables[0].COGS)

	require.Len(t, stock.calls, 1)
	require.Equal(t, inventory.MovementHotelConsumption, stock.calls[0].Type)
	require.Equal(t, "HOTEL", stock.calls[0].RefType)
	require.Equal(t, booking.Number, stock.calls[0].RefID)

	// Consumption itself posts nothing; the cost waits for checkout.
	require.Empty(t, journal.checkouts)
}

func TestConsumableRollsBackOnStockFailure(t *testing.T) {
	svc, repo, stock, _ := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)

	stock.err = inventory.ErrInsufficientStock
	_, err := svc.AddConsumable(ctx, booking.ID, ConsumableInput{ProductID: 2, Qty: 2}, 5)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Contains(t, err.Error(), "Chicken Snack")

	stored, err := repo.Get(ctx, booking.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Consumables)
	require.Equal(t, 330.0, stored.Total)
}

func TestCheckoutPostsFullTotalToReceivable(t *testing.T) {
	svc, _, _, journal := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)

	_, err := svc.AddService(ctx, booking.ID, ServiceInput{ProductID: 1, Qty: 1}, 5)
	require.NoError(t, err)
	_, err = svc.AddConsumable(ctx, booking.ID, ConsumableInput{ProductID: 2, Qty: 2}, 5)
	require.NoError(t, err)
	_, err = svc.SetDiscount(ctx, booking.ID, DiscountInput{Amount: 10}, 5)
	require.NoError(t, err)

	// 300 room + 50 services + 60 consumables - 10 discount = 400, tax 40.
	checkedOut, err := svc.Checkout(ctx, CheckoutInput{BookingID: booking.ID, ActorID: 5})
	require.NoError(t, err)
	require.Equal(t, BookingStatusCheckedOut, checkedOut.Status)
	require.Equal(t, 440.0, checkedOut.Total)
	require.Equal(t, 440.0, checkedOut.Outstanding)

	require.Len(t, journal.checkouts, 1)
	entry := journal.checkouts[0]
	require.Equal(t, 440.0, entry.Total)
	require.Equal(t, 300.0, entry.RoomRevenue)
	require.Equal(t, 50.0, entry.ServiceRevenue)
	require.Equal(t, 60.0, entry.RevenueByCategory["Pet Food"])
	require.Equal(t, 10.0, entry.DiscountAmount)
	require.Equal(t, 40.0, entry.TaxAmount)
	require.Equal(t, 36.0, entry.COGSByCategory["Pet Food"])

	_, err = svc.Checkout(ctx, CheckoutInput{BookingID: booking.ID, ActorID: 5})
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestCashPaymentReturnsChange(t *testing.T) {
	svc, repo, _, journal := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)
	_, err := svc.Checkout(ctx, CheckoutInput{BookingID: booking.ID, ActorID: 5})
	require.NoError(t, err)

	paid, err := svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodCash, Amount: 400},
		ActorID:   5,
	})
	require.NoError(t, err)
	require.Equal(t, 330.0, paid.PaidTotal)
	require.Equal(t, 0.0, paid.Outstanding)

	require.Len(t, journal.payments, 1)
	require.Equal(t, 330.0, journal.payments[0].Amount)
	require.Equal(t, booking.Number, journal.payments[0].RefNumber)

	stored, err := repo.Get(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	require.Equal(t, 330.0, stored.Payments[0].Amount)
	require.Equal(t, 400.0, stored.Payments[0].Tendered)
}

func TestPartialPaymentsSettleSeparately(t *testing.T) {
	svc, _, _, journal := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)
	_, err := svc.Checkout(ctx, CheckoutInput{BookingID: booking.ID, ActorID: 5})
	require.NoError(t, err)

	paid, err := svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodTransfer, Amount: 200},
		ActorID:   5,
	})
	require.NoError(t, err)
	require.Equal(t, 130.0, paid.Outstanding)

	// A non-cash payment above the remainder is rejected outright.
	_, err = svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodTransfer, Amount: 200},
		ActorID:   5,
	})
	require.ErrorIs(t, err, shared.ErrPaymentExceedsTotal)

	paid, err = svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodTransfer, Amount: 130},
		ActorID:   5,
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, paid.Outstanding)

	require.Len(t, journal.payments, 2)
	require.NotEqual(t, journal.payments[0].PaymentID, journal.payments[1].PaymentID)

	_, err = svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodCash, Amount: 10},
		ActorID:   5,
	})
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestPaymentRequiresCheckout(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	ctx := context.Background()
	booking := openStay(t, svc)

	_, err := svc.RecordPayment(ctx, PaymentRecordInput{
		BookingID: booking.ID,
		Payment:   finance.PaymentInput{Method: finance.MethodCash, Amount: 100},
		ActorID:   5,
	})
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestCancelOnlyBeforeCheckIn(t *testing.T) {
	svc, _, _, _ := newTestHotel(t)
	ctx := context.Background()

	booking := reservedBooking(t, svc)
	cancelled, err := svc.Cancel(ctx, booking.ID, 5)
	require.NoError(t, err)
	require.Equal(t, BookingStatusCancelled, cancelled.Status)

	open := openStay(t, svc)
	_, err = svc.Cancel(ctx, open.ID, 5)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}
