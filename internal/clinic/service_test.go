package clinic

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
	appts   map[int64]*Appointment
	nextID  int64
	numbers []string
}

func newMemRepo() *memRepo {
	return &memRepo{appts: map[int64]*Appointment{}}
}

type memTx struct{ repo *memRepo }

func (t memTx) Clinic() TxRepository              { return t.repo }
func (t memTx) Inventory() inventory.TxRepository { return nil }
func (t memTx) Journals() journals.TxRepository   { return nil }

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	snapshot := map[int64]*Appointment{}
	for id, appt := range m.appts {
		clone := *appt
		clone.Items = append([]AppointmentItem(nil), appt.Items...)
		clone.Payments = append([]AppointmentPayment(nil), appt.Payments...)
		snapshot[id] = &clone
	}
	nextID, numbers := m.nextID, append([]string(nil), m.numbers...)
	if err := fn(ctx, memTx{repo: m}); err != nil {
		m.appts, m.nextID, m.numbers = snapshot, nextID, numbers
		return err
	}
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Appointment, error) {
	appt, ok := m.appts[id]
	if !ok {
		return Appointment{}, shared.NotFoundf("appointment %d", id)
	}
	// Copies must not alias the stored slices, same as a real row scan.
	clone := *appt
	clone.Items = append([]AppointmentItem(nil), appt.Items...)
	clone.Payments = append([]AppointmentPayment(nil), appt.Payments...)
	return clone, nil
}

func (m *memRepo) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	out := []Appointment{}
	for _, appt := range m.appts {
		out = append(out, *appt)
	}
	return out, nil
}

func (m *memRepo) InsertAppointment(ctx context.Context, appt Appointment) (int64, error) {
	m.nextID++
	appt.ID = m.nextID
	m.appts[appt.ID] = &appt
	m.numbers = append(m.numbers, appt.Number)
	return appt.ID, nil
}

func (m *memRepo) GetAppointmentForUpdate(ctx context.Context, id int64) (Appointment, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) UpdateAppointment(ctx context.Context, appt Appointment) error {
	stored, ok := m.appts[appt.ID]
	if !ok {
		return shared.NotFoundf("appointment %d", appt.ID)
	}
	items, payments := stored.Items, stored.Payments
	*stored = appt
	stored.Items, stored.Payments = items, payments
	return nil
}

func (m *memRepo) InsertItem(ctx context.Context, item AppointmentItem) (int64, error) {
	m.nextID++
	item.ID = m.nextID
	m.appts[item.AppointmentID].Items = append(m.appts[item.AppointmentID].Items, item)
	return item.ID, nil
}

func (m *memRepo) UpdateItem(ctx context.Context, item AppointmentItem) error {
	appt := m.appts[item.AppointmentID]
	for i := range appt.Items {
		if appt.Items[i].ID == item.ID {
			appt.Items[i] = item
			return nil
		}
	}
	return shared.NotFoundf("appointment item %d", item.ID)
}

func (m *memRepo) DeleteItem(ctx context.Context, appointmentID, itemID int64) error {
	appt := m.appts[appointmentID]
	for i := range appt.Items {
		if appt.Items[i].ID == itemID {
			appt.Items = append(appt.Items[:i], appt.Items[i+1:]...)
			return nil
		}
	}
	return shared.NotFoundf("appointment item %d", itemID)
}

func (m *memRepo) InsertPayment(ctx context.Context, payment AppointmentPayment) error {
	m.appts[payment.AppointmentID].Payments = append(m.appts[payment.AppointmentID].Payments, payment)
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
	posted []journals.ClinicJournalInput
}

func (s *stubJournal) PostClinicJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.ClinicJournalInput) (journals.JournalEntry, error) {
	s.posted = append(s.posted, in)
	return journals.JournalEntry{ID: int64(len(s.posted)), Status: journals.EntryStatusPosted}, nil
}

func fixtureProducts() *stubProducts {
	return &stubProducts{byID: map[int64]products.Product{
		1: {ID: 1, SKU: "CONSULT", Name: "General Consultation", Category: "Consultation", Type: products.ProductTypeService, SalePrice: 150, IsActive: true},
		2: {ID: 2, SKU: "VAC-RABIES", Name: "Rabies Vaccine", Category: "Vaccine", Type: products.ProductTypeGoods, HasExpiry: true, SalePrice: 200, IsActive: true},
		3: {ID: 3, SKU: "ANTIBIO-10", Name: "Antibiotics 10 tabs", Category: "Medicine", Type: products.ProductTypeGoods, SalePrice: 90, IsActive: true},
	}}
}

func newTestClinic(t *testing.T) (*Service, *memRepo, *stubStock, *stubJournal) {
	t.Helper()
	repo := newMemRepo()
	stock := &stubStock{cogsPerUnit: map[int64]float64{2: 120, 3: 40}}
	journal := &stubJournal{}
	svc := NewService(repo, fixtureProducts(), stock, journal, nil, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC) })
	return svc, repo, stock, journal
}

func scheduledVisit(t *testing.T, svc *Service) Appointment {
	t.Helper()
	appt, err := svc.Schedule(context.Background(), ScheduleInput{
		BranchID: 1, PetID: 9, VetID: 3,
		Items: []ItemInput{
			{ProductID: 1, Qty: 1},
			{ProductID: 2, Qty: 1},
			{ProductID: 3, Qty: 1, IsPrescription: true},
		},
	})
	require.NoError(t, err)
	return appt
}

func TestScheduleClassifiesItems(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	appt := scheduledVisit(t, svc)

	require.Equal(t, "APT-20260314-001", appt.Number)
	require.Equal(t, ItemKindService, appt.Items[0].Kind)
	require.Equal(t, ItemKindProduct, appt.Items[1].Kind)
	require.True(t, appt.Items[2].IsPrescription)
	require.Equal(t, 440.0, appt.Total)
}

func TestSetDiscountAppliesOnSubtotal(t *testing.T) {
	svc, _, _, journal := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)
	require.Equal(t, 440.0, appt.Total)

	// Abs 40 off 440, then 10% off the 400 remainder, then 5% tax on 360.
	appt, err := svc.SetDiscount(ctx, appt.ID, DiscountInput{Amount: 40, Percent: 10, TaxPercent: 5}, 3)
	require.NoError(t, err)
	require.Equal(t, 440.0, appt.Subtotal)
	require.Equal(t, 80.0, appt.DiscountTotal)
	require.Equal(t, 18.0, appt.TaxTotal)
	require.Equal(t, 378.0, appt.Total)

	completed, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 378}},
	})
	require.NoError(t, err)
	require.Equal(t, 378.0, completed.PaidTotal)

	require.Len(t, journal.posted, 1)
	entry := journal.posted[0]
	require.Equal(t, 80.0, entry.DiscountAmount)
	require.Equal(t, 18.0, entry.TaxAmount)
	require.Equal(t, 150.0, entry.ServiceRevenue)
	require.Equal(t, 200.0, entry.RevenueByCategory["Vaccine"])
}

func TestSetDiscountOnlyWhileScheduled(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)

	_, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.NoError(t, err)

	_, err = svc.SetDiscount(ctx, appt.ID, DiscountInput{Amount: 10}, 3)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestPrescriptionFlagRequiresProduct(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	_, err := svc.Schedule(context.Background(), ScheduleInput{
		BranchID: 1, PetID: 9, VetID: 3,
		Items: []ItemInput{{ProductID: 1, Qty: 1, IsPrescription: true}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompleteDispensesNonPrescriptionsOnly(t *testing.T) {
	svc, repo, stock, journal := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)

	completed, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.NoError(t, err)
	require.Equal(t, AppointmentStatusCompleted, completed.Status)
	require.Equal(t, 440.0, completed.PaidTotal)

	// Only the vaccine moved; the prescription waits for pickup.
	require.Len(t, stock.calls, 1)
	require.Equal(t, int64(2), stock.calls[0].ProductID)

	require.Len(t, journal.posted, 1)
	entry := journal.posted[0]
	require.Equal(t, 150.0, entry.ServiceRevenue)
	require.Equal(t, 200.0, entry.RevenueByCategory["Vaccine"])
	require.Equal(t, 90.0, entry.RevenueByCategory["Medicine"])
	require.Equal(t, 120.0, entry.COGSByCategory["Vaccine"])
	require.NotContains(t, entry.COGSByCategory, "Medicine")

	stored, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, 120.0, stored.Items[1].COGS)
	require.Equal(t, 0.0, stored.Items[2].COGS)
}

func TestPickupPrescription(t *testing.T) {
	svc, repo, stock, journal := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)
	_, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	prescriptionID := stored.Items[2].ID

	item, err := svc.PickupPrescription(ctx, appt.ID, prescriptionID, 3)
	require.NoError(t, err)
	require.NotNil(t, item.PickedUpAt)
	require.Equal(t, 40.0, item.COGS)
	require.Len(t, stock.calls, 2)

	// Pickup posts its own cost entry.
	require.Len(t, journal.posted, 2)
	require.Equal(t, 40.0, journal.posted[1].COGSByCategory["Medicine"])

	_, err = svc.PickupPrescription(ctx, appt.ID, prescriptionID, 3)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestPickupWithZeroCostSkipsJournal(t *testing.T) {
	svc, repo, stock, journal := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)
	_, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.NoError(t, err)

	// Stock that never carried a cost dispenses at zero average cost.
	stock.cogsPerUnit[3] = 0
	stored, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)

	item, err := svc.PickupPrescription(ctx, appt.ID, stored.Items[2].ID, 3)
	require.NoError(t, err)
	require.NotNil(t, item.PickedUpAt)
	require.Equal(t, 0.0, item.COGS)
	// Only the completion entry exists; a zero-cost dispense posts nothing.
	require.Len(t, journal.posted, 1)
}

func TestPickupRequiresCompletedAppointment(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)

	_, err := svc.PickupPrescription(ctx, appt.ID, appt.Items[2].ID, 3)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestCompleteIsTerminal(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)

	_, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteInput{AppointmentID: appt.ID, ActorID: 3})
	require.ErrorIs(t, err, shared.ErrStatusConflict)

	_, err = svc.AddItem(ctx, appt.ID, ItemInput{ProductID: 1, Qty: 1}, 3)
	require.ErrorIs(t, err, shared.ErrStatusConflict)

	_, err = svc.Cancel(ctx, appt.ID, 3)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestCompleteEmptyVisitRejected(t *testing.T) {
	svc, _, _, _ := newTestClinic(t)
	ctx := context.Background()
	appt, err := svc.Schedule(ctx, ScheduleInput{BranchID: 1, PetID: 9, VetID: 3})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteInput{AppointmentID: appt.ID, ActorID: 3})
	require.ErrorIs(t, err, shared.ErrNoItems)
}

func TestCompleteRollsBackOnStockFailure(t *testing.T) {
	svc, repo, stock, journal := newTestClinic(t)
	ctx := context.Background()
	appt := scheduledVisit(t, svc)

	stock.err = inventory.ErrInsufficientStock
	_, err := svc.Complete(ctx, CompleteInput{
		AppointmentID: appt.ID,
		ActorID:       3,
		Payments:      []finance.PaymentInput{{Method: finance.MethodCash, Amount: 440}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Contains(t, err.Error(), "Rabies Vaccine")

	stored, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, AppointmentStatusScheduled, stored.Status)
	require.Empty(t, stored.Payments)
	require.Empty(t, journal.posted)
}
