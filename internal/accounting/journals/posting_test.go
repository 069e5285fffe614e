package journals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite/internal/accounting/mappings"
)

func sumSides(in EntryInput) (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

func lineAmount(t *testing.T, in EntryInput, code string, debitSide bool) float64 {
	t.Helper()
	for _, line := range in.Lines {
		if line.AccountCode != code {
			continue
		}
		if debitSide && line.Debit > 0 {
			return line.Debit
		}
		if !debitSide && line.Credit > 0 {
			return line.Credit
		}
	}
	t.Fatalf("no line for account %s", code)
	return 0
}

func newTestPoster() *Poster {
	return NewPoster(nil, mappings.NewResolver(nil))
}

func TestSaleEntryFullyPaidCash(t *testing.T) {
	p := newTestPoster()
	in := p.BuildSaleEntry(context.Background(), SaleJournalInput{
		SaleID:            "sale-1",
		Number:            "INV-20260314-001",
		Date:              time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		PaidByMethod:      map[string]float64{"CASH": 110000},
		RevenueByCategory: map[string]float64{"Pet Food": 100000},
		COGSByCategory:    map[string]float64{"Pet Food": 60000},
		TaxAmount:         10000,
	})

	require.NoError(t, in.Validate())
	debit, credit := sumSides(in)
	require.Equal(t, 170000.0, debit)
	require.Equal(t, 170000.0, credit)

	require.Equal(t, 110000.0, lineAmount(t, in, mappings.CodeCash, true))
	require.Equal(t, 100000.0, lineAmount(t, in, "4-101", false))
	require.Equal(t, 60000.0, lineAmount(t, in, "5-101", true))
	require.Equal(t, 60000.0, lineAmount(t, in, "1-301", false))
	require.Equal(t, 10000.0, lineAmount(t, in, mappings.CodeTaxPayable, false))
}

func TestSaleEntryOnCredit(t *testing.T) {
	p := newTestPoster()
	in := p.BuildSaleEntry(context.Background(), SaleJournalInput{
		SaleID:            "sale-2",
		Number:            "INV-20260314-002",
		Date:              time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Outstanding:       100000,
		RevenueByCategory: map[string]float64{"Pet Food": 100000},
		COGSByCategory:    map[string]float64{"Pet Food": 60000},
	})

	require.NoError(t, in.Validate())
	debit, credit := sumSides(in)
	require.Equal(t, 160000.0, debit)
	require.Equal(t, 160000.0, credit)
	require.Equal(t, 100000.0, lineAmount(t, in, mappings.CodeAR, true))
}

func TestSaleEntryWithHeaderDiscountBalances(t *testing.T) {
	p := newTestPoster()
	// Revenue 100000 less a 19000 sale-level discount, 10% tax on the
	// 81000 remainder: the customer pays 89100.
	in := p.BuildSaleEntry(context.Background(), SaleJournalInput{
		SaleID:            "sale-5",
		Number:            "INV-20260314-005",
		Date:              time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		PaidByMethod:      map[string]float64{"CASH": 89100},
		RevenueByCategory: map[string]float64{"Pet Food": 100000},
		COGSByCategory:    map[string]float64{"Pet Food": 60000},
		DiscountAmount:    19000,
		TaxAmount:         8100,
	})

	require.NoError(t, in.Validate())
	debit, credit := sumSides(in)
	require.Equal(t, debit, credit)
	require.Equal(t, 19000.0, lineAmount(t, in, mappings.CodeDiscountExpense, true))
}

func TestSaleEntryMixedMethodsAggregatePerAccount(t *testing.T) {
	p := newTestPoster()
	in := p.BuildSaleEntry(context.Background(), SaleJournalInput{
		SaleID: "sale-3",
		Number: "INV-20260314-003",
		Date:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		// Card and transfer both settle to the bank account.
		PaidByMethod:      map[string]float64{"CARD": 30000, "TRANSFER": 20000},
		RevenueByCategory: map[string]float64{"Accessories": 50000},
		COGSByCategory:    map[string]float64{"Accessories": 35000},
	})

	require.NoError(t, in.Validate())
	require.Equal(t, 50000.0, lineAmount(t, in, mappings.CodeBank, true))
}

func TestPurchaseEntryPartiallyPaid(t *testing.T) {
	p := newTestPoster()
	in := p.BuildPurchaseEntry(context.Background(), PurchaseJournalInput{
		PurchaseID:     "po-1",
		Number:         "PO-20260310-001",
		Date:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CostByCategory: map[string]float64{"Medicine": 200000},
		TaxAmount:      22000,
		PaidAmount:     100000,
		PaidMethod:     "TRANSFER",
		Outstanding:    122000,
	})

	require.NoError(t, in.Validate())
	require.Equal(t, 200000.0, lineAmount(t, in, "1-302", true))
	require.Equal(t, 22000.0, lineAmount(t, in, mappings.CodeVATInput, true))
	require.Equal(t, 100000.0, lineAmount(t, in, mappings.CodeBank, false))
	require.Equal(t, 122000.0, lineAmount(t, in, mappings.CodeAP, false))
}

func TestClinicEntryServicesAndDispensedProducts(t *testing.T) {
	p := newTestPoster()
	in := p.BuildClinicEntry(context.Background(), ClinicJournalInput{
		AppointmentID:     "apt-1",
		Number:            "APT-20260314-001",
		Date:              time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ServiceRevenue:    150000,
		RevenueByCategory: map[string]float64{"Vaccine": 80000},
		COGSByCategory:    map[string]float64{"Vaccine": 45000},
		TaxAmount:         23000,
		PaidByMethod:      map[string]float64{"CASH": 253000},
	})

	require.NoError(t, in.Validate())
	require.Equal(t, 150000.0, lineAmount(t, in, mappings.CodeClinicRevenue, false))
	require.Equal(t, 80000.0, lineAmount(t, in, "4-102", false))
	require.Equal(t, 45000.0, lineAmount(t, in, "5-102", true))
}

func TestHotelEntryChargesFullTotalToReceivable(t *testing.T) {
	p := newTestPoster()
	in := p.BuildHotelEntry(context.Background(), HotelJournalInput{
		BookingID:      "htl-1",
		Number:         "HTL-20260301-001",
		Date:           time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Total:          565000,
		RoomRevenue:    450000,
		ServiceRevenue: 100000,
		DiscountAmount: 35000,
		TaxAmount:      50000,
		COGSByCategory: map[string]float64{"Pet Food": 12000},
	})

	require.NoError(t, in.Validate())
	require.Equal(t, 565000.0, lineAmount(t, in, mappings.CodeAR, true))
	require.Equal(t, 35000.0, lineAmount(t, in, mappings.CodeDiscountExpense, true))
	require.Equal(t, 450000.0, lineAmount(t, in, mappings.CodeRoomRevenue, false))
	require.Equal(t, 100000.0, lineAmount(t, in, mappings.CodeHotelSvcRevenue, false))
	require.Equal(t, 12000.0, lineAmount(t, in, "1-301", false))
}

func TestPaymentEntry(t *testing.T) {
	p := newTestPoster()
	in := p.BuildPaymentEntry(context.Background(), PaymentJournalInput{
		PaymentID: "pay-1",
		RefNumber: "HTL-20260301-001",
		Date:      time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Method:    "CASH",
		Amount:    565000,
	})

	require.NoError(t, in.Validate())
	require.Equal(t, 565000.0, lineAmount(t, in, mappings.CodeCash, true))
	require.Equal(t, 565000.0, lineAmount(t, in, mappings.CodeAR, false))
}

func TestAdjustmentEntryDirections(t *testing.T) {
	p := newTestPoster()
	ctx := context.Background()

	out := p.BuildAdjustmentEntry(ctx, AdjustmentJournalInput{
		AdjustmentID: "adj-1",
		Date:         time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Category:     "Medicine",
		Cost:         5000,
		Reason:       "expired stock written off",
	})
	require.NoError(t, out.Validate())
	require.Equal(t, 5000.0, lineAmount(t, out, "5-102", true))
	require.Equal(t, 5000.0, lineAmount(t, out, "1-302", false))

	in := p.BuildAdjustmentEntry(ctx, AdjustmentJournalInput{
		AdjustmentID: "adj-2",
		Date:         time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Category:     "Medicine",
		Cost:         3000,
		Inbound:      true,
	})
	require.NoError(t, in.Validate())
	require.Equal(t, 3000.0, lineAmount(t, in, "1-302", true))
	require.Equal(t, 3000.0, lineAmount(t, in, "5-102", false))
}

func TestZeroAmountLinesDropped(t *testing.T) {
	p := newTestPoster()
	in := p.BuildSaleEntry(context.Background(), SaleJournalInput{
		SaleID:            "sale-4",
		Number:            "INV-20260314-004",
		Date:              time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		PaidByMethod:      map[string]float64{"CASH": 20000},
		Outstanding:       0,
		RevenueByCategory: map[string]float64{"Grooming": 20000},
		TaxAmount:         0,
	})

	require.NoError(t, in.Validate())
	for _, line := range in.Lines {
		require.NotEqual(t, mappings.CodeAR, line.AccountCode)
		require.NotEqual(t, mappings.CodeTaxPayable, line.AccountCode)
	}
}
