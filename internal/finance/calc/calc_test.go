package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateLinePercentDiscount(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: 10, UnitPrice: 100, DiscountPercent: 10})
	require.Equal(t, 1000.0, line.Gross)
	require.Equal(t, 100.0, line.DiscountAmount)
	require.Equal(t, 900.0, line.NetBeforeTax)
	require.Equal(t, 0.0, line.TaxAmount)
	require.Equal(t, 900.0, line.Net)
}

func TestCalculateLineAbsoluteThenPercentOrdering(t *testing.T) {
	// The percent discount applies to the remainder after the absolute
	// discount: (1000-100)*20% = 180, not 1000*20% = 200.
	line := CalculateLine(LineInput{Quantity: 1, UnitPrice: 1000, DiscountAmount: 100, DiscountPercent: 20})
	require.Equal(t, 280.0, line.DiscountAmount)
	require.Equal(t, 720.0, line.Net)
}

func TestCalculateLineDiscountCappedAtGross(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: 10, UnitPrice: 100, DiscountAmount: 500, DiscountPercent: 100})
	require.Equal(t, 0.0, line.NetBeforeTax)
	require.Equal(t, 0.0, line.Net)
}

func TestCalculateLinePercentBaseCanGoNegative(t *testing.T) {
	// The percent base is the unclamped remainder, so an absolute discount
	// above gross shrinks the percent amount: 100 abs 150 pct 10 gives
	// (100-150)*10% = -5, total discount 145. Net still floors at zero.
	line := CalculateLine(LineInput{Quantity: 1, UnitPrice: 100, DiscountAmount: 150, DiscountPercent: 10})
	require.Equal(t, 145.0, line.DiscountAmount)
	require.Equal(t, 0.0, line.NetBeforeTax)
	require.Equal(t, 0.0, line.Net)
}

func TestCalculateLineFractionalQuantityTruncated(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: 2.9, UnitPrice: 50})
	require.Equal(t, 2.0, line.Quantity)
	require.Equal(t, 100.0, line.Gross)
}

func TestCalculateLineTax(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: 1, UnitPrice: 100000, TaxPercent: 10})
	require.Equal(t, 10000.0, line.TaxAmount)
	require.Equal(t, 110000.0, line.Net)
}

func TestCalculateLineSanitizesGarbage(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: math.NaN(), UnitPrice: -5, DiscountPercent: 250, TaxPercent: math.Inf(1)})
	require.Equal(t, 0.0, line.Quantity)
	require.Equal(t, 0.0, line.Gross)
	require.Equal(t, 0.0, line.Net)

	clamped := CalculateLine(LineInput{Quantity: 1, UnitPrice: 100, DiscountPercent: 250})
	require.Equal(t, 100.0, clamped.DiscountAmount)
	require.Equal(t, 0.0, clamped.Net)
}

func TestCalculateTotalsSumsRoundedComponents(t *testing.T) {
	totals := CalculateTotals([]LineInput{
		{Quantity: 3, UnitPrice: 33.33, DiscountPercent: 5},
		{Quantity: 1, UnitPrice: 10.01, TaxPercent: 11},
	})
	// Components are sums of per-line rounded values.
	require.Equal(t, 2, len(totals.Lines))
	want := totals.Lines[0].Gross + totals.Lines[1].Gross
	require.Equal(t, Round2(want), totals.Gross)
	wantNet := totals.Lines[0].Net + totals.Lines[1].Net
	require.Equal(t, Round2(wantNet), totals.Net)
}

func TestCalculateTotalsEmpty(t *testing.T) {
	totals := CalculateTotals(nil)
	require.Equal(t, 0.0, totals.Net)
	require.Empty(t, totals.Lines)
}
