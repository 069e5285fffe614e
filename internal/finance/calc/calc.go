// Package calc implements the line-item discount/tax arithmetic shared by
// every transaction type. It is pure: no I/O, no persistence.
package calc

import "math"

// LineInput carries the raw figures for one line item. Zero values are valid;
// NaN, infinite and negative inputs are treated as zero.
type LineInput struct {
	Quantity        float64
	UnitPrice       float64
	DiscountAmount  float64
	DiscountPercent float64
	TaxPercent      float64
}

// Line is the normalized result of CalculateLine.
type Line struct {
	Quantity        float64
	UnitPrice       float64
	Gross           float64
	DiscountAbs     float64
	DiscountPercent float64
	DiscountAmount  float64
	NetBeforeTax    float64
	TaxAmount       float64
	Net             float64
}

// Totals aggregates a collection of lines. Each component is the sum of the
// already-rounded per-line figures, not a rounding of the raw sum.
type Totals struct {
	Gross          float64
	DiscountAmount float64
	NetBeforeTax   float64
	TaxAmount      float64
	Net            float64
	Lines          []Line
}

// CalculateLine normalizes one line. Order matters: the absolute discount is
// applied first, then the percent discount on the remainder. The total
// discount is capped at gross so a line can never go negative.
func CalculateLine(in LineInput) Line {
	qty := math.Max(0, math.Floor(sanitize(in.Quantity)))
	unitPrice := round2(sanitize(in.UnitPrice))
	gross := round2(qty * unitPrice)

	discountAbs := round2(sanitize(in.DiscountAmount))
	percent := clampPercent(in.DiscountPercent)
	percentAmount := round2((gross - discountAbs) * percent / 100)
	discountAmount := round2(discountAbs + percentAmount)

	netBeforeTax := math.Max(0, round2(gross-discountAmount))
	taxPercent := clampPercent(in.TaxPercent)
	taxAmount := round2(netBeforeTax * taxPercent / 100)
	net := round2(netBeforeTax + taxAmount)

	return Line{
		Quantity:        qty,
		UnitPrice:       unitPrice,
		Gross:           gross,
		DiscountAbs:     discountAbs,
		DiscountPercent: percent,
		DiscountAmount:  discountAmount,
		NetBeforeTax:    netBeforeTax,
		TaxAmount:       taxAmount,
		Net:             net,
	}
}

// CalculateTotals maps CalculateLine over the inputs and sums the components
// independently.
func CalculateTotals(inputs []LineInput) Totals {
	totals := Totals{Lines: make([]Line, 0, len(inputs))}
	for _, in := range inputs {
		line := CalculateLine(in)
		totals.Lines = append(totals.Lines, line)
		totals.Gross += line.Gross
		totals.DiscountAmount += line.DiscountAmount
		totals.NetBeforeTax += line.NetBeforeTax
		totals.TaxAmount += line.TaxAmount
		totals.Net += line.Net
	}
	totals.Gross = round2(totals.Gross)
	totals.DiscountAmount = round2(totals.DiscountAmount)
	totals.NetBeforeTax = round2(totals.NetBeforeTax)
	totals.TaxAmount = round2(totals.TaxAmount)
	totals.Net = round2(totals.Net)
	return totals
}

// Round2 rounds to two decimals, the money precision used everywhere.
func Round2(v float64) float64 {
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
