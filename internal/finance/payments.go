// Package finance holds money-handling helpers shared by the transaction
// orchestrators.
package finance

import (
	"fmt"

	"github.com/pawsuite/pawsuite/internal/finance/calc"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Payment methods. Cash is special: excess cash tendered becomes change
// instead of being banked.
const (
	MethodCash     = "CASH"
	MethodCard     = "CARD"
	MethodTransfer = "TRANSFER"
	MethodEWallet  = "EWALLET"
)

// PaymentInput is one tendered payment.
type PaymentInput struct {
	Method    string  `json:"method" validate:"required,oneof=CASH CARD TRANSFER EWALLET"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"max=100"`
}

// Payment is a normalized payment row ready to persist. Amount is the amount
// actually recorded; for cash this is capped at the remaining balance.
type Payment struct {
	Method    string
	Amount    float64
	Tendered  float64
	Reference string
}

// PaymentResult summarizes normalization.
type PaymentResult struct {
	Payments    []Payment
	Paid        float64
	Change      float64
	Outstanding float64
}

// NormalizePayments validates and caps a set of payments against the
// transaction total. Non-cash payments may never exceed the amount still
// owed; cash may, with the excess returned as change.
func NormalizePayments(total float64, inputs []PaymentInput) (PaymentResult, error) {
	result := PaymentResult{Payments: make([]Payment, 0, len(inputs))}
	nonCash := 0.0
	for i, in := range inputs {
		if in.Amount <= 0 {
			return PaymentResult{}, shared.Validationf("payment %d: amount must be positive", i+1)
		}
		if in.Method != MethodCash {
			nonCash = calc.Round2(nonCash + in.Amount)
		}
	}
	if nonCash > total+0.009 {
		return PaymentResult{}, fmt.Errorf("%w: non-cash payments %.2f exceed total %.2f",
			shared.ErrPaymentExceedsTotal, nonCash, total)
	}

	remaining := calc.Round2(total - nonCash)
	for _, in := range inputs {
		p := Payment{Method: in.Method, Tendered: in.Amount, Reference: in.Reference}
		if in.Method == MethodCash {
			recorded := in.Amount
			if recorded > remaining {
				recorded = remaining
			}
			p.Amount = calc.Round2(recorded)
			result.Change = calc.Round2(result.Change + in.Amount - recorded)
			remaining = calc.Round2(remaining - recorded)
		} else {
			p.Amount = calc.Round2(in.Amount)
		}
		result.Paid = calc.Round2(result.Paid + p.Amount)
		result.Payments = append(result.Payments, p)
	}
	result.Outstanding = calc.Round2(total - result.Paid)
	if result.Outstanding < 0 {
		result.Outstanding = 0
	}
	return result, nil
}
