package finance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite/internal/shared"
)

func TestNormalizePaymentsExactCash(t *testing.T) {
	result, err := NormalizePayments(110000, []PaymentInput{{Method: MethodCash, Amount: 110000}})
	require.NoError(t, err)
	require.Equal(t, 110000.0, result.Paid)
	require.Equal(t, 0.0, result.Change)
	require.Equal(t, 0.0, result.Outstanding)
}

func TestNormalizePaymentsCashChange(t *testing.T) {
	result, err := NormalizePayments(75000, []PaymentInput{{Method: MethodCash, Amount: 100000}})
	require.NoError(t, err)
	require.Equal(t, 75000.0, result.Paid)
	require.Equal(t, 25000.0, result.Change)
	require.Equal(t, 75000.0, result.Payments[0].Amount)
	require.Equal(t, 100000.0, result.Payments[0].Tendered)
}

func TestNormalizePaymentsNonCashOverpaymentRejected(t *testing.T) {
	_, err := NormalizePayments(50000, []PaymentInput{{Method: MethodCard, Amount: 60000}})
	require.ErrorIs(t, err, shared.ErrPaymentExceedsTotal)
}

func TestNormalizePaymentsMixedCashAbsorbsExcess(t *testing.T) {
	result, err := NormalizePayments(100000, []PaymentInput{
		{Method: MethodCard, Amount: 60000},
		{Method: MethodCash, Amount: 50000},
	})
	require.NoError(t, err)
	require.Equal(t, 100000.0, result.Paid)
	require.Equal(t, 10000.0, result.Change)
	require.Equal(t, 40000.0, result.Payments[1].Amount)
}

func TestNormalizePaymentsPartial(t *testing.T) {
	result, err := NormalizePayments(100000, []PaymentInput{{Method: MethodTransfer, Amount: 30000}})
	require.NoError(t, err)
	require.Equal(t, 30000.0, result.Paid)
	require.Equal(t, 70000.0, result.Outstanding)
}

func TestNormalizePaymentsRejectsNonPositive(t *testing.T) {
	_, err := NormalizePayments(100, []PaymentInput{{Method: MethodCash, Amount: 0}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
