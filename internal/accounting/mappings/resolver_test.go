package mappings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolverCategoryDefaults(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	require.Equal(t, "4-101", r.RevenueCode(ctx, "Pet Food"))
	require.Equal(t, "5-101", r.COGSCode(ctx, "Dry Pet Food"))
	require.Equal(t, "1-302", r.InventoryCode(ctx, "Medicine"))
	require.Equal(t, "4-103", r.RevenueCode(ctx, "Accessories"))
}

func TestResolverFallbacks(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	require.Equal(t, "4-109", r.RevenueCode(ctx, "Unmapped Category"))
	require.Equal(t, "5-109", r.COGSCode(ctx, ""))
	require.Equal(t, "1-309", r.InventoryCode(ctx, "Toys"))
}

func TestResolverPaymentMethods(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	require.Equal(t, CodeCash, r.PaymentCode(ctx, "CASH"))
	require.Equal(t, CodeCash, r.PaymentCode(ctx, "cash"))
	require.Equal(t, CodeBank, r.PaymentCode(ctx, "CARD"))
	require.Equal(t, CodeBank, r.PaymentCode(ctx, "TRANSFER"))
}
