package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextDocNumberStartsAtOne(t *testing.T) {
	date := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "INV-20260831-001", NextDocNumber(PrefixSale, date, nil))
}

func TestNextDocNumberIncrements(t *testing.T) {
	date := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	existing := []string{"INV-20260831-001", "INV-20260831-002", "INV-20260831-003"}
	require.Equal(t, "INV-20260831-004", NextDocNumber(PrefixSale, date, existing))
}

func TestNextDocNumberResetsPerDay(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)
	existing := []string{"INV-20260831-041", "INV-20260831-042"}
	require.Equal(t, "INV-20260901-001", NextDocNumber(PrefixSale, date, existing))
}

func TestNextDocNumberIgnoresMalformed(t *testing.T) {
	date := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	existing := []string{"INV-20260831-xyz", "INV-20260831-007", "JE-20260831-099"}
	require.Equal(t, "INV-20260831-008", NextDocNumber(PrefixSale, date, existing))
}

func TestFormatDocNumberPadding(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "JE-20260831-012", FormatDocNumber(PrefixJournal, date, 12))
	require.Equal(t, "JE-20260831-120", FormatDocNumber(PrefixJournal, date, 120))
}
