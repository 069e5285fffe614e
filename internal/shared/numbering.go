package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document number prefixes used across modules.
const (
	PrefixJournal     = "JE"
	PrefixSale        = "INV"
	PrefixPurchase    = "PO"
	PrefixAppointment = "APT"
	PrefixBooking     = "HTL"
	PrefixExpense     = "EXP"
)

// DocNumberPrefix returns the day-scoped prefix, e.g. "INV-20260831-".
func DocNumberPrefix(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, date.Format("20060102"))
}

// FormatDocNumber renders PREFIX-YYYYMMDD-NNN with a zero-padded sequence.
func FormatDocNumber(prefix string, date time.Time, seq int) string {
	return fmt.Sprintf("%s%03d", DocNumberPrefix(prefix, date), seq)
}

// NextDocNumber computes the next sequential number for the given day by
// scanning existing document numbers. The sequence resets to 001 each
// calendar day per prefix. Numbers not matching the day prefix are ignored.
func NextDocNumber(prefix string, date time.Time, existing []string) string {
	dayPrefix := DocNumberPrefix(prefix, date)
	max := 0
	for _, number := range existing {
		if !strings.HasPrefix(number, dayPrefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(number, dayPrefix))
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return FormatDocNumber(prefix, date, max+1)
}
