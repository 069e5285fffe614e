package journals

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ExportCSV writes entries with their lines as a flat CSV, one row per line.
// Amounts are grouped for readability (1,250,000.00).
func ExportCSV(w io.Writer, entries []JournalEntry) error {
	cw := csv.NewWriter(w)
	printer := message.NewPrinter(language.English)
	header := []string{"number", "date", "status", "source_type", "source_id", "account_code", "description", "debit", "credit"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, entry := range entries {
		for _, line := range entry.Lines {
			row := []string{
				entry.Number,
				entry.Date.Format("2006-01-02"),
				string(entry.Status),
				string(entry.SourceType),
				entry.SourceID,
				line.AccountCode,
				line.Description,
				printer.Sprintf("%.2f", line.Debit),
				printer.Sprintf("%.2f", line.Credit),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
