package journals

import "time"

// EntryStatus enumerates the journal lifecycle. Transitions are
// one-directional: DRAFT -> POSTED -> VOID.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoid   EntryStatus = "VOID"
)

// SourceType identifies the domain event a journal entry came from.
type SourceType string

const (
	SourceSale       SourceType = "SALE"
	SourcePurchase   SourceType = "PURCHASE"
	SourceClinic     SourceType = "CLINIC"
	SourceHotel      SourceType = "HOTEL"
	SourcePayment    SourceType = "PAYMENT"
	SourceExpense    SourceType = "EXPENSE"
	SourceAdjustment SourceType = "ADJUSTMENT"
	SourceManual     SourceType = "MANUAL"
)

// JournalEntry is one balanced accounting transaction. TotalDebit equals
// TotalCredit within 0.01 at all times; posted and voided entries are
// immutable except for status and void metadata.
type JournalEntry struct {
	ID          int64
	Number      string
	Date        time.Time
	Description string
	SourceType  SourceType
	SourceID    string
	Status      EntryStatus
	TotalDebit  float64
	TotalCredit float64
	CreatedBy   int64
	PostedAt    *time.Time
	VoidedAt    *time.Time
	VoidReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine is one debit-or-credit row. Exactly one of Debit and Credit
// is non-zero.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	AccountCode string
	Description string
	Debit       float64
	Credit      float64
	BranchID    *int64
	SortOrder   int
}

// ListFilter narrows entry listings.
type ListFilter struct {
	SourceType SourceType
	From       time.Time
	To         time.Time
	Limit      int
}
