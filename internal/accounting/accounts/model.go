package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalBalance is the side an account naturally carries.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Account models a chart of accounts node. Codes are hierarchical strings
// like "1-101". Header accounts aggregate children and are not postable.
type Account struct {
	ID            int64
	Code          string
	Name          string
	Type          AccountType
	NormalBalance NormalBalance
	IsHeader      bool
	IsActive      bool
	ParentID      *int64
	Level         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Postable reports whether journal lines may reference this account.
func (a Account) Postable() bool {
	return a.IsActive && !a.IsHeader
}
