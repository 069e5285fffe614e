package journals

import (
	"fmt"
	"math"
	"time"

	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
	"github.com/pawsuite/pawsuite/internal/finance/calc"
)

// balanceTolerance is the maximum allowed |total debit - total credit|.
const balanceTolerance = 0.01

// LineInput describes a journal line for a posting request. Accounts are
// referenced by code; the engine resolves and validates them.
type LineInput struct {
	AccountCode string
	Description string
	Debit       float64
	Credit      float64
	BranchID    *int64
}

// EntryInput groups the fields required to create a journal entry.
type EntryInput struct {
	Date        time.Time
	Description string
	SourceType  SourceType
	SourceID    string
	CreatedBy   int64
	Lines       []LineInput
}

// Validate ensures the entry meets the balance invariant before any
// persistence is attempted.
func (in EntryInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("accounting: entry date required")
	}
	if in.SourceType == "" {
		return fmt.Errorf("accounting: source type required")
	}
	if in.SourceType != SourceManual && in.SourceID == "" {
		return fmt.Errorf("accounting: source id required for %s entries", in.SourceType)
	}
	if len(in.Lines) < 2 {
		return accshared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("accounting: line %d missing account code", idx+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("accounting: line %d negative amount", idx+1)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("accounting: line %d cannot be both debit and credit", idx+1)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("accounting: line %d must debit or credit", idx+1)
		}
		debit += calc.Round2(line.Debit)
		credit += calc.Round2(line.Credit)
	}
	if math.Abs(calc.Round2(debit)-calc.Round2(credit)) > balanceTolerance {
		return fmt.Errorf("%w: debit %.2f credit %.2f", accshared.ErrUnbalanced, debit, credit)
	}
	return nil
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}
