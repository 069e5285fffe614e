package journals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawsuite/pawsuite/internal/accounting/accounts"
	"github.com/pawsuite/pawsuite/internal/accounting/periods"
	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
	"github.com/pawsuite/pawsuite/internal/finance/calc"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// AccountPort resolves accounts by code.
type AccountPort interface {
	FindByCode(ctx context.Context, code string) (accounts.Account, error)
}

// PeriodPort resolves the fiscal period covering a date.
type PeriodPort interface {
	FindByDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the double-entry journal engine. System documents post entries
// atomically via PostSystemEntry / PostSystemEntryInTx; manual entries start
// as drafts and are posted or voided explicitly.
type Service struct {
	repo     RepositoryPort
	accounts AccountPort
	periods  PeriodPort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, accountPort AccountPort, periodPort PeriodPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accountPort,
		periods:  periodPort,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one entry with lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// FindBySource returns the non-void entry linked to a domain document.
func (s *Service) FindBySource(ctx context.Context, sourceType SourceType, sourceID string) (JournalEntry, error) {
	return s.repo.FindBySource(ctx, sourceType, sourceID)
}

// CreateManualEntry records a draft entry from user input. Drafts do not
// affect reports and carry no period restriction until posted.
func (s *Service) CreateManualEntry(ctx context.Context, input EntryInput) (JournalEntry, error) {
	input.SourceType = SourceManual
	input.SourceID = ""
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	lines, totalDebit, totalCredit, err := s.resolveLines(ctx, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}

	var created JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err = s.insertEntry(ctx, tx, input, lines, totalDebit, totalCredit, EntryStatusDraft)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "journal.create", created)
	return created, nil
}

// PostEntry transitions a draft to posted. The entry date must fall in an
// open fiscal period.
func (s *Service) PostEntry(ctx context.Context, id, actorID int64) (JournalEntry, error) {
	var posted JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return fmt.Errorf("%w: cannot post %s entry", accshared.ErrInvalidStatus, entry.Status)
		}
		if err := s.checkPeriodOpen(ctx, entry.Date); err != nil {
			return err
		}
		now := s.now()
		entry.Status = EntryStatusPosted
		entry.PostedAt = &now
		if err := tx.UpdateStatus(ctx, entry); err != nil {
			return err
		}
		posted = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.post", posted)
	return posted, nil
}

// VoidEntry reverses a posted entry by marking it void. Entries in locked
// periods stay untouchable.
func (s *Service) VoidEntry(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.Reason == "" {
		return JournalEntry{}, shared.Validationf("void reason required")
	}
	var voided JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusPosted {
			return fmt.Errorf("%w: cannot void %s entry", accshared.ErrInvalidStatus, entry.Status)
		}
		period, err := s.periods.FindByDate(ctx, entry.Date)
		if err == nil && period.Status == periods.PeriodStatusLocked {
			return accshared.ErrPeriodLocked
		}
		now := s.now()
		entry.Status = EntryStatusVoid
		entry.VoidedAt = &now
		entry.VoidReason = input.Reason
		if err := tx.UpdateStatus(ctx, entry); err != nil {
			return err
		}
		voided = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.ActorID, "journal.void", voided)
	return voided, nil
}

// PostSystemEntry creates and immediately posts an entry for a domain
// document, in its own transaction.
func (s *Service) PostSystemEntry(ctx context.Context, input EntryInput) (JournalEntry, error) {
	var created JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = s.PostSystemEntryInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return created, nil
}

// PostSystemEntryInTx creates and posts an entry inside an open transaction,
// so callers can commit journal, stock and payment writes together.
func (s *Service) PostSystemEntryInTx(ctx context.Context, tx TxRepository, input EntryInput) (JournalEntry, error) {
	if input.SourceType == "" || input.SourceType == SourceManual {
		return JournalEntry{}, shared.Validationf("system entries require a source type")
	}
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkPeriodOpen(ctx, input.Date); err != nil {
		return JournalEntry{}, err
	}
	lines, totalDebit, totalCredit, err := s.resolveLines(ctx, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	return s.insertEntry(ctx, tx, input, lines, totalDebit, totalCredit, EntryStatusPosted)
}

func (s *Service) insertEntry(ctx context.Context, tx TxRepository, input EntryInput, lines []JournalLine, totalDebit, totalCredit float64, status EntryStatus) (JournalEntry, error) {
	prefix := shared.DocNumberPrefix(shared.PrefixJournal, input.Date)
	existing, err := tx.ListNumbersForDay(ctx, prefix)
	if err != nil {
		return JournalEntry{}, err
	}
	entry := JournalEntry{
		Number:      shared.NextDocNumber(shared.PrefixJournal, input.Date, existing),
		Date:        input.Date,
		Description: input.Description,
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		Status:      status,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		CreatedBy:   input.CreatedBy,
	}
	if status == EntryStatusPosted {
		now := s.now()
		entry.PostedAt = &now
	}
	entry.ID, err = tx.InsertEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	for i := range lines {
		lines[i].EntryID = entry.ID
	}
	if err := tx.InsertLines(ctx, entry.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	if s.logger != nil {
		s.logger.InfoContext(ctx, "journal entry recorded",
			slog.String("number", entry.Number),
			slog.String("source", string(entry.SourceType)),
			slog.String("status", string(entry.Status)),
			slog.Float64("total", entry.TotalDebit))
	}
	return entry, nil
}

// resolveLines maps account codes to accounts and rejects header or inactive
// accounts. Amounts are rounded once here; totals are sums of rounded lines.
func (s *Service) resolveLines(ctx context.Context, inputs []LineInput) ([]JournalLine, float64, float64, error) {
	lines := make([]JournalLine, 0, len(inputs))
	var totalDebit, totalCredit float64
	for idx, in := range inputs {
		account, err := s.accounts.FindByCode(ctx, in.AccountCode)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("line %d account %s: %w", idx+1, in.AccountCode, err)
		}
		if account.IsHeader {
			return nil, 0, 0, fmt.Errorf("%w: %s", accshared.ErrHeaderAccount, account.Code)
		}
		if !account.IsActive {
			return nil, 0, 0, fmt.Errorf("%w: %s", accshared.ErrInactiveAccount, account.Code)
		}
		debit := calc.Round2(in.Debit)
		credit := calc.Round2(in.Credit)
		totalDebit += debit
		totalCredit += credit
		lines = append(lines, JournalLine{
			AccountID:   account.ID,
			AccountCode: account.Code,
			Description: in.Description,
			Debit:       debit,
			Credit:      credit,
			BranchID:    in.BranchID,
			SortOrder:   idx,
		})
	}
	return lines, calc.Round2(totalDebit), calc.Round2(totalCredit), nil
}

func (s *Service) checkPeriodOpen(ctx context.Context, date time.Time) error {
	period, err := s.periods.FindByDate(ctx, date)
	if err != nil {
		// No period configured for the date means posting is allowed.
		return nil
	}
	switch period.Status {
	case periods.PeriodStatusClosed:
		return fmt.Errorf("%w: period %s", accshared.ErrPeriodClosed, period.Code)
	case periods.PeriodStatusLocked:
		return fmt.Errorf("%w: period %s", accshared.ErrPeriodLocked, period.Code)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entry JournalEntry) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: entry.Number,
		Meta: map[string]any{
			"status":      string(entry.Status),
			"source_type": string(entry.SourceType),
			"total_debit": entry.TotalDebit,
		},
		At: s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
