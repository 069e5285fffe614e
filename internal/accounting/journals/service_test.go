package journals

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite/internal/accounting/accounts"
	"github.com/pawsuite/pawsuite/internal/accounting/periods"
	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
)

type memoryRepo struct {
	entries []JournalEntry
	seq     int64
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make([]JournalEntry, len(m.entries))
	copy(snapshot, m.entries)
	seq := m.seq
	if err := fn(ctx, m); err != nil {
		m.entries = snapshot
		m.seq = seq
		return err
	}
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (JournalEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return JournalEntry{}, accshared.ErrJournalNotFound
}

func (m *memoryRepo) FindBySource(ctx context.Context, sourceType SourceType, sourceID string) (JournalEntry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.SourceType == sourceType && e.SourceID == sourceID && e.Status != EntryStatusVoid {
			return e, nil
		}
	}
	return JournalEntry{}, accshared.ErrJournalNotFound
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return m.entries, nil
}

func (m *memoryRepo) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	for _, e := range m.entries {
		if e.Number == entry.Number {
			return 0, accshared.ErrDuplicateNumber
		}
		if entry.SourceType != SourceManual && e.SourceType == entry.SourceType && e.SourceID == entry.SourceID && e.Status != EntryStatusVoid {
			return 0, accshared.ErrSourceAlreadyLinked
		}
	}
	m.seq++
	entry.ID = m.seq
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memoryRepo) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries[i].Lines = lines
			return nil
		}
	}
	return accshared.ErrJournalNotFound
}

func (m *memoryRepo) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, entry JournalEntry) error {
	for i := range m.entries {
		if m.entries[i].ID == entry.ID {
			m.entries[i].Status = entry.Status
			m.entries[i].PostedAt = entry.PostedAt
			m.entries[i].VoidedAt = entry.VoidedAt
			m.entries[i].VoidReason = entry.VoidReason
			return nil
		}
	}
	return accshared.ErrJournalNotFound
}

func (m *memoryRepo) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	numbers := []string{}
	for _, e := range m.entries {
		if len(e.Number) >= len(prefix) && e.Number[:len(prefix)] == prefix {
			numbers = append(numbers, e.Number)
		}
	}
	return numbers, nil
}

type stubAccounts struct {
	header   map[string]bool
	inactive map[string]bool
	next     int64
	ids      map[string]int64
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{header: map[string]bool{}, inactive: map[string]bool{}, ids: map[string]int64{}}
}

func (s *stubAccounts) FindByCode(ctx context.Context, code string) (accounts.Account, error) {
	id, ok := s.ids[code]
	if !ok {
		s.next++
		id = s.next
		s.ids[code] = id
	}
	return accounts.Account{
		ID:       id,
		Code:     code,
		Name:     code,
		IsHeader: s.header[code],
		IsActive: !s.inactive[code],
	}, nil
}

type stubPeriods struct {
	status periods.PeriodStatus
}

func (s *stubPeriods) FindByDate(ctx context.Context, date time.Time) (periods.Period, error) {
	return periods.Period{ID: 1, Code: date.Format("2006-01"), Status: s.status}, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *stubPeriods) {
	t.Helper()
	repo := &memoryRepo{}
	pp := &stubPeriods{status: periods.PeriodStatusOpen}
	svc := NewService(repo, newStubAccounts(), pp, nil, newTestLogger())
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) })
	return svc, repo, pp
}

func manualInput(date time.Time) EntryInput {
	return EntryInput{
		Date:        date,
		Description: "monthly rent accrual",
		CreatedBy:   7,
		Lines: []LineInput{
			{AccountCode: "6-201", Debit: 1500000},
			{AccountCode: "2-101", Credit: 1500000},
		},
	}
}

func TestManualEntryLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	entry, err := svc.CreateManualEntry(ctx, manualInput(date))
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
	require.Equal(t, "JE-20260314-001", entry.Number)
	require.Nil(t, entry.PostedAt)
	require.Equal(t, 1500000.0, entry.TotalDebit)
	require.Equal(t, entry.TotalDebit, entry.TotalCredit)

	posted, err := svc.PostEntry(ctx, entry.ID, 7)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)

	voided, err := svc.VoidEntry(ctx, VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "booked twice"})
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, voided.Status)
	require.Equal(t, "booked twice", voided.VoidReason)
}

func TestNumberingIncrementsPerDay(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	first, err := svc.CreateManualEntry(ctx, manualInput(date))
	require.NoError(t, err)
	second, err := svc.CreateManualEntry(ctx, manualInput(date))
	require.NoError(t, err)
	require.Equal(t, "JE-20260314-001", first.Number)
	require.Equal(t, "JE-20260314-002", second.Number)

	nextDay, err := svc.CreateManualEntry(ctx, manualInput(date.AddDate(0, 0, 1)))
	require.NoError(t, err)
	require.Equal(t, "JE-20260315-001", nextDay.Number)
}

func TestUnbalancedEntryRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	in := manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	in.Lines[1].Credit = 1500000.02

	_, err := svc.CreateManualEntry(context.Background(), in)
	require.ErrorIs(t, err, accshared.ErrUnbalanced)
	require.Empty(t, repo.entries)
}

func TestBalanceToleranceAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	in.Lines[1].Credit = 1500000.01

	_, err := svc.CreateManualEntry(context.Background(), in)
	require.NoError(t, err)
}

func TestSingleLineRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	in.Lines = in.Lines[:1]

	_, err := svc.CreateManualEntry(context.Background(), in)
	require.ErrorIs(t, err, accshared.ErrTooFewLines)
}

func TestHeaderAndInactiveAccountsRejected(t *testing.T) {
	repo := &memoryRepo{}
	stub := newStubAccounts()
	stub.header["1-000"] = true
	stub.inactive["6-999"] = true
	svc := NewService(repo, stub, &stubPeriods{status: periods.PeriodStatusOpen}, nil, newTestLogger())
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	in := manualInput(date)
	in.Lines[0].AccountCode = "1-000"
	_, err := svc.CreateManualEntry(ctx, in)
	require.ErrorIs(t, err, accshared.ErrHeaderAccount)

	in = manualInput(date)
	in.Lines[0].AccountCode = "6-999"
	_, err = svc.CreateManualEntry(ctx, in)
	require.ErrorIs(t, err, accshared.ErrInactiveAccount)
}

func TestPostGuardedByPeriodStatus(t *testing.T) {
	svc, _, pp := newTestService(t)
	ctx := context.Background()
	entry, err := svc.CreateManualEntry(ctx, manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	pp.status = periods.PeriodStatusClosed
	_, err = svc.PostEntry(ctx, entry.ID, 7)
	require.ErrorIs(t, err, accshared.ErrPeriodClosed)

	pp.status = periods.PeriodStatusLocked
	_, err = svc.PostEntry(ctx, entry.ID, 7)
	require.ErrorIs(t, err, accshared.ErrPeriodLocked)

	pp.status = periods.PeriodStatusOpen
	_, err = svc.PostEntry(ctx, entry.ID, 7)
	require.NoError(t, err)
}

func TestVoidRequiresPostedStatus(t *testing.T) {
	svc, _, pp := newTestService(t)
	ctx := context.Background()
	entry, err := svc.CreateManualEntry(ctx, manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = svc.VoidEntry(ctx, VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "draft"})
	require.ErrorIs(t, err, accshared.ErrInvalidStatus)

	_, err = svc.PostEntry(ctx, entry.ID, 7)
	require.NoError(t, err)

	pp.status = periods.PeriodStatusLocked
	_, err = svc.VoidEntry(ctx, VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "locked"})
	require.ErrorIs(t, err, accshared.ErrPeriodLocked)

	pp.status = periods.PeriodStatusOpen
	voided, err := svc.VoidEntry(ctx, VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "duplicate"})
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, voided.Status)

	_, err = svc.VoidEntry(ctx, VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "again"})
	require.ErrorIs(t, err, accshared.ErrInvalidStatus)
}

func TestSystemEntryAutoPosted(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	in := manualInput(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	in.SourceType = SourcePayment
	in.SourceID = "pay-1"

	entry, err := svc.PostSystemEntry(ctx, in)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, entry.Status)
	require.NotNil(t, entry.PostedAt)

	// Same source document cannot be journaled twice.
	_, err = svc.PostSystemEntry(ctx, in)
	require.ErrorIs(t, err, accshared.ErrSourceAlreadyLinked)

	found, err := svc.FindBySource(ctx, SourcePayment, "pay-1")
	require.NoError(t, err)
	require.Equal(t, entry.ID, found.ID)
	require.Len(t, repo.entries, 1)
}

func TestTotalsAreSumsOfRoundedLines(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := EntryInput{
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: "fractional amounts",
		CreatedBy:   1,
		Lines: []LineInput{
			{AccountCode: "1-101", Debit: 10.006},
			{AccountCode: "1-102", Debit: 10.006},
			{AccountCode: "4-101", Credit: 20.02},
		},
	}

	entry, err := svc.CreateManualEntry(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 20.02, entry.TotalDebit)
	require.Equal(t, 20.02, entry.TotalCredit)
	require.Equal(t, 10.01, entry.Lines[0].Debit)
}
