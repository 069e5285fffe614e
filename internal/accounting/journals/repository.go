package journals

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
)

// TxRepository exposes the transactional operations used by Service. All
// writes to journal tables go through here.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	UpdateStatus(ctx context.Context, entry JournalEntry) error
	ListNumbersForDay(ctx context.Context, prefix string) ([]string, error)
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (JournalEntry, error)
	FindBySource(ctx context.Context, sourceType SourceType, sourceID string) (JournalEntry, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
}

// Repository persists journal entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction so callers composing multi-module
// work can post journals inside it.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, number, entry_date, description, source_type, source_id, status,
total_debit, total_credit, created_by, posted_at, voided_at, void_reason, created_at, updated_at`

// Get loads an entry with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = r.listLines(ctx, entry.ID)
	return entry, err
}

// FindBySource returns the entry created for a domain document, if any.
func (r *Repository) FindBySource(ctx context.Context, sourceType SourceType, sourceID string) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE source_type=$1 AND source_id=$2 AND status <> 'VOID'
ORDER BY id DESC LIMIT 1`, string(sourceType), sourceID))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = r.listLines(ctx, entry.ID)
	return entry, err
}

// List returns entries matching the filter, newest first, without lines.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE ($1 = '' OR source_type = $1)
  AND entry_date BETWEEN COALESCE($2, '-infinity') AND COALESCE($3, 'infinity')
ORDER BY entry_date DESC, id DESC
LIMIT $4`, string(filter.SourceType), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []JournalEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *Repository) listLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.entry_id, l.account_id, a.code, l.description, l.debit, l.credit, l.branch_id, l.sort_order
FROM journal_entry_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.entry_id=$1
ORDER BY l.sort_order ASC, l.id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []JournalLine{}
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.AccountCode, &line.Description,
			&line.Debit, &line.Credit, &line.BranchID, &line.SortOrder); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(number, entry_date, description, source_type, source_id, status, total_debit, total_credit, created_by, posted_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
RETURNING id`,
		entry.Number, entry.Date, entry.Description, string(entry.SourceType), entry.SourceID,
		string(entry.Status), entry.TotalDebit, entry.TotalCredit, entry.CreatedBy, entry.PostedAt).Scan(&id)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	return id, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines
(entry_id, account_id, description, debit, credit, branch_id, sort_order)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			entryID, line.AccountID, line.Description, line.Debit, line.Credit, line.BranchID, line.SortOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.entry_id, l.account_id, a.code, l.description, l.debit, l.credit, l.branch_id, l.sort_order
FROM journal_entry_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.entry_id=$1
ORDER BY l.sort_order ASC, l.id ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.AccountCode, &line.Description,
			&line.Debit, &line.Credit, &line.BranchID, &line.SortOrder); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, entry JournalEntry) error {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status=$2, posted_at=$3, voided_at=$4, void_reason=$5, updated_at=NOW()
WHERE id=$1`,
		entry.ID, string(entry.Status), entry.PostedAt, entry.VoidedAt, entry.VoidReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return accshared.ErrJournalNotFound
	}
	return nil
}

// ListNumbersForDay returns all entry numbers carrying the given day prefix,
// locked against concurrent generation by the surrounding transaction.
func (r *txRepository) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM journal_entries WHERE number LIKE $1 || '%'`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	numbers := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (JournalEntry, error) {
	var entry JournalEntry
	var sourceType, status string
	err := row.Scan(&entry.ID, &entry.Number, &entry.Date, &entry.Description, &sourceType, &entry.SourceID,
		&status, &entry.TotalDebit, &entry.TotalCredit, &entry.CreatedBy,
		&entry.PostedAt, &entry.VoidedAt, &entry.VoidReason, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, accshared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	entry.SourceType = SourceType(sourceType)
	entry.Status = EntryStatus(status)
	return entry, nil
}

// mapConstraintError translates unique-violation errors from the journal
// tables into domain errors.
func mapConstraintError(err error) error {
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "uq_journal_entries_number":
			return accshared.ErrDuplicateNumber
		case "uq_journal_entries_source":
			return accshared.ErrSourceAlreadyLinked
		}
	}
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
