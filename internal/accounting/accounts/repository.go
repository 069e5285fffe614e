package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
)

const codeCacheTTL = 5 * time.Minute

// Repository persists the chart of accounts. FindByCode results are cached
// in Redis; mutations invalidate the cached code.
type Repository struct {
	pool  *pgxpool.Pool
	cache *redis.Client
}

// NewRepository constructs Repository. The cache client is optional.
func NewRepository(pool *pgxpool.Pool, cache *redis.Client) *Repository {
	return &Repository{pool: pool, cache: cache}
}

const accountColumns = `id, code, name, account_type, normal_balance, is_header, is_active, parent_id, level, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.IsHeader, &a.IsActive, &a.ParentID, &a.Level, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// FindByCode resolves one account by its unique code.
func (r *Repository) FindByCode(ctx context.Context, code string) (Account, error) {
	if cached, ok := r.cacheGet(ctx, code); ok {
		return cached, nil
	}
	account, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, accshared.ErrAccountNotFound
		}
		return Account{}, err
	}
	r.cacheSet(ctx, account)
	return account, nil
}

// Get fetches one account by id.
func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, accshared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

// List returns all accounts ordered by code.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new account.
func (r *Repository) Create(ctx context.Context, a Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, account_type, normal_balance, is_header, is_active, parent_id, level)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		a.Code, a.Name, a.Type, a.NormalBalance, a.IsHeader, a.IsActive, a.ParentID, a.Level)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	return a, nil
}

// HasLines reports whether any journal line references the account.
func (r *Repository) HasLines(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entry_lines WHERE account_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

// HasChildren reports whether any account has this one as parent.
func (r *Repository) HasChildren(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE parent_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

// Deactivate soft-deletes an account.
func (r *Repository) Deactivate(ctx context.Context, accountID int64) error {
	var code string
	err := r.pool.QueryRow(ctx, `UPDATE accounts SET is_active=false, updated_at=NOW() WHERE id=$1 RETURNING code`, accountID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accshared.ErrAccountNotFound
		}
		return err
	}
	r.cacheDel(ctx, code)
	return nil
}

func (r *Repository) cacheKey(code string) string {
	return "account:code:" + code
}

func (r *Repository) cacheGet(ctx context.Context, code string) (Account, bool) {
	if r.cache == nil {
		return Account{}, false
	}
	raw, err := r.cache.Get(ctx, r.cacheKey(code)).Bytes()
	if err != nil {
		return Account{}, false
	}
	var a Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return Account{}, false
	}
	return a, true
}

func (r *Repository) cacheSet(ctx context.Context, a Account) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, r.cacheKey(a.Code), raw, codeCacheTTL).Err()
}

func (r *Repository) cacheDel(ctx context.Context, code string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, r.cacheKey(code)).Err()
}
