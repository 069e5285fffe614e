package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawsuite/pawsuite/internal/shared"
)

// Repository persists fiscal periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const periodColumns = `id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at`

// FindByDate returns the period containing the date.
func (r *Repository) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	var p Period
	err := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE start_date <= $1 AND end_date >= $1`, date).
		Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFoundf("accounting period for %s", date.Format("2006-01-02"))
		}
		return Period{}, err
	}
	return p, nil
}
