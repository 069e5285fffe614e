package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/platform/db"
)

// ErrStockNotFound indicates a missing stock row.
var ErrStockNotFound = errors.New("inventory: stock level not found")

// TxRepository exposes the transactional operations used by Service.
type TxRepository interface {
	GetStockForUpdate(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error)
	UpsertStock(ctx context.Context, level StockLevel) error
	InsertMovement(ctx context.Context, movement Movement) error
	InsertBatch(ctx context.Context, batch StockBatch) error
	ListBatchesForUpdate(ctx context.Context, branchID, productID, variantID int64) ([]StockBatch, error)
	UpdateBatchRemaining(ctx context.Context, batchID int64, remaining float64) error
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ListExpiringBatches(ctx context.Context, before time.Time) ([]StockBatch, error)
}

// Repository persists inventory data in PostgreSQL.
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
// work (sales, purchasing) can reuse it.
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

// AdjustmentTx bundles the stock and journal transaction views over one
// database transaction, so a manual adjustment moves stock and posts its
// cost entry atomically.
type AdjustmentTx interface {
	Stock() TxRepository
	Journals() journals.TxRepository
}

type adjustmentTxBundle struct {
	tx pgx.Tx
}

func (b adjustmentTxBundle) Stock() TxRepository             { return NewTxRepository(b.tx) }
func (b adjustmentTxBundle) Journals() journals.TxRepository { return journals.NewTxRepository(b.tx) }

// WithAdjustmentTx runs the callback over the stock+journal bundle inside a
// repeatable-read transaction.
func (r *Repository) WithAdjustmentTx(ctx context.Context, fn func(context.Context, AdjustmentTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, adjustmentTxBundle{tx: tx})
	})
}

// GetStock reads the current level without locking.
func (r *Repository) GetStock(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error) {
	var level StockLevel
	err := r.pool.QueryRow(ctx, `SELECT branch_id, product_id, variant_id, qty, avg_cost, updated_at
FROM product_stock WHERE branch_id=$1 AND product_id=$2 AND variant_id=$3`, branchID, productID, variantID).
		Scan(&level.BranchID, &level.ProductID, &level.VariantID, &level.Qty, &level.AvgCost, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{BranchID: branchID, ProductID: productID, VariantID: variantID}, ErrStockNotFound
		}
		return StockLevel{}, err
	}
	return level, nil
}

// ListMovements returns movement log rows, oldest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, branch_id, product_id, variant_id, movement_type, qty, ref_type, ref_id, moved_at, note
FROM stock_movements
WHERE branch_id=$1 AND product_id=$2 AND variant_id=$3
  AND moved_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY moved_at ASC, id ASC
LIMIT $6`, filter.BranchID, filter.ProductID, filter.VariantID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.BranchID, &m.ProductID, &m.VariantID, &m.Type, &m.Qty, &m.RefType, &m.RefID, &m.MovedAt, &m.Note); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ListExpiringBatches returns non-empty batches expiring before the cutoff.
func (r *Repository) ListExpiringBatches(ctx context.Context, before time.Time) ([]StockBatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, branch_id, product_id, variant_id, batch_number, expiry_date, qty_remaining, qty_initial, received_at, purchase_order_id
FROM product_stock_batches
WHERE qty_remaining > 0 AND expiry_date < $1
ORDER BY expiry_date ASC, id ASC`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error) {
	var level StockLevel
	err := r.tx.QueryRow(ctx, `SELECT branch_id, product_id, variant_id, qty, avg_cost, updated_at
FROM product_stock WHERE branch_id=$1 AND product_id=$2 AND variant_id=$3 FOR UPDATE`, branchID, productID, variantID).
		Scan(&level.BranchID, &level.ProductID, &level.VariantID, &level.Qty, &level.AvgCost, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{BranchID: branchID, ProductID: productID, VariantID: variantID}, ErrStockNotFound
		}
		return StockLevel{}, err
	}
	return level, nil
}

func (r *txRepository) UpsertStock(ctx context.Context, level StockLevel) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_stock (branch_id, product_id, variant_id, qty, avg_cost, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (branch_id, product_id, variant_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, updated_at=NOW()`,
		level.BranchID, level.ProductID, level.VariantID, level.Qty, level.AvgCost)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (branch_id, product_id, variant_id, movement_type, qty, ref_type, ref_id, moved_at, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		movement.BranchID, movement.ProductID, movement.VariantID, string(movement.Type), movement.Qty,
		movement.RefType, movement.RefID, movement.MovedAt, movement.Note)
	return err
}

func (r *txRepository) InsertBatch(ctx context.Context, batch StockBatch) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_stock_batches (branch_id, product_id, variant_id, batch_number, expiry_date, qty_remaining, qty_initial, received_at, purchase_order_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		batch.BranchID, batch.ProductID, batch.VariantID, batch.BatchNumber, batch.ExpiryDate,
		batch.QtyRemaining, batch.QtyInitial, batch.ReceivedAt, batch.PurchaseOrderID)
	return err
}

func (r *txRepository) ListBatchesForUpdate(ctx context.Context, branchID, productID, variantID int64) ([]StockBatch, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, branch_id, product_id, variant_id, batch_number, expiry_date, qty_remaining, qty_initial, received_at, purchase_order_id
FROM product_stock_batches
WHERE branch_id=$1 AND product_id=$2 AND variant_id=$3 AND qty_remaining > 0
ORDER BY expiry_date ASC, id ASC
FOR UPDATE`, branchID, productID, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

func (r *txRepository) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE product_stock_batches SET qty_remaining=$2 WHERE id=$1`, batchID, remaining)
	return err
}

func scanBatches(rows pgx.Rows) ([]StockBatch, error) {
	batches := []StockBatch{}
	for rows.Next() {
		var b StockBatch
		if err := rows.Scan(&b.ID, &b.BranchID, &b.ProductID, &b.VariantID, &b.BatchNumber, &b.ExpiryDate,
			&b.QtyRemaining, &b.QtyInitial, &b.ReceivedAt, &b.PurchaseOrderID); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
