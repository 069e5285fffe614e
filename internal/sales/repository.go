package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/platform/db"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// TxRepository exposes the transactional sale operations.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateSale(ctx context.Context, sale Sale) error
	InsertItem(ctx context.Context, item SaleItem) (int64, error)
	UpdateItem(ctx context.Context, item SaleItem) error
	DeleteItem(ctx context.Context, saleID, itemID int64) error
	InsertPayment(ctx context.Context, payment SalePayment) error
	ListNumbersForDay(ctx context.Context, prefix string) ([]string, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

// Tx bundles the per-module transaction views over one database
// transaction, so a sale submission can write sale rows, stock movements
// and journal entries atomically.
type Tx interface {
	Sales() TxRepository
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// Repository persists sales in PostgreSQL.
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

// NewTxRepository wraps an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txBundle struct {
	tx pgx.Tx
}

func (b txBundle) Sales() TxRepository               { return NewTxRepository(b.tx) }
func (b txBundle) Inventory() inventory.TxRepository { return inventory.NewTxRepository(b.tx) }
func (b txBundle) Journals() journals.TxRepository   { return journals.NewTxRepository(b.tx) }

// WithTx runs the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txBundle{tx: tx})
	})
}

const saleColumns = `id, number, branch_id, customer_id, status, sale_date, discount_amount, discount_percent, tax_percent,
subtotal, discount_total, tax_total, total, paid_total, change_total, outstanding, note, created_by,
completed_at, cancelled_at, created_at, updated_at`

// Get loads a sale with items and payments.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if err != nil {
		return Sale{}, err
	}
	if sale.Items, err = listItems(ctx, r.pool, id); err != nil {
		return Sale{}, err
	}
	if sale.Payments, err = listPayments(ctx, r.pool, id); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// List returns sales matching the filter, newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = '' OR status = $2)
  AND sale_date BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY sale_date DESC, id DESC
LIMIT $5`, filter.BranchID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales
(number, branch_id, customer_id, status, sale_date, discount_amount, discount_percent, tax_percent,
 subtotal, discount_total, tax_total, total, paid_total, change_total, outstanding, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
RETURNING id`,
		sale.Number, sale.BranchID, sale.CustomerID, string(sale.Status), sale.SaleDate,
		sale.DiscountAmount, sale.DiscountPercent, sale.TaxPercent,
		sale.Subtotal, sale.DiscountTotal, sale.TaxTotal, sale.Total,
		sale.PaidTotal, sale.ChangeTotal, sale.Outstanding, sale.Note, sale.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Sale{}, err
	}
	sale.Items, err = listItems(ctx, r.tx, id)
	return sale, err
}

func (r *txRepository) UpdateSale(ctx context.Context, sale Sale) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales
SET status=$2, discount_amount=$3, discount_percent=$4, tax_percent=$5,
    subtotal=$6, discount_total=$7, tax_total=$8, total=$9, paid_total=$10, change_total=$11,
    outstanding=$12, note=$13, completed_at=$14, cancelled_at=$15, updated_at=NOW()
WHERE id=$1`,
		sale.ID, string(sale.Status), sale.DiscountAmount, sale.DiscountPercent, sale.TaxPercent,
		sale.Subtotal, sale.DiscountTotal, sale.TaxTotal, sale.Total,
		sale.PaidTotal, sale.ChangeTotal, sale.Outstanding, sale.Note, sale.CompletedAt, sale.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("sale %d", sale.ID)
	}
	return nil
}

func (r *txRepository) InsertItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_items
(sale_id, product_id, variant_id, sku, name, category, qty, unit_price, discount_amount, discount_percent, tax_percent,
 gross, discount_total, tax_amount, line_total, cogs, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
RETURNING id`,
		item.SaleID, item.ProductID, item.VariantID, item.SKU, item.Name, item.Category,
		item.Qty, item.UnitPrice, item.DiscountAmount, item.DiscountPercent, item.TaxPercent,
		item.Gross, item.DiscountTotal, item.TaxAmount, item.LineTotal, item.COGS).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item SaleItem) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sale_items
SET qty=$3, unit_price=$4, discount_amount=$5, discount_percent=$6, tax_percent=$7,
    gross=$8, discount_total=$9, tax_amount=$10, line_total=$11, cogs=$12, updated_at=NOW()
WHERE id=$1 AND sale_id=$2`,
		item.ID, item.SaleID, item.Qty, item.UnitPrice, item.DiscountAmount, item.DiscountPercent, item.TaxPercent,
		item.Gross, item.DiscountTotal, item.TaxAmount, item.LineTotal, item.COGS)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("sale item %d", item.ID)
	}
	return nil
}

func (r *txRepository) DeleteItem(ctx context.Context, saleID, itemID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sale_items WHERE id=$1 AND sale_id=$2`, itemID, saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("sale item %d", itemID)
	}
	return nil
}

func (r *txRepository) InsertPayment(ctx context.Context, payment SalePayment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sale_payments (sale_id, method, amount, tendered, reference, paid_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		payment.SaleID, payment.Method, payment.Amount, payment.Tendered, payment.Reference, payment.PaidAt)
	return err
}

func (r *txRepository) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM sales WHERE number LIKE $1 || '%'`, prefix)
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

func (r *txRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE number=$1)`, number).Scan(&exists)
	return exists, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q querier, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `SELECT id, sale_id, product_id, variant_id, sku, name, category, qty, unit_price,
discount_amount, discount_percent, tax_percent, gross, discount_total, tax_amount, line_total, cogs, created_at, updated_at
FROM sale_items WHERE sale_id=$1 ORDER BY id ASC`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SaleItem{}
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.VariantID, &it.SKU, &it.Name, &it.Category,
			&it.Qty, &it.UnitPrice, &it.DiscountAmount, &it.DiscountPercent, &it.TaxPercent,
			&it.Gross, &it.DiscountTotal, &it.TaxAmount, &it.LineTotal, &it.COGS, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func listPayments(ctx context.Context, q querier, saleID int64) ([]SalePayment, error) {
	rows, err := q.Query(ctx, `SELECT id, sale_id, method, amount, tendered, reference, paid_at
FROM sale_payments WHERE sale_id=$1 ORDER BY id ASC`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []SalePayment{}
	for rows.Next() {
		var p SalePayment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Method, &p.Amount, &p.Tendered, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var status string
	err := row.Scan(&s.ID, &s.Number, &s.BranchID, &s.CustomerID, &status, &s.SaleDate,
		&s.DiscountAmount, &s.DiscountPercent, &s.TaxPercent,
		&s.Subtotal, &s.DiscountTotal, &s.TaxTotal, &s.Total,
		&s.PaidTotal, &s.ChangeTotal, &s.Outstanding, &s.Note, &s.CreatedBy,
		&s.CompletedAt, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.NotFoundf("sale")
		}
		return Sale{}, err
	}
	s.Status = SaleStatus(status)
	return s, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
