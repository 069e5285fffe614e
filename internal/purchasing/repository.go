package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/platform/db"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// TxRepository exposes the transactional purchase order operations.
type TxRepository interface {
	InsertOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	UpdateOrder(ctx context.Context, order PurchaseOrder) error
	InsertItem(ctx context.Context, item OrderItem) (int64, error)
	UpdateItem(ctx context.Context, item OrderItem) error
	ListNumbersForDay(ctx context.Context, prefix string) ([]string, error)
}

// Tx bundles the per-module transaction views over one database transaction.
type Tx interface {
	Purchases() TxRepository
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
}

// Repository persists purchase orders in PostgreSQL.
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

type txBundle struct {
	tx pgx.Tx
}

func (b txBundle) Purchases() TxRepository           { return &txRepository{tx: b.tx} }
func (b txBundle) Inventory() inventory.TxRepository { return inventory.NewTxRepository(b.tx) }
func (b txBundle) Journals() journals.TxRepository   { return journals.NewTxRepository(b.tx) }

// WithTx runs the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txBundle{tx: tx})
	})
}

const orderColumns = `id, number, branch_id, supplier_id, status, order_date, subtotal, tax_total, total,
paid_total, outstanding, note, created_by, ordered_at, received_at, cancelled_at, created_at, updated_at`

// Get loads an order with items.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Items, err = listItems(ctx, r.pool, id)
	return order, err
}

// List returns orders matching the filter, newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = 0 OR supplier_id = $2)
  AND ($3 = '' OR status = $3)
ORDER BY order_date DESC, id DESC
LIMIT $4`, filter.BranchID, filter.SupplierID, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []PurchaseOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *txRepository) InsertOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(number, branch_id, supplier_id, status, order_date, subtotal, tax_total, total, paid_total, outstanding, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
RETURNING id`,
		order.Number, order.BranchID, order.SupplierID, string(order.Status), order.OrderDate,
		order.Subtotal, order.TaxTotal, order.Total, order.PaidTotal, order.Outstanding, order.Note, order.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	order, err := scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Items, err = listItems(ctx, r.tx, id)
	return order, err
}

func (r *txRepository) UpdateOrder(ctx context.Context, order PurchaseOrder) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_orders
SET status=$2, subtotal=$3, tax_total=$4, total=$5, paid_total=$6, outstanding=$7, note=$8,
    ordered_at=$9, received_at=$10, cancelled_at=$11, updated_at=NOW()
WHERE id=$1`,
		order.ID, string(order.Status), order.Subtotal, order.TaxTotal, order.Total,
		order.PaidTotal, order.Outstanding, order.Note, order.OrderedAt, order.ReceivedAt, order.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("purchase order %d", order.ID)
	}
	return nil
}

func (r *txRepository) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_order_items
(order_id, product_id, variant_id, sku, name, category, qty_ordered, qty_received, unit_cost, tax_percent, line_total, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
RETURNING id`,
		item.OrderID, item.ProductID, item.VariantID, item.SKU, item.Name, item.Category,
		item.QtyOrdered, item.QtyReceived, item.UnitCost, item.TaxPercent, item.LineTotal).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item OrderItem) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_order_items
SET qty_ordered=$3, qty_received=$4, unit_cost=$5, tax_percent=$6, line_total=$7, updated_at=NOW()
WHERE id=$1 AND order_id=$2`,
		item.ID, item.OrderID, item.QtyOrdered, item.QtyReceived, item.UnitCost, item.TaxPercent, item.LineTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("purchase order item %d", item.ID)
	}
	return nil
}

func (r *txRepository) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM purchase_orders WHERE number LIKE $1 || '%'`, prefix)
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

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q querier, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, variant_id, sku, name, category,
qty_ordered, qty_received, unit_cost, tax_percent, line_total, created_at, updated_at
FROM purchase_order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.SKU, &it.Name, &it.Category,
			&it.QtyOrdered, &it.QtyReceived, &it.UnitCost, &it.TaxPercent, &it.LineTotal, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var o PurchaseOrder
	var status string
	err := row.Scan(&o.ID, &o.Number, &o.BranchID, &o.SupplierID, &status, &o.OrderDate,
		&o.Subtotal, &o.TaxTotal, &o.Total, &o.PaidTotal, &o.Outstanding, &o.Note, &o.CreatedBy,
		&o.OrderedAt, &o.ReceivedAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, shared.NotFoundf("purchase order")
		}
		return PurchaseOrder{}, err
	}
	o.Status = OrderStatus(status)
	return o, nil
}
