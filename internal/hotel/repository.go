package hotel

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

// TxRepository exposes the transactional booking operations.
type TxRepository interface {
	InsertBooking(ctx context.Context, booking Booking) (int64, error)
	GetBookingForUpdate(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) error
	InsertService(ctx context.Context, service BookingService) (int64, error)
	InsertConsumable(ctx context.Context, consumable BookingConsumable) (int64, error)
	InsertPayment(ctx context.Context, payment BookingPayment) error
	ListNumbersForDay(ctx context.Context, prefix string) ([]string, error)
}

// Tx bundles the per-module transaction views over one database transaction.
type Tx interface {
	Hotel() TxRepository
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (Booking, error)
	List(ctx context.Context, filter ListFilter) ([]Booking, error)
}

// Repository persists bookings in PostgreSQL.
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

func (b txBundle) Hotel() TxRepository               { return &txRepository{tx: b.tx} }
func (b txBundle) Inventory() inventory.TxRepository { return inventory.NewTxRepository(b.tx) }
func (b txBundle) Journals() journals.TxRepository   { return journals.NewTxRepository(b.tx) }

// WithTx runs the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txBundle{tx: tx})
	})
}

const bookingColumns = `id, number, branch_id, pet_id, customer_id, room_id, status, check_in_date, check_out_date,
nights, daily_rate, room_charge, service_total, consumable_total, discount_amount, discount_percent, discount_total,
tax_percent, tax_total, total, paid_total, outstanding, note, created_by,
checked_in_at, checked_out_at, cancelled_at, created_at, updated_at`

// Get loads a booking with services, consumables and payments.
func (r *Repository) Get(ctx context.Context, id int64) (Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM hotel_bookings WHERE id=$1`, id))
	if err != nil {
		return Booking{}, err
	}
	if booking.Services, err = listServices(ctx, r.pool, id); err != nil {
		return Booking{}, err
	}
	if booking.Consumables, err = listConsumables(ctx, r.pool, id); err != nil {
		return Booking{}, err
	}
	if booking.Payments, err = listPayments(ctx, r.pool, id); err != nil {
		return Booking{}, err
	}
	return booking, nil
}

// List returns bookings matching the filter, newest first, without children.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM hotel_bookings
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = 0 OR room_id = $2)
  AND ($3 = '' OR status = $3)
ORDER BY check_in_date DESC, id DESC
LIMIT $4`, filter.BranchID, filter.RoomID, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := []Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (r *txRepository) InsertBooking(ctx context.Context, booking Booking) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO hotel_bookings
(number, branch_id, pet_id, customer_id, room_id, status, check_in_date, check_out_date, nights, daily_rate, room_charge,
 service_total, consumable_total, discount_amount, discount_percent, discount_total, tax_percent, tax_total, total,
 paid_total, outstanding, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,NOW(),NOW())
RETURNING id`,
		booking.Number, booking.BranchID, booking.PetID, booking.CustomerID, booking.RoomID, string(booking.Status),
		booking.CheckInDate, booking.CheckOutDate, booking.Nights, booking.DailyRate, booking.RoomCharge,
		booking.ServiceTotal, booking.ConsumableTotal, booking.DiscountAmount, booking.DiscountPercent, booking.DiscountTotal,
		booking.TaxPercent, booking.TaxTotal, booking.Total, booking.PaidTotal, booking.Outstanding,
		booking.Note, booking.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) GetBookingForUpdate(ctx context.Context, id int64) (Booking, error) {
	booking, err := scanBooking(r.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM hotel_bookings WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Booking{}, err
	}
	if booking.Services, err = listServices(ctx, r.tx, id); err != nil {
		return Booking{}, err
	}
	booking.Consumables, err = listConsumables(ctx, r.tx, id)
	return booking, err
}

func (r *txRepository) UpdateBooking(ctx context.Context, booking Booking) error {
	tag, err := r.tx.Exec(ctx, `UPDATE hotel_bookings
SET status=$2, service_total=$3, consumable_total=$4, discount_amount=$5, discount_percent=$6, discount_total=$7,
    tax_total=$8, total=$9, paid_total=$10, outstanding=$11, note=$12,
    checked_in_at=$13, checked_out_at=$14, cancelled_at=$15, updated_at=NOW()
WHERE id=$1`,
		booking.ID, string(booking.Status), booking.ServiceTotal, booking.ConsumableTotal,
		booking.DiscountAmount, booking.DiscountPercent, booking.DiscountTotal,
		booking.TaxTotal, booking.Total, booking.PaidTotal, booking.Outstanding, booking.Note,
		booking.CheckedInAt, booking.CheckedOutAt, booking.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("booking %d", booking.ID)
	}
	return nil
}

func (r *txRepository) InsertService(ctx context.Context, service BookingService) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO hotel_booking_services
(booking_id, product_id, sku, name, qty, unit_price, line_total, added_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id`,
		service.BookingID, service.ProductID, service.SKU, service.Name,
		service.Qty, service.UnitPrice, service.LineTotal, service.AddedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertConsumable(ctx context.Context, consumable BookingConsumable) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO hotel_booking_consumables
(booking_id, product_id, variant_id, sku, name, category, qty, unit_price, line_total, cogs, consumed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`,
		consumable.BookingID, consumable.ProductID, consumable.VariantID, consumable.SKU, consumable.Name, consumable.Category,
		consumable.Qty, consumable.UnitPrice, consumable.LineTotal, consumable.COGS, consumable.ConsumedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPayment(ctx context.Context, payment BookingPayment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO hotel_booking_payments (booking_id, method, amount, tendered, reference, paid_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		payment.BookingID, payment.Method, payment.Amount, payment.Tendered, payment.Reference, payment.PaidAt)
	return err
}

func (r *txRepository) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM hotel_bookings WHERE number LIKE $1 || '%'`, prefix)
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

func listServices(ctx context.Context, q querier, bookingID int64) ([]BookingService, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, product_id, sku, name, qty, unit_price, line_total, added_at
FROM hotel_booking_services WHERE booking_id=$1 ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	services := []BookingService{}
	for rows.Next() {
		var s BookingService
		if err := rows.Scan(&s.ID, &s.BookingID, &s.ProductID, &s.SKU, &s.Name, &s.Qty, &s.UnitPrice, &s.LineTotal, &s.AddedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func listConsumables(ctx context.Context, q querier, bookingID int64) ([]BookingConsumable, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, product_id, variant_id, sku, name, category, qty, unit_price, line_total, cogs, consumed_at
FROM hotel_booking_consumables WHERE booking_id=$1 ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	consumables := []BookingConsumable{}
	for rows.Next() {
		var c BookingConsumable
		if err := rows.Scan(&c.ID, &c.BookingID, &c.ProductID, &c.VariantID, &c.SKU, &c.Name, &c.Category,
			&c.Qty, &c.UnitPrice, &c.LineTotal, &c.COGS, &c.ConsumedAt); err != nil {
			return nil, err
		}
		consumables = append(consumables, c)
	}
	return consumables, rows.Err()
}

func listPayments(ctx context.Context, q querier, bookingID int64) ([]BookingPayment, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, method, amount, tendered, reference, paid_at
FROM hotel_booking_payments WHERE booking_id=$1 ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []BookingPayment{}
	for rows.Next() {
		var p BookingPayment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Method, &p.Amount, &p.Tendered, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var status string
	err := row.Scan(&b.ID, &b.Number, &b.BranchID, &b.PetID, &b.CustomerID, &b.RoomID, &status,
		&b.CheckInDate, &b.CheckOutDate, &b.Nights, &b.DailyRate, &b.RoomCharge,
		&b.ServiceTotal, &b.ConsumableTotal, &b.DiscountAmount, &b.DiscountPercent, &b.DiscountTotal,
		&b.TaxPercent, &b.TaxTotal, &b.Total, &b.PaidTotal, &b.Outstanding, &b.Note, &b.CreatedBy,
		&b.CheckedInAt, &b.CheckedOutAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, shared.NotFoundf("booking")
		}
		return Booking{}, err
	}
	b.Status = BookingStatus(status)
	return b, nil
}
