package clinic

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

// TxRepository exposes the transactional appointment operations.
type TxRepository interface {
	InsertAppointment(ctx context.Context, appt Appointment) (int64, error)
	GetAppointmentForUpdate(ctx context.Context, id int64) (Appointment, error)
	UpdateAppointment(ctx context.Context, appt Appointment) error
	InsertItem(ctx context.Context, item AppointmentItem) (int64, error)
	UpdateItem(ctx context.Context, item AppointmentItem) error
	DeleteItem(ctx context.Context, appointmentID, itemID int64) error
	InsertPayment(ctx context.Context, payment AppointmentPayment) error
	ListNumbersForDay(ctx context.Context, prefix string) ([]string, error)
}

// Tx bundles the per-module transaction views over one database transaction.
type Tx interface {
	Clinic() TxRepository
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
}

// Repository persists appointments in PostgreSQL.
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

func (b txBundle) Clinic() TxRepository              { return &txRepository{tx: b.tx} }
func (b txBundle) Inventory() inventory.TxRepository { return inventory.NewTxRepository(b.tx) }
func (b txBundle) Journals() journals.TxRepository   { return journals.NewTxRepository(b.tx) }

// WithTx runs the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txBundle{tx: tx})
	})
}

const appointmentColumns = `id, number, branch_id, pet_id, customer_id, vet_id, status, visit_date, diagnosis,
discount_amount, discount_percent, tax_percent,
subtotal, discount_total, tax_total, total, paid_total, change_total, outstanding,
created_by, completed_at, cancelled_at, created_at, updated_at`

// Get loads an appointment with items and payments.
func (r *Repository) Get(ctx context.Context, id int64) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM clinic_appointments WHERE id=$1`, id))
	if err != nil {
		return Appointment{}, err
	}
	if appt.Items, err = listItems(ctx, r.pool, id); err != nil {
		return Appointment{}, err
	}
	if appt.Payments, err = listPayments(ctx, r.pool, id); err != nil {
		return Appointment{}, err
	}
	return appt, nil
}

// List returns appointments matching the filter, newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM clinic_appointments
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = 0 OR vet_id = $2)
  AND ($3 = '' OR status = $3)
  AND visit_date BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY visit_date DESC, id DESC
LIMIT $6`, filter.BranchID, filter.VetID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	appointments := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	return appointments, rows.Err()
}

func (r *txRepository) InsertAppointment(ctx context.Context, appt Appointment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO clinic_appointments
(number, branch_id, pet_id, customer_id, vet_id, status, visit_date, diagnosis,
 discount_amount, discount_percent, tax_percent, subtotal, discount_total, tax_total, total,
 paid_total, change_total, outstanding, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())
RETURNING id`,
		appt.Number, appt.BranchID, appt.PetID, appt.CustomerID, appt.VetID, string(appt.Status), appt.VisitDate, appt.Diagnosis,
		appt.DiscountAmount, appt.DiscountPercent, appt.TaxPercent,
		appt.Subtotal, appt.DiscountTotal, appt.TaxTotal, appt.Total,
		appt.PaidTotal, appt.ChangeTotal, appt.Outstanding, appt.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) GetAppointmentForUpdate(ctx context.Context, id int64) (Appointment, error) {
	appt, err := scanAppointment(r.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM clinic_appointments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Appointment{}, err
	}
	appt.Items, err = listItems(ctx, r.tx, id)
	return appt, err
}

func (r *txRepository) UpdateAppointment(ctx context.Context, appt Appointment) error {
	tag, err := r.tx.Exec(ctx, `UPDATE clinic_appointments
SET status=$2, diagnosis=$3, discount_amount=$4, discount_percent=$5, tax_percent=$6,
    subtotal=$7, discount_total=$8, tax_total=$9, total=$10,
    paid_total=$11, change_total=$12, outstanding=$13, completed_at=$14, cancelled_at=$15, updated_at=NOW()
WHERE id=$1`,
		appt.ID, string(appt.Status), appt.Diagnosis, appt.DiscountAmount, appt.DiscountPercent, appt.TaxPercent,
		appt.Subtotal, appt.DiscountTotal, appt.TaxTotal, appt.Total,
		appt.PaidTotal, appt.ChangeTotal, appt.Outstanding, appt.CompletedAt, appt.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("appointment %d", appt.ID)
	}
	return nil
}

func (r *txRepository) InsertItem(ctx context.Context, item AppointmentItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO clinic_appointment_items
(appointment_id, kind, product_id, variant_id, sku, name, category, qty, unit_price, discount_amount, discount_percent,
 tax_percent, gross, discount_total, tax_amount, line_total, cogs, is_prescription, picked_up_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())
RETURNING id`,
		item.AppointmentID, string(item.Kind), item.ProductID, item.VariantID, item.SKU, item.Name, item.Category,
		item.Qty, item.UnitPrice, item.DiscountAmount, item.DiscountPercent,
		item.TaxPercent, item.Gross, item.DiscountTotal, item.TaxAmount, item.LineTotal, item.COGS,
		item.IsPrescription, item.PickedUpAt).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item AppointmentItem) error {
	tag, err := r.tx.Exec(ctx, `UPDATE clinic_appointment_items
SET qty=$3, unit_price=$4, discount_amount=$5, discount_percent=$6, tax_percent=$7,
    gross=$8, discount_total=$9, tax_amount=$10, line_total=$11, cogs=$12, is_prescription=$13, picked_up_at=$14, updated_at=NOW()
WHERE id=$1 AND appointment_id=$2`,
		item.ID, item.AppointmentID, item.Qty, item.UnitPrice, item.DiscountAmount, item.DiscountPercent, item.TaxPercent,
		item.Gross, item.DiscountTotal, item.TaxAmount, item.LineTotal, item.COGS, item.IsPrescription, item.PickedUpAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("appointment item %d", item.ID)
	}
	return nil
}

func (r *txRepository) DeleteItem(ctx context.Context, appointmentID, itemID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM clinic_appointment_items WHERE id=$1 AND appointment_id=$2`, itemID, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("appointment item %d", itemID)
	}
	return nil
}

func (r *txRepository) InsertPayment(ctx context.Context, payment AppointmentPayment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO clinic_appointment_payments (appointment_id, method, amount, tendered, reference, paid_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		payment.AppointmentID, payment.Method, payment.Amount, payment.Tendered, payment.Reference, payment.PaidAt)
	return err
}

func (r *txRepository) ListNumbersForDay(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM clinic_appointments WHERE number LIKE $1 || '%'`, prefix)
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

func listItems(ctx context.Context, q querier, appointmentID int64) ([]AppointmentItem, error) {
	rows, err := q.Query(ctx, `SELECT id, appointment_id, kind, product_id, variant_id, sku, name, category, qty, unit_price,
discount_amount, discount_percent, tax_percent, gross, discount_total, tax_amount, line_total, cogs, is_prescription, picked_up_at, created_at, updated_at
FROM clinic_appointment_items WHERE appointment_id=$1 ORDER BY id ASC`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AppointmentItem{}
	for rows.Next() {
		var it AppointmentItem
		var kind string
		if err := rows.Scan(&it.ID, &it.AppointmentID, &kind, &it.ProductID, &it.VariantID, &it.SKU, &it.Name, &it.Category,
			&it.Qty, &it.UnitPrice, &it.DiscountAmount, &it.DiscountPercent, &it.TaxPercent,
			&it.Gross, &it.DiscountTotal, &it.TaxAmount, &it.LineTotal, &it.COGS,
			&it.IsPrescription, &it.PickedUpAt, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.Kind = ItemKind(kind)
		items = append(items, it)
	}
	return items, rows.Err()
}

func listPayments(ctx context.Context, q querier, appointmentID int64) ([]AppointmentPayment, error) {
	rows, err := q.Query(ctx, `SELECT id, appointment_id, method, amount, tendered, reference, paid_at
FROM clinic_appointment_payments WHERE appointment_id=$1 ORDER BY id ASC`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []AppointmentPayment{}
	for rows.Next() {
		var p AppointmentPayment
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Method, &p.Amount, &p.Tendered, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.Number, &a.BranchID, &a.PetID, &a.CustomerID, &a.VetID, &status, &a.VisitDate, &a.Diagnosis,
		&a.DiscountAmount, &a.DiscountPercent, &a.TaxPercent,
		&a.Subtotal, &a.DiscountTotal, &a.TaxTotal, &a.Total, &a.PaidTotal, &a.ChangeTotal, &a.Outstanding,
		&a.CreatedBy, &a.CompletedAt, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, shared.NotFoundf("appointment")
		}
		return Appointment{}, err
	}
	a.Status = AppointmentStatus(status)
	return a, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
