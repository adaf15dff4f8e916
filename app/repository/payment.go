package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

const paymentColumns = `
	id, idempotency_token, user_id, course_id, amount, currency, status, provider, payer_email,
	provider_invoice_ref, checkout_url, paid_at, enrollment_id, created_at, updated_at
`

type PaymentFilter struct {
	UserID    uint64
	CourseID  uint64
	HasStatus bool
	Status    string
	Limit     int32
	Offset    int32
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			idempotency_token, user_id, course_id, amount, currency, status, provider, payer_email,
			provider_invoice_ref, checkout_url, paid_at, enrollment_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.IdempotencyToken,
		payment.UserID,
		payment.CourseID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Provider,
		payment.PayerEmail,
		nullableStringValue(payment.ProviderInvoiceRef),
		nullableStringValue(payment.CheckoutURL),
		nullableTimeValue(payment.PaidAt),
		nullableUint64Value(payment.EnrollmentID),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

// Transition writes the settlement fields of payment only while the stored
// status still equals from. It reports false when another writer got there first.
func (r *PaymentRepository) Transition(ctx context.Context, payment *entity.Payment, from string) (bool, error) {
	query := `
		UPDATE payments SET
			status = ?,
			provider_invoice_ref = ?,
			paid_at = ?,
			enrollment_id = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Status,
		nullableStringValue(payment.ProviderInvoiceRef),
		nullableTimeValue(payment.PaidAt),
		nullableUint64Value(payment.EnrollmentID),
		payment.UpdatedAt,
		payment.ID,
		from,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PaymentRepository) AttachEnrollment(ctx context.Context, paymentID, enrollmentID uint64, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET enrollment_id = ?, updated_at = ? WHERE id = ?`,
		enrollmentID, now, paymentID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? FOR UPDATE`, id)
}

func (r *PaymentRepository) FindByToken(ctx context.Context, token string) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_token = ? LIMIT 1`, token)
}

func (r *PaymentRepository) FindByTokenForUpdate(ctx context.Context, token string) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_token = ? LIMIT 1 FOR UPDATE`, token)
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.CourseID > 0 {
		conditions = append(conditions, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.queryMany(ctx, query, args...)
}

// ListPendingCreatedBefore returns pending payments created at or before cutoff, oldest first.
func (r *PaymentRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryMany(ctx, query, entity.PaymentStatusPending, cutoff, limit)
}

// ListForReconcile returns pending payments with a provider invoice that were
// not touched since before.
func (r *PaymentRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND provider_invoice_ref IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.queryMany(ctx, query, entity.PaymentStatusPending, before, limit)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var invoiceRef sql.NullString
	var checkoutURL sql.NullString
	var paidAt sql.NullTime
	var enrollmentID sql.NullInt64

	err := scan.Scan(
		&payment.ID,
		&payment.IdempotencyToken,
		&payment.UserID,
		&payment.CourseID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Provider,
		&payment.PayerEmail,
		&invoiceRef,
		&checkoutURL,
		&paidAt,
		&enrollmentID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.ProviderInvoiceRef = stringPtrFromNull(invoiceRef)
	payment.CheckoutURL = stringPtrFromNull(checkoutURL)
	payment.PaidAt = timePtrFromNull(paidAt)
	payment.EnrollmentID = uint64PtrFromNull(enrollmentID)

	return nil
}
