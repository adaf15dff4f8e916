package entity

import "time"

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
	PaymentStatusExpired = "expired"
)

// Payment is one checkout attempt. Rows are never deleted.
type Payment struct {
	ID uint64

	IdempotencyToken string

	UserID   uint64
	CourseID uint64

	Amount   int64
	Currency string

	Status     string
	Provider   string
	PayerEmail string

	ProviderInvoiceRef *string
	CheckoutURL        *string

	PaidAt       *time.Time
	EnrollmentID *uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) IsPending() bool {
	return p != nil && p.Status == PaymentStatusPending
}
