package entity

import "time"

const (
	PaymentEventCreated               = "payment_created"
	PaymentEventPaid                  = "payment_paid"
	PaymentEventAmountMismatch        = "payment_amount_mismatch"
	PaymentEventFailed                = "payment_failed"
	PaymentEventExpired               = "payment_expired"
	PaymentEventRejected              = "payment_rejected"
	PaymentEventEnrollmentCreated     = "enrollment_created"
	PaymentEventEnrollmentReactivated = "enrollment_reactivated"
)

type PaymentEvent struct {
	ID uint64

	PaymentID uint64

	EventType string

	OldStatus *string
	NewStatus string
	Actor     string

	ProviderInvoiceRef *string
	PayloadJSON        *string

	CreatedAt time.Time
}
