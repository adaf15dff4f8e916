package entity

import "time"

const (
	PaymentCallbackProcessed = "processed"
	PaymentCallbackRejected  = "rejected"
)

// PaymentCallback logs one inbound provider notification, accepted or not.
type PaymentCallback struct {
	ID uint64

	PaymentID *uint64

	Provider         string
	IdempotencyToken string
	Status           string
	Outcome          *string
	PayloadJSON      string
	Error            *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
