package provider

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProviderNotSupported  = errors.New("provider is not supported")
	ErrAuthentication        = errors.New("callback authentication failed")
	ErrVerifierNotConfigured = errors.New("callback verifier is not configured")
	ErrMalformedPayload      = errors.New("malformed callback payload")
)

// Provider statuses as reported in notifications. Anything else is passed
// through verbatim.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
	StatusFailed  = "FAILED"
)

type CreateInvoiceInput struct {
	ExternalID  string
	Amount      int64
	Currency    string
	PayerEmail  string
	Description string
	SuccessURL  string
	FailureURL  string
}

type Invoice struct {
	InvoiceRef  string
	CheckoutURL string
	Status      string
}

// CallbackRequest carries the parts of an inbound webhook a verifier needs.
type CallbackRequest struct {
	CallbackToken string
	ContentType   string
	Body          []byte
	// Truncated is set when the delivery exceeded the receiver's body limit.
	Truncated bool
}

// Notification is a verified, normalised provider payload.
type Notification struct {
	IdempotencyToken string `validate:"required,max=128"`
	Status           string `validate:"required"`
	PaidAmount       int64  `validate:"gte=0"`
	HasPaidAmount    bool
	InvoiceRef       string `validate:"max=128"`
	PaidAt           *time.Time
	Raw              string
}

type Provider interface {
	Code() string
	CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*Invoice, error)
	VerifyAndParseCallback(ctx context.Context, req *CallbackRequest) (*Notification, error)
	GetInvoice(ctx context.Context, invoiceRef string) (*Notification, error)
}
