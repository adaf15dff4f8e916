package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
)

type checkoutRequest struct {
	userID      uint64
	courseID    uint64
	amount      int64
	currency    string
	payerEmail  string
	description string
	successURL  string
	failureURL  string
	provider    string
}

func (r checkoutRequest) GetUserId() uint64       { return r.userID }
func (r checkoutRequest) GetCourseId() uint64     { return r.courseID }
func (r checkoutRequest) GetAmount() int64        { return r.amount }
func (r checkoutRequest) GetCurrency() string     { return r.currency }
func (r checkoutRequest) GetPayerEmail() string   { return r.payerEmail }
func (r checkoutRequest) GetDescription() string  { return r.description }
func (r checkoutRequest) GetSuccessUrl() string   { return r.successURL }
func (r checkoutRequest) GetFailureUrl() string   { return r.failureURL }
func (r checkoutRequest) GetProvider() string     { return r.provider }

type listRequest struct {
	userID   uint64
	courseID uint64
	status   string
	limit    int32
	offset   int32
}

func (r listRequest) GetUserId() uint64   { return r.userID }
func (r listRequest) GetCourseId() uint64 { return r.courseID }
func (r listRequest) GetStatus() string   { return r.status }
func (r listRequest) GetLimit() int32     { return r.limit }
func (r listRequest) GetOffset() int32    { return r.offset }

func invoiceProvider(calls *[]*provider.CreateInvoiceInput) *fakeProvider {
	return &fakeProvider{
		createFn: func(_ context.Context, input *provider.CreateInvoiceInput) (*provider.Invoice, error) {
			*calls = append(*calls, input)
			return &provider.Invoice{
				InvoiceRef:  "xnd_" + input.ExternalID,
				CheckoutURL: "https://checkout.example/" + input.ExternalID,
				Status:      provider.StatusPending,
			}, nil
		},
	}
}

func TestCreateCheckoutCreatesPendingPayment(t *testing.T) {
	store := newMemoryStore()
	var calls []*provider.CreateInvoiceInput
	svc := newTestService(store, invoiceProvider(&calls))
	svc.checkoutCfg.SuccessRedirectURL = "https://lms.example/paid"

	payment, err := svc.CreateCheckout(context.Background(), checkoutRequest{
		userID:     42,
		courseID:   7,
		amount:     150000,
		payerEmail: "learner@example.com",
		failureURL: "https://lms.example/failed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantToken := fmt.Sprintf("inv_7_42_%d", testNow.UnixMilli())
	if payment.IdempotencyToken != wantToken {
		t.Fatalf("expected token %s, got %s", wantToken, payment.IdempotencyToken)
	}
	if payment.Status != entity.PaymentStatusPending || payment.Currency != "IDR" || payment.Provider != provider.XenditCode {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.ProviderInvoiceRef == nil || *payment.ProviderInvoiceRef != "xnd_"+wantToken {
		t.Fatalf("unexpected invoice ref: %v", payment.ProviderInvoiceRef)
	}

	if len(calls) != 1 {
		t.Fatalf("expected one invoice call, got %d", len(calls))
	}
	if calls[0].ExternalID != wantToken || calls[0].SuccessURL != "https://lms.example/paid" || calls[0].FailureURL != "https://lms.example/failed" {
		t.Fatalf("unexpected invoice input: %+v", calls[0])
	}

	if got := store.eventTypes(); len(got) != 1 || got[0] != entity.PaymentEventCreated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestCreateCheckoutRefusesActiveEnrollment(t *testing.T) {
	store := newMemoryStore()
	store.seedEnrollment(entity.Enrollment{UserID: 42, CourseID: 7, Status: entity.EnrollmentStatusActive, EnrolledAt: testNow})
	var calls []*provider.CreateInvoiceInput
	svc := newTestService(store, invoiceProvider(&calls))

	_, err := svc.CreateCheckout(context.Background(), checkoutRequest{userID: 42, courseID: 7, amount: 1, payerEmail: "a@b.c"})
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected already enrolled, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatal("expected no invoice call")
	}
}

func TestCreateCheckoutAllowsExpiredAccess(t *testing.T) {
	store := newMemoryStore()
	expired := testNow.Add(-time.Hour)
	store.seedEnrollment(entity.Enrollment{UserID: 42, CourseID: 7, Status: entity.EnrollmentStatusActive, EnrolledAt: testNow.Add(-48 * time.Hour), AccessExpiresAt: &expired})
	var calls []*provider.CreateInvoiceInput
	svc := newTestService(store, invoiceProvider(&calls))

	if _, err := svc.CreateCheckout(context.Background(), checkoutRequest{userID: 42, courseID: 7, amount: 1, payerEmail: "a@b.c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateCheckoutProviderFailureStoresNothing(t *testing.T) {
	store := newMemoryStore()
	p := &fakeProvider{
		createFn: func(context.Context, *provider.CreateInvoiceInput) (*provider.Invoice, error) {
			return nil, errors.New("xendit request failed: status=503")
		},
	}
	svc := newTestService(store, p)

	_, err := svc.CreateCheckout(context.Background(), checkoutRequest{userID: 1, courseID: 2, amount: 10, payerEmail: "a@b.c"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	payments, _ := svc.ListPayments(context.Background(), listRequest{})
	if len(payments) != 0 {
		t.Fatal("expected no stored payment")
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	cases := []checkoutRequest{
		{courseID: 1, amount: 1, payerEmail: "a@b.c"},
		{userID: 1, amount: 1, payerEmail: "a@b.c"},
		{userID: 1, courseID: 1, payerEmail: "a@b.c"},
		{userID: 1, courseID: 1, amount: 1},
	}
	for i, req := range cases {
		if _, err := svc.CreateCheckout(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected invalid request, got %v", i, err)
		}
	}

	if _, err := svc.CreateCheckout(context.Background(), checkoutRequest{userID: 1, courseID: 1, amount: 1, payerEmail: "a@b.c", provider: "stripe"}); !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}

func TestGetAndListPayments(t *testing.T) {
	store := newMemoryStore()
	first := seedPending(store, "inv_1", 1, 10, 100)
	seedPending(store, "inv_2", 1, 11, 100)
	store.seedPayment(entity.Payment{IdempotencyToken: "inv_3", UserID: 2, CourseID: 10, Amount: 100, Status: entity.PaymentStatusPaid})
	svc := newTestService(store)

	got, err := svc.GetPayment(context.Background(), first.ID)
	if err != nil || got.IdempotencyToken != "inv_1" {
		t.Fatalf("unexpected get result: %+v %v", got, err)
	}
	if _, err := svc.GetPayment(context.Background(), 999); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	byUser, err := svc.ListPayments(context.Background(), listRequest{userID: 1})
	if err != nil || len(byUser) != 2 {
		t.Fatalf("expected 2 payments for user 1, got %d (%v)", len(byUser), err)
	}
	paid, err := svc.ListPayments(context.Background(), listRequest{status: "PAID"})
	if err != nil || len(paid) != 1 || paid[0].IdempotencyToken != "inv_3" {
		t.Fatalf("unexpected paid filter result: %+v (%v)", paid, err)
	}
	if _, err := svc.ListPayments(context.Background(), listRequest{status: "refunded"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request for unknown status, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultListLimit || clampLimit(10_000) != maxListLimit || clampLimit(25) != 25 {
		t.Fatal("unexpected clamp behaviour")
	}
	if clampOffset(-3) != 0 {
		t.Fatal("expected negative offset clamped to 0")
	}
}
