package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/service"
	"github.com/vibast-solutions/ms-go-lms-payments/app/types"
)

func PaymentToTransport(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Id:                 item.ID,
		IdempotencyToken:   item.IdempotencyToken,
		UserId:             item.UserID,
		CourseId:           item.CourseID,
		Amount:             item.Amount,
		Currency:           item.Currency,
		Status:             item.Status,
		Provider:           item.Provider,
		PayerEmail:         item.PayerEmail,
		ProviderInvoiceRef: derefString(item.ProviderInvoiceRef),
		CheckoutUrl:        derefString(item.CheckoutURL),
		PaidAt:             formatTimePtr(item.PaidAt),
		EnrollmentId:       derefUint64(item.EnrollmentID),
		CreatedAt:          formatTime(item.CreatedAt),
		UpdatedAt:          formatTime(item.UpdatedAt),
	}
}

func PaymentsToTransport(items []*entity.Payment) []*types.Payment {
	out := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		out = append(out, PaymentToTransport(item))
	}
	return out
}

func EnrollmentToTransport(item *entity.Enrollment) *types.Enrollment {
	if item == nil {
		return nil
	}

	return &types.Enrollment{
		Id:              item.ID,
		UserId:          item.UserID,
		CourseId:        item.CourseID,
		Status:          item.Status,
		EnrolledAt:      formatTime(item.EnrolledAt),
		AccessExpiresAt: formatTimePtr(item.AccessExpiresAt),
		CreatedAt:       formatTime(item.CreatedAt),
		UpdatedAt:       formatTime(item.UpdatedAt),
	}
}

func EnrollmentsToTransport(items []*entity.Enrollment) []*types.Enrollment {
	out := make([]*types.Enrollment, 0, len(items))
	for _, item := range items {
		out = append(out, EnrollmentToTransport(item))
	}
	return out
}

// ReconcileResultToTransport renders an engine result. Message is a short
// human summary of the outcome.
func ReconcileResultToTransport(result *service.ReconcileResult) *types.ReconcileResponse {
	if result == nil {
		return nil
	}

	return &types.ReconcileResponse{
		Message:          OutcomeMessage(result.Outcome),
		Outcome:          string(result.Outcome),
		Payment:          PaymentToTransport(result.Payment),
		Enrollment:       EnrollmentToTransport(result.Enrollment),
		EnrollmentAction: string(result.EnrollmentAction),
	}
}

func OutcomeMessage(outcome service.Outcome) string {
	switch outcome {
	case service.OutcomeGranted:
		return "Payment confirmed and enrollment granted"
	case service.OutcomeClosed:
		return "Payment closed"
	case service.OutcomeAlreadyProcessed:
		return "Payment already processed"
	case service.OutcomeAmountMismatch:
		return "Paid amount does not match payment amount"
	case service.OutcomeUnknown:
		return "Unknown payment reference"
	case service.OutcomeIgnored:
		return "Notification ignored"
	default:
		return string(outcome)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefUint64(value *uint64) uint64 {
	if value == nil {
		return 0
	}
	return *value
}
