package service

import (
	"context"
	"strings"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
)

// ConfirmPayment settles a pending payment on an administrator's word, exactly
// as if the provider had reported it paid in full.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uint64, adminRef string) (*ReconcileResult, error) {
	adminRef = strings.TrimSpace(adminRef)
	if paymentID == 0 || adminRef == "" {
		return nil, ErrInvalidRequest
	}

	in := ReconcileInput{
		ProviderStatus: provider.StatusPaid,
		Actor:          "admin:" + adminRef,
	}

	var result *ReconcileResult
	err := s.tx.WithinTx(ctx, func(repos TxRepositories) error {
		payment, err := repos.Payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}

		switch payment.Status {
		case entity.PaymentStatusPaid:
			result = &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Payment: payment}
			return nil
		case entity.PaymentStatusPending:
		default:
			return ErrInvalidState
		}

		in.IdempotencyToken = payment.IdempotencyToken
		in.PaidAmount = payment.Amount
		result, err = s.applyNotification(ctx, repos, payment, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	in.IdempotencyToken = result.Payment.IdempotencyToken
	s.afterCommit(ctx, in, result)
	return result, nil
}

// RejectPayment fails a pending payment. Settled payments cannot be rejected.
func (s *PaymentService) RejectPayment(ctx context.Context, paymentID uint64, adminRef string) (*ReconcileResult, error) {
	adminRef = strings.TrimSpace(adminRef)
	if paymentID == 0 || adminRef == "" {
		return nil, ErrInvalidRequest
	}

	in := ReconcileInput{
		ProviderStatus: provider.StatusFailed,
		Actor:          "admin:" + adminRef,
	}

	var result *ReconcileResult
	err := s.tx.WithinTx(ctx, func(repos TxRepositories) error {
		payment, err := repos.Payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if !payment.IsPending() {
			return ErrInvalidState
		}

		in.IdempotencyToken = payment.IdempotencyToken
		result, err = s.closePayment(ctx, repos, payment, in, entity.PaymentStatusFailed, entity.PaymentEventRejected, OutcomeClosed)
		if err != nil {
			return err
		}
		if result.Outcome != OutcomeClosed {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, in, result)
	return result, nil
}
