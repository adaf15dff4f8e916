package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
	"go.uber.org/multierr"
)

const (
	JobReconcile     = "reconcile"
	JobExpirePending = "expire_pending"
)

// RunReconcileBatch asks the provider about stale pending invoices and feeds
// terminal answers through Reconcile.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { s.observeJob(JobReconcile, time.Since(started), err) }()

	before := s.now().Add(-s.paymentsCfg.ReconcileStaleAfter)
	items, err := s.paymentRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var errs error
	for _, payment := range items {
		if payment == nil || payment.ProviderInvoiceRef == nil || strings.TrimSpace(*payment.ProviderInvoiceRef) == "" {
			continue
		}

		providerClient, err := s.providerReg.Get(payment.Provider)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %d: %w", payment.ID, err))
			continue
		}

		notification, err := providerClient.GetInvoice(ctx, *payment.ProviderInvoiceRef)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %d: %w", payment.ID, err))
			continue
		}

		switch notification.Status {
		case provider.StatusPaid, provider.StatusExpired, provider.StatusFailed:
		default:
			continue
		}

		token := notification.IdempotencyToken
		if token == "" {
			token = payment.IdempotencyToken
		}
		if token != payment.IdempotencyToken {
			errs = multierr.Append(errs, fmt.Errorf("payment %d: invoice belongs to %q", payment.ID, token))
			continue
		}

		_, err = s.Reconcile(ctx, ReconcileInput{
			IdempotencyToken:   token,
			ProviderStatus:     notification.Status,
			PaidAmount:         notification.PaidAmount,
			ProviderInvoiceRef: notification.InvoiceRef,
			PaidAt:             notification.PaidAt,
			Actor:              "job:" + JobReconcile,
			Payload:            notification.Raw,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %d: %w", payment.ID, err))
		}
	}

	return errs
}

// RunExpirePendingBatch expires pending payments older than the pending timeout.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { s.observeJob(JobExpirePending, time.Since(started), err) }()

	if s.paymentsCfg.PendingTimeout <= 0 {
		return nil
	}

	cutoff := s.now().Add(-s.paymentsCfg.PendingTimeout)
	items, err := s.paymentRepo.ListPendingCreatedBefore(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var errs error
	for _, payment := range items {
		if payment == nil || !payment.IsPending() {
			continue
		}

		_, err := s.Reconcile(ctx, ReconcileInput{
			IdempotencyToken: payment.IdempotencyToken,
			ProviderStatus:   provider.StatusExpired,
			Actor:            "job:" + JobExpirePending,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %d: %w", payment.ID, err))
		}
	}

	return errs
}

func (s *PaymentService) observeJob(job string, duration time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveJob(job, duration, err)
}
