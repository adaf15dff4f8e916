package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
)

const maxStoredPayload = 65535

type handleProviderCallbackRequest interface {
	GetProvider() string
	GetCallbackToken() string
	GetContentType() string
	GetPayload() []byte
	GetTruncated() bool
}

// HandleProviderCallback authenticates an inbound provider notification,
// normalises it and feeds it through Reconcile.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, req handleProviderCallbackRequest) (*ReconcileResult, error) {
	providerClient, err := s.providerReg.Get(req.GetProvider())
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}
	code := providerClient.Code()
	logger := s.logger.WithField("provider", code)

	notification, err := providerClient.VerifyAndParseCallback(ctx, &provider.CallbackRequest{
		CallbackToken: req.GetCallbackToken(),
		ContentType:   req.GetContentType(),
		Body:          req.GetPayload(),
		Truncated:     req.GetTruncated(),
	})
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrVerifierNotConfigured):
			logger.WithError(err).Error("webhook_auth_failed: callback token is not configured")
			s.rejectCallback(ctx, code, "", req.GetPayload(), "not_configured", err)
			return nil, fmt.Errorf("%w: %v", ErrCallbackUnauthorized, err)
		case errors.Is(err, provider.ErrAuthentication):
			logger.WithError(err).Warn("webhook_auth_failed")
			s.rejectCallback(ctx, code, "", req.GetPayload(), "authentication", err)
			return nil, fmt.Errorf("%w: %v", ErrCallbackUnauthorized, err)
		case errors.Is(err, provider.ErrMalformedPayload):
			logger.WithError(err).Warn("webhook payload rejected")
			s.rejectCallback(ctx, code, "", req.GetPayload(), "malformed", err)
			return nil, fmt.Errorf("%w: %v", ErrCallbackMalformed, err)
		default:
			return nil, err
		}
	}

	result, err := s.Reconcile(ctx, ReconcileInput{
		IdempotencyToken:   notification.IdempotencyToken,
		ProviderStatus:     notification.Status,
		PaidAmount:         notification.PaidAmount,
		ProviderInvoiceRef: notification.InvoiceRef,
		PaidAt:             notification.PaidAt,
		Actor:              "provider:" + code,
		Payload:            notification.Raw,
	})
	if err != nil {
		logger.WithError(err).WithField("idempotency_token", notification.IdempotencyToken).Error("reconciliation failed")
		s.logCallback(ctx, code, notification.IdempotencyToken, req.GetPayload(), entity.PaymentCallbackRejected, nil, nil, err)
		return nil, err
	}

	var paymentID *uint64
	if result.Payment != nil {
		id := result.Payment.ID
		paymentID = &id
	}
	outcome := string(result.Outcome)
	s.logCallback(ctx, code, notification.IdempotencyToken, req.GetPayload(), entity.PaymentCallbackProcessed, paymentID, &outcome, nil)

	return result, nil
}

func (s *PaymentService) rejectCallback(ctx context.Context, code, token string, payload []byte, reason string, cause error) {
	if s.metrics != nil {
		s.metrics.IncWebhookRejected(code, reason)
	}
	s.logCallback(ctx, code, token, payload, entity.PaymentCallbackRejected, nil, nil, cause)
}

// logCallback is best effort; the callback log never decides the response.
func (s *PaymentService) logCallback(
	ctx context.Context,
	code string,
	token string,
	payload []byte,
	status string,
	paymentID *uint64,
	outcome *string,
	cause error,
) {
	if s.callbackRepo == nil {
		return
	}

	now := s.now()
	callback := &entity.PaymentCallback{
		PaymentID:        paymentID,
		Provider:         strings.ToLower(code),
		IdempotencyToken: truncate(strings.TrimSpace(token), 128),
		Status:           status,
		Outcome:          outcome,
		PayloadJSON:      truncate(string(payload), maxStoredPayload),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if cause != nil {
		msg := truncate(cause.Error(), 1024)
		callback.Error = &msg
	}

	if err := s.callbackRepo.Create(ctx, callback); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"provider": code,
			"status":   status,
		}).Warn("payment callback log write failed")
	}
}
