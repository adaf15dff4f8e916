package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/events"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lms-payments/app/repository"
)

type Outcome string

const (
	OutcomeUnknown          Outcome = "unknown"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeAmountMismatch   Outcome = "amount_mismatch"
	OutcomeGranted          Outcome = "granted"
	OutcomeClosed           Outcome = "closed"
	OutcomeIgnored          Outcome = "ignored"
)

type EnrollmentAction string

const (
	EnrollmentActionNone        EnrollmentAction = ""
	EnrollmentActionCreated     EnrollmentAction = "created"
	EnrollmentActionReactivated EnrollmentAction = "reactivated"
	EnrollmentActionUnchanged   EnrollmentAction = "unchanged"
)

// ReconcileInput is a provider notification reduced to what reconciliation needs.
type ReconcileInput struct {
	IdempotencyToken   string
	ProviderStatus     string
	PaidAmount         int64
	ProviderInvoiceRef string
	PaidAt             *time.Time
	// Actor is recorded on audit events, e.g. provider:xendit or admin:<ref>.
	Actor   string
	Payload string
}

type ReconcileResult struct {
	Outcome          Outcome
	Payment          *entity.Payment
	Enrollment       *entity.Enrollment
	EnrollmentAction EnrollmentAction
}

// terminal reports whether the payment behind the result can no longer change.
func (r *ReconcileResult) terminal() bool {
	switch r.Outcome {
	case OutcomeGranted, OutcomeClosed, OutcomeAmountMismatch, OutcomeAlreadyProcessed:
		return true
	default:
		return false
	}
}

// Reconcile merges one provider notification into payment and enrollment state
// inside a single transaction. Unknown tokens and already settled payments are
// outcomes, not errors.
func (s *PaymentService) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	token := strings.TrimSpace(in.IdempotencyToken)
	if token == "" {
		return nil, ErrInvalidRequest
	}
	in.IdempotencyToken = token
	in.ProviderStatus = strings.ToUpper(strings.TrimSpace(in.ProviderStatus))

	if s.cache != nil {
		if previous, seen, err := s.cache.Seen(ctx, token); err != nil {
			s.logger.WithError(err).WithField("idempotency_token", token).Warn("idempotency cache lookup failed")
		} else if seen {
			s.logger.WithFields(logrus.Fields{
				"idempotency_token": token,
				"previous_outcome":  previous,
			}).Debug("notification short-circuited by idempotency cache")
			result := &ReconcileResult{Outcome: OutcomeAlreadyProcessed}
			s.observeOutcome(in.Actor, result.Outcome)
			return result, nil
		}
	}

	var result *ReconcileResult
	err := s.tx.WithinTx(ctx, func(repos TxRepositories) error {
		payment, err := repos.Payments.FindByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}
		if payment == nil {
			result = &ReconcileResult{Outcome: OutcomeUnknown}
			return nil
		}

		result, err = s.applyNotification(ctx, repos, payment, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, in, result)
	return result, nil
}

func (s *PaymentService) applyNotification(ctx context.Context, repos TxRepositories, payment *entity.Payment, in ReconcileInput) (*ReconcileResult, error) {
	if !payment.IsPending() {
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Payment: payment}, nil
	}

	switch in.ProviderStatus {
	case provider.StatusPaid:
		if in.PaidAmount != payment.Amount {
			return s.closePayment(ctx, repos, payment, in, entity.PaymentStatusFailed, entity.PaymentEventAmountMismatch, OutcomeAmountMismatch)
		}
		return s.settleAndGrant(ctx, repos, payment, in)
	case provider.StatusExpired:
		return s.closePayment(ctx, repos, payment, in, entity.PaymentStatusExpired, entity.PaymentEventExpired, OutcomeClosed)
	case provider.StatusFailed:
		return s.closePayment(ctx, repos, payment, in, entity.PaymentStatusFailed, entity.PaymentEventFailed, OutcomeClosed)
	default:
		return &ReconcileResult{Outcome: OutcomeIgnored, Payment: payment}, nil
	}
}

func (s *PaymentService) closePayment(
	ctx context.Context,
	repos TxRepositories,
	payment *entity.Payment,
	in ReconcileInput,
	newStatus string,
	eventType string,
	outcome Outcome,
) (*ReconcileResult, error) {
	now := s.now()
	oldStatus := payment.Status

	updated := *payment
	updated.Status = newStatus
	updated.UpdatedAt = now
	if ref := strings.TrimSpace(in.ProviderInvoiceRef); ref != "" {
		updated.ProviderInvoiceRef = &ref
	}

	swapped, err := repos.Payments.Transition(ctx, &updated, oldStatus)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return s.lostTransition(ctx, repos, payment)
	}

	if err := repos.Events.Create(ctx, s.paymentEvent(&updated, eventType, &oldStatus, in, now)); err != nil {
		return nil, err
	}

	return &ReconcileResult{Outcome: outcome, Payment: &updated}, nil
}

func (s *PaymentService) settleAndGrant(ctx context.Context, repos TxRepositories, payment *entity.Payment, in ReconcileInput) (*ReconcileResult, error) {
	now := s.now()
	oldStatus := payment.Status

	paidAt := now
	if in.PaidAt != nil && !in.PaidAt.IsZero() {
		paidAt = in.PaidAt.UTC()
	}

	updated := *payment
	updated.Status = entity.PaymentStatusPaid
	updated.PaidAt = &paidAt
	updated.UpdatedAt = now
	if ref := strings.TrimSpace(in.ProviderInvoiceRef); ref != "" {
		updated.ProviderInvoiceRef = &ref
	}

	swapped, err := repos.Payments.Transition(ctx, &updated, oldStatus)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return s.lostTransition(ctx, repos, payment)
	}

	enrollment, action, err := s.activateEnrollment(ctx, repos, updated.UserID, updated.CourseID, now)
	if err != nil {
		return nil, err
	}

	if err := repos.Payments.AttachEnrollment(ctx, updated.ID, enrollment.ID, now); err != nil {
		return nil, err
	}
	enrollmentID := enrollment.ID
	updated.EnrollmentID = &enrollmentID

	if err := repos.Events.Create(ctx, s.paymentEvent(&updated, entity.PaymentEventPaid, &oldStatus, in, now)); err != nil {
		return nil, err
	}
	switch action {
	case EnrollmentActionCreated:
		err = repos.Events.Create(ctx, s.paymentEvent(&updated, entity.PaymentEventEnrollmentCreated, nil, in, now))
	case EnrollmentActionReactivated:
		err = repos.Events.Create(ctx, s.paymentEvent(&updated, entity.PaymentEventEnrollmentReactivated, nil, in, now))
	}
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{
		Outcome:          OutcomeGranted,
		Payment:          &updated,
		Enrollment:       enrollment,
		EnrollmentAction: action,
	}, nil
}

// lostTransition reports a status swap that matched no row: another writer
// settled the payment after it was read.
func (s *PaymentService) lostTransition(ctx context.Context, repos TxRepositories, payment *entity.Payment) (*ReconcileResult, error) {
	current, err := repos.Payments.FindByIDForUpdate(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = payment
	}
	return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Payment: current}, nil
}

// activateEnrollment finds or creates the (user, course) enrollment and makes
// sure it is active. An already active enrollment is left untouched.
func (s *PaymentService) activateEnrollment(ctx context.Context, repos TxRepositories, userID, courseID uint64, now time.Time) (*entity.Enrollment, EnrollmentAction, error) {
	enrollment, err := repos.Enrollments.FindByUserCourseForUpdate(ctx, userID, courseID)
	if err != nil {
		return nil, EnrollmentActionNone, err
	}

	if enrollment == nil {
		enrollment = &entity.Enrollment{
			UserID:          userID,
			CourseID:        courseID,
			Status:          entity.EnrollmentStatusActive,
			EnrolledAt:      now,
			AccessExpiresAt: s.accessExpiry(now),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := repos.Enrollments.Create(ctx, enrollment)
		if err == nil {
			return enrollment, EnrollmentActionCreated, nil
		}
		if !errors.Is(err, repository.ErrEnrollmentAlreadyExists) {
			return nil, EnrollmentActionNone, err
		}

		// A concurrent purchase of another payment for the same course won the insert.
		enrollment, err = repos.Enrollments.FindByUserCourseForUpdate(ctx, userID, courseID)
		if err != nil {
			return nil, EnrollmentActionNone, err
		}
		if enrollment == nil {
			return nil, EnrollmentActionNone, repository.ErrEnrollmentNotFound
		}
	}

	if enrollment.Status == entity.EnrollmentStatusActive {
		return enrollment, EnrollmentActionUnchanged, nil
	}

	enrollment.Status = entity.EnrollmentStatusActive
	enrollment.EnrolledAt = now
	enrollment.AccessExpiresAt = s.accessExpiry(now)
	enrollment.UpdatedAt = now
	if err := repos.Enrollments.UpdateAccess(ctx, enrollment); err != nil {
		return nil, EnrollmentActionNone, err
	}
	return enrollment, EnrollmentActionReactivated, nil
}

func (s *PaymentService) accessExpiry(now time.Time) *time.Time {
	if s.paymentsCfg.EnrollmentAccess <= 0 {
		return nil
	}
	expiresAt := now.Add(s.paymentsCfg.EnrollmentAccess)
	return &expiresAt
}

func (s *PaymentService) paymentEvent(payment *entity.Payment, eventType string, oldStatus *string, in ReconcileInput, now time.Time) *entity.PaymentEvent {
	event := &entity.PaymentEvent{
		PaymentID:          payment.ID,
		EventType:          eventType,
		OldStatus:          oldStatus,
		NewStatus:          payment.Status,
		Actor:              firstNonEmpty(in.Actor, "system"),
		ProviderInvoiceRef: payment.ProviderInvoiceRef,
		CreatedAt:          now,
	}
	if in.Payload != "" {
		payload := truncate(in.Payload, 65535)
		event.PayloadJSON = &payload
	}
	return event
}

// afterCommit runs side effects that must never influence the committed result.
func (s *PaymentService) afterCommit(ctx context.Context, in ReconcileInput, result *ReconcileResult) {
	logger := s.logger.WithFields(logrus.Fields{
		"idempotency_token": in.IdempotencyToken,
		"provider_status":   in.ProviderStatus,
		"actor":             in.Actor,
		"outcome":           string(result.Outcome),
	})
	if result.Payment != nil {
		logger = logger.WithField("payment_id", result.Payment.ID)
	}

	switch result.Outcome {
	case OutcomeAmountMismatch:
		expected := int64(0)
		if result.Payment != nil {
			expected = result.Payment.Amount
		}
		logger.WithFields(logrus.Fields{
			"expected_amount": expected,
			"paid_amount":     in.PaidAmount,
		}).Error("paid amount does not match payment amount")
	case OutcomeUnknown:
		logger.Warn("notification for unknown idempotency token")
	default:
		logger.Info("payment reconciled")
	}

	s.observeOutcome(in.Actor, result.Outcome)

	if s.cache != nil && result.terminal() {
		if err := s.cache.Mark(ctx, in.IdempotencyToken, string(result.Outcome)); err != nil {
			logger.WithError(err).Warn("idempotency cache mark failed")
		}
	}

	if s.publisher != nil && result.Outcome == OutcomeGranted && result.Enrollment != nil {
		err := s.publisher.PublishEnrollmentGranted(ctx, events.EnrollmentGranted{
			PaymentID:        result.Payment.ID,
			EnrollmentID:     result.Enrollment.ID,
			UserID:           result.Enrollment.UserID,
			CourseID:         result.Enrollment.CourseID,
			IdempotencyToken: in.IdempotencyToken,
			Action:           string(result.EnrollmentAction),
			Actor:            in.Actor,
			AccessExpiresAt:  result.Enrollment.AccessExpiresAt,
			OccurredAt:       s.now(),
		})
		if err != nil {
			logger.WithError(err).Error("enrollment granted event publish failed")
		}
	}
}

func (s *PaymentService) observeOutcome(actor string, outcome Outcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOutcome(actorSource(actor), string(outcome))
}

// actorSource strips the reference from an actor, leaving provider, admin or job.
func actorSource(actor string) string {
	source, _, _ := strings.Cut(actor, ":")
	return source
}
