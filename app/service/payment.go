package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/events"
	"github.com/vibast-solutions/ms-go-lms-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lms-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lms-payments/config"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
	defaultBatchSize = int32(100)
)

type createCheckoutRequest interface {
	GetUserId() uint64
	GetCourseId() uint64
	GetAmount() int64
	GetCurrency() string
	GetPayerEmail() string
	GetDescription() string
	GetSuccessUrl() string
	GetFailureUrl() string
	GetProvider() string
}

type listPaymentsRequest interface {
	GetUserId() uint64
	GetCourseId() uint64
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

type listEnrollmentsRequest interface {
	GetUserId() uint64
	GetCourseId() uint64
	GetLimit() int32
	GetOffset() int32
}

type idempotencyCache interface {
	Seen(ctx context.Context, token string) (string, bool, error)
	Mark(ctx context.Context, token, outcome string) error
}

type enrollmentPublisher interface {
	PublishEnrollmentGranted(ctx context.Context, evt events.EnrollmentGranted) error
}

type metricsRecorder interface {
	ObserveOutcome(source, outcome string)
	IncWebhookRejected(provider, reason string)
	ObserveJob(job string, duration time.Duration, err error)
}

type PaymentService struct {
	paymentRepo    PaymentStore
	enrollmentRepo EnrollmentStore
	callbackRepo   CallbackStore
	tx             Transactor
	providerReg    *provider.Registry
	paymentsCfg    config.PaymentsConfig
	checkoutCfg    config.CheckoutConfig

	cache     idempotencyCache
	publisher enrollmentPublisher
	metrics   metricsRecorder

	logger logrus.FieldLogger
	now    func() time.Time
}

func NewPaymentService(
	paymentRepo PaymentStore,
	enrollmentRepo EnrollmentStore,
	callbackRepo CallbackStore,
	tx Transactor,
	providerReg *provider.Registry,
	paymentsCfg config.PaymentsConfig,
	checkoutCfg config.CheckoutConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		enrollmentRepo: enrollmentRepo,
		callbackRepo:   callbackRepo,
		tx:             tx,
		providerReg:    providerReg,
		paymentsCfg:    paymentsCfg,
		checkoutCfg:    checkoutCfg,
		logger:         factory.NewModuleLogger("payment-service"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *PaymentService) WithIdempotencyCache(cache idempotencyCache) *PaymentService {
	s.cache = cache
	return s
}

func (s *PaymentService) WithPublisher(publisher enrollmentPublisher) *PaymentService {
	s.publisher = publisher
	return s
}

func (s *PaymentService) WithMetrics(metrics metricsRecorder) *PaymentService {
	s.metrics = metrics
	return s
}

// CreateCheckout opens a provider invoice and records the pending payment for it.
func (s *PaymentService) CreateCheckout(ctx context.Context, req createCheckoutRequest) (*entity.Payment, error) {
	if req.GetUserId() == 0 || req.GetCourseId() == 0 || req.GetAmount() <= 0 {
		return nil, ErrInvalidRequest
	}
	payerEmail := strings.TrimSpace(req.GetPayerEmail())
	if payerEmail == "" {
		return nil, ErrInvalidRequest
	}

	providerCode := strings.TrimSpace(req.GetProvider())
	if providerCode == "" {
		providerCode = provider.XenditCode
	}
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	now := s.now()
	existing, err := s.enrollmentRepo.FindByUserCourse(ctx, req.GetUserId(), req.GetCourseId())
	if err != nil {
		return nil, err
	}
	if existing.HasAccess(now) {
		return nil, ErrAlreadyEnrolled
	}

	currency := strings.ToUpper(strings.TrimSpace(req.GetCurrency()))
	if currency == "" {
		currency = s.checkoutCfg.Currency
	}
	successURL := firstNonEmpty(req.GetSuccessUrl(), s.checkoutCfg.SuccessRedirectURL)
	failureURL := firstNonEmpty(req.GetFailureUrl(), s.checkoutCfg.FailureRedirectURL)
	description := strings.TrimSpace(req.GetDescription())
	if description == "" {
		description = fmt.Sprintf("Course %d enrollment", req.GetCourseId())
	}

	token := newIdempotencyToken(req.GetCourseId(), req.GetUserId(), now)

	invoice, err := providerClient.CreateInvoice(ctx, &provider.CreateInvoiceInput{
		ExternalID:  token,
		Amount:      req.GetAmount(),
		Currency:    currency,
		PayerEmail:  payerEmail,
		Description: description,
		SuccessURL:  successURL,
		FailureURL:  failureURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	payment := &entity.Payment{
		IdempotencyToken:   token,
		UserID:             req.GetUserId(),
		CourseID:           req.GetCourseId(),
		Amount:             req.GetAmount(),
		Currency:           currency,
		Status:             entity.PaymentStatusPending,
		Provider:           providerClient.Code(),
		PayerEmail:         payerEmail,
		ProviderInvoiceRef: normalizeOptionalString(invoice.InvoiceRef),
		CheckoutURL:        normalizeOptionalString(invoice.CheckoutURL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.tx.WithinTx(ctx, func(repos TxRepositories) error {
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}
		return repos.Events.Create(ctx, &entity.PaymentEvent{
			PaymentID:          payment.ID,
			EventType:          entity.PaymentEventCreated,
			NewStatus:          payment.Status,
			Actor:              "user:" + fmt.Sprint(payment.UserID),
			ProviderInvoiceRef: payment.ProviderInvoiceRef,
			CreatedAt:          now,
		})
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"idempotency_token": token,
			"invoice_ref":       invoice.InvoiceRef,
		}).Error("checkout invoice created but payment was not stored")
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return nil, ErrPaymentAlreadyExists
		}
		return nil, err
	}

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, req listPaymentsRequest) ([]*entity.Payment, error) {
	status := strings.ToLower(strings.TrimSpace(req.GetStatus()))
	if status != "" && !validPaymentStatus(status) {
		return nil, ErrInvalidRequest
	}

	filter := repository.PaymentFilter{
		UserID:    req.GetUserId(),
		CourseID:  req.GetCourseId(),
		HasStatus: status != "",
		Status:    status,
		Limit:     clampLimit(req.GetLimit()),
		Offset:    clampOffset(req.GetOffset()),
	}

	return s.paymentRepo.List(ctx, filter)
}

func (s *PaymentService) ListEnrollments(ctx context.Context, req listEnrollmentsRequest) ([]*entity.Enrollment, error) {
	return s.enrollmentRepo.List(ctx, repository.EnrollmentFilter{
		UserID:   req.GetUserId(),
		CourseID: req.GetCourseId(),
		Limit:    clampLimit(req.GetLimit()),
		Offset:   clampOffset(req.GetOffset()),
	})
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

// newIdempotencyToken builds inv_<course>_<user>_<unix millis>.
func newIdempotencyToken(courseID, userID uint64, now time.Time) string {
	return fmt.Sprintf("inv_%d_%d_%d", courseID, userID, now.UnixMilli())
}

func validPaymentStatus(status string) bool {
	switch status {
	case entity.PaymentStatusPending, entity.PaymentStatusPaid, entity.PaymentStatusFailed, entity.PaymentStatusExpired:
		return true
	default:
		return false
	}
}

func clampLimit(limit int32) int32 {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func clampOffset(offset int32) int32 {
	if offset < 0 {
		return 0
	}
	return offset
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
