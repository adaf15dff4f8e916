package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/repository"
)

type PaymentStore interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByToken(ctx context.Context, token string) (*entity.Payment, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
	Transition(ctx context.Context, payment *entity.Payment, from string) (bool, error)
	AttachEnrollment(ctx context.Context, paymentID, enrollmentID uint64, now time.Time) error
}

type EnrollmentStore interface {
	Create(ctx context.Context, enrollment *entity.Enrollment) error
	UpdateAccess(ctx context.Context, enrollment *entity.Enrollment) error
	FindByUserCourse(ctx context.Context, userID, courseID uint64) (*entity.Enrollment, error)
	FindByUserCourseForUpdate(ctx context.Context, userID, courseID uint64) (*entity.Enrollment, error)
	List(ctx context.Context, filter repository.EnrollmentFilter) ([]*entity.Enrollment, error)
}

type EventStore interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type CallbackStore interface {
	Create(ctx context.Context, callback *entity.PaymentCallback) error
}

// TxRepositories are bound to a single open transaction.
type TxRepositories struct {
	Payments    PaymentStore
	Enrollments EnrollmentStore
	Events      EventStore
}

// Transactor runs fn atomically. Any error returned by fn rolls back every
// write made through the given repositories.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

type SQLTransactor struct {
	runner *repository.TxRunner
}

func NewSQLTransactor(runner *repository.TxRunner) *SQLTransactor {
	return &SQLTransactor{runner: runner}
}

func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return t.runner.WithTx(ctx, func(tx repository.DBTX) error {
		return fn(TxRepositories{
			Payments:    repository.NewPaymentRepository(tx),
			Enrollments: repository.NewEnrollmentRepository(tx),
			Events:      repository.NewPaymentEventRepository(tx),
		})
	})
}
