package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lms-payments/app/events"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lms-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lms-payments/config"
)

// memoryStore keeps every table in memory. Transactions are serialised and
// roll back to a snapshot on error.
type memoryStore struct {
	mu sync.Mutex

	payments    map[uint64]*entity.Payment
	enrollments map[uint64]*entity.Enrollment
	events      []*entity.PaymentEvent
	callbacks   []*entity.PaymentCallback

	nextPaymentID    uint64
	nextEnrollmentID uint64

	failEnrollmentCreate error
	failEventType        string
	failEventErr         error

	// Single-use hooks run under mu, standing in for a concurrent writer
	// that commits between our locked read and our write.
	beforeTransition       func(current *entity.Payment)
	beforeEnrollmentCreate func(s *memoryStore) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		payments:         map[uint64]*entity.Payment{},
		enrollments:      map[uint64]*entity.Enrollment{},
		nextPaymentID:    1,
		nextEnrollmentID: 1,
	}
}

type memorySnapshot struct {
	payments         map[uint64]entity.Payment
	enrollments      map[uint64]entity.Enrollment
	events           int
	nextPaymentID    uint64
	nextEnrollmentID uint64
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		payments:         make(map[uint64]entity.Payment, len(s.payments)),
		enrollments:      make(map[uint64]entity.Enrollment, len(s.enrollments)),
		events:           len(s.events),
		nextPaymentID:    s.nextPaymentID,
		nextEnrollmentID: s.nextEnrollmentID,
	}
	for id, p := range s.payments {
		snap.payments[id] = *p
	}
	for id, e := range s.enrollments {
		snap.enrollments[id] = *e
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = make(map[uint64]*entity.Payment, len(snap.payments))
	for id, p := range snap.payments {
		item := p
		s.payments[id] = &item
	}
	s.enrollments = make(map[uint64]*entity.Enrollment, len(snap.enrollments))
	for id, e := range snap.enrollments {
		item := e
		s.enrollments[id] = &item
	}
	s.events = s.events[:snap.events]
	s.nextPaymentID = snap.nextPaymentID
	s.nextEnrollmentID = snap.nextEnrollmentID
}

func (s *memoryStore) seedPayment(p entity.Payment) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextPaymentID
	s.nextPaymentID++
	if p.Currency == "" {
		p.Currency = "IDR"
	}
	if p.Provider == "" {
		p.Provider = provider.XenditCode
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		p.UpdatedAt = p.CreatedAt
	}
	s.payments[p.ID] = &p
	out := p
	return &out
}

func (s *memoryStore) seedEnrollment(e entity.Enrollment) *entity.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextEnrollmentID
	s.nextEnrollmentID++
	s.enrollments[e.ID] = &e
	out := e
	return &out
}

func (s *memoryStore) payment(id uint64) entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.payments[id]
}

func (s *memoryStore) enrollmentsFor(userID, courseID uint64) []entity.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entity.Enrollment, 0)
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			items = append(items, *e)
		}
	}
	return items
}

func (s *memoryStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.EventType)
	}
	return types
}

func (s *memoryStore) callbackLog() []entity.PaymentCallback {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entity.PaymentCallback, 0, len(s.callbacks))
	for _, c := range s.callbacks {
		items = append(items, *c)
	}
	return items
}

type memoryTransactor struct {
	mu    sync.Mutex
	store *memoryStore
}

func (t *memoryTransactor) WithinTx(_ context.Context, fn func(repos TxRepositories) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	err := fn(TxRepositories{
		Payments:    &memoryPaymentRepo{store: t.store},
		Enrollments: &memoryEnrollmentRepo{store: t.store},
		Events:      &memoryEventRepo{store: t.store},
	})
	if err != nil {
		t.store.restore(snap)
	}
	return err
}

type memoryPaymentRepo struct {
	store *memoryStore
}

func (r *memoryPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.payments {
		if item.IdempotencyToken == payment.IdempotencyToken {
			return repository.ErrPaymentAlreadyExists
		}
	}
	payment.ID = r.store.nextPaymentID
	r.store.nextPaymentID++
	item := *payment
	r.store.payments[payment.ID] = &item
	return nil
}

func (r *memoryPaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.payments[id]
	if !ok {
		return nil, nil
	}
	out := *item
	return &out, nil
}

func (r *memoryPaymentRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r *memoryPaymentRepo) FindByToken(_ context.Context, token string) (*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.payments {
		if item.IdempotencyToken == token {
			out := *item
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memoryPaymentRepo) FindByTokenForUpdate(ctx context.Context, token string) (*entity.Payment, error) {
	return r.FindByToken(ctx, token)
}

func (r *memoryPaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*entity.Payment, 0)
	for _, item := range r.store.payments {
		if filter.UserID > 0 && item.UserID != filter.UserID {
			continue
		}
		if filter.CourseID > 0 && item.CourseID != filter.CourseID {
			continue
		}
		if filter.HasStatus && item.Status != filter.Status {
			continue
		}
		out := *item
		items = append(items, &out)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, filter.Limit, filter.Offset), nil
}

func (r *memoryPaymentRepo) ListPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*entity.Payment, 0)
	for _, item := range r.store.payments {
		if item.Status == entity.PaymentStatusPending && !item.CreatedAt.After(cutoff) {
			out := *item
			items = append(items, &out)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return page(items, limit, 0), nil
}

func (r *memoryPaymentRepo) ListForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*entity.Payment, 0)
	for _, item := range r.store.payments {
		if item.Status == entity.PaymentStatusPending && item.ProviderInvoiceRef != nil && !item.UpdatedAt.After(before) {
			out := *item
			items = append(items, &out)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return page(items, limit, 0), nil
}

func (r *memoryPaymentRepo) Transition(_ context.Context, payment *entity.Payment, from string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.payments[payment.ID]
	if ok && r.store.beforeTransition != nil {
		hook := r.store.beforeTransition
		r.store.beforeTransition = nil
		hook(item)
	}
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = payment.Status
	item.ProviderInvoiceRef = payment.ProviderInvoiceRef
	item.PaidAt = payment.PaidAt
	item.EnrollmentID = payment.EnrollmentID
	item.UpdatedAt = payment.UpdatedAt
	return true, nil
}

func (r *memoryPaymentRepo) AttachEnrollment(_ context.Context, paymentID, enrollmentID uint64, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.payments[paymentID]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	id := enrollmentID
	item.EnrollmentID = &id
	item.UpdatedAt = now
	return nil
}

type memoryEnrollmentRepo struct {
	store *memoryStore
}

func (r *memoryEnrollmentRepo) Create(_ context.Context, enrollment *entity.Enrollment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.failEnrollmentCreate != nil {
		return r.store.failEnrollmentCreate
	}
	if r.store.beforeEnrollmentCreate != nil {
		hook := r.store.beforeEnrollmentCreate
		r.store.beforeEnrollmentCreate = nil
		if err := hook(r.store); err != nil {
			return err
		}
	}
	for _, item := range r.store.enrollments {
		if item.UserID == enrollment.UserID && item.CourseID == enrollment.CourseID {
			return repository.ErrEnrollmentAlreadyExists
		}
	}
	enrollment.ID = r.store.nextEnrollmentID
	r.store.nextEnrollmentID++
	item := *enrollment
	r.store.enrollments[enrollment.ID] = &item
	return nil
}

func (r *memoryEnrollmentRepo) UpdateAccess(_ context.Context, enrollment *entity.Enrollment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.enrollments[enrollment.ID]
	if !ok {
		return repository.ErrEnrollmentNotFound
	}
	item.Status = enrollment.Status
	item.EnrolledAt = enrollment.EnrolledAt
	item.AccessExpiresAt = enrollment.AccessExpiresAt
	item.UpdatedAt = enrollment.UpdatedAt
	return nil
}

func (r *memoryEnrollmentRepo) FindByUserCourse(_ context.Context, userID, courseID uint64) (*entity.Enrollment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.enrollments {
		if item.UserID == userID && item.CourseID == courseID {
			out := *item
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memoryEnrollmentRepo) FindByUserCourseForUpdate(ctx context.Context, userID, courseID uint64) (*entity.Enrollment, error) {
	return r.FindByUserCourse(ctx, userID, courseID)
}

func (r *memoryEnrollmentRepo) List(_ context.Context, filter repository.EnrollmentFilter) ([]*entity.Enrollment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*entity.Enrollment, 0)
	for _, item := range r.store.enrollments {
		if filter.UserID > 0 && item.UserID != filter.UserID {
			continue
		}
		if filter.CourseID > 0 && item.CourseID != filter.CourseID {
			continue
		}
		out := *item
		items = append(items, &out)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, filter.Limit, filter.Offset), nil
}

type memoryEventRepo struct {
	store *memoryStore
}

func (r *memoryEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.failEventErr != nil && event.EventType == r.store.failEventType {
		return r.store.failEventErr
	}
	event.ID = uint64(len(r.store.events) + 1)
	item := *event
	r.store.events = append(r.store.events, &item)
	return nil
}

type memoryCallbackRepo struct {
	store *memoryStore
}

func (r *memoryCallbackRepo) Create(_ context.Context, callback *entity.PaymentCallback) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	callback.ID = uint64(len(r.store.callbacks) + 1)
	item := *callback
	r.store.callbacks = append(r.store.callbacks, &item)
	return nil
}

func page[T any](items []T, limit, offset int32) []T {
	start := int(offset)
	if start > len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && start+int(limit) < end {
		end = start + int(limit)
	}
	return items[start:end]
}

type fakeProvider struct {
	code     string
	createFn func(ctx context.Context, input *provider.CreateInvoiceInput) (*provider.Invoice, error)
	verifyFn func(ctx context.Context, req *provider.CallbackRequest) (*provider.Notification, error)
	getFn    func(ctx context.Context, invoiceRef string) (*provider.Notification, error)
}

func (p *fakeProvider) Code() string {
	if p.code == "" {
		return provider.XenditCode
	}
	return p.code
}

func (p *fakeProvider) CreateInvoice(ctx context.Context, input *provider.CreateInvoiceInput) (*provider.Invoice, error) {
	return p.createFn(ctx, input)
}

func (p *fakeProvider) VerifyAndParseCallback(ctx context.Context, req *provider.CallbackRequest) (*provider.Notification, error) {
	return p.verifyFn(ctx, req)
}

func (p *fakeProvider) GetInvoice(ctx context.Context, invoiceRef string) (*provider.Notification, error) {
	return p.getFn(ctx, invoiceRef)
}

type fakeCache struct {
	mu     sync.Mutex
	marked map[string]string
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{marked: map[string]string{}}
}

func (c *fakeCache) Seen(_ context.Context, token string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	outcome, ok := c.marked[token]
	return outcome, ok, nil
}

func (c *fakeCache) Mark(_ context.Context, token, outcome string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.marked[token]; !ok {
		c.marked[token] = outcome
	}
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.EnrollmentGranted
	err       error
}

func (p *fakePublisher) PublishEnrollmentGranted(_ context.Context, evt events.EnrollmentGranted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, evt)
	return p.err
}

type fakeMetrics struct {
	mu         sync.Mutex
	outcomes   map[string]int
	rejections map[string]int
	jobs       map[string]int
	jobErrors  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		outcomes:   map[string]int{},
		rejections: map[string]int{},
		jobs:       map[string]int{},
		jobErrors:  map[string]int{},
	}
}

func (m *fakeMetrics) ObserveOutcome(source, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[source+"/"+outcome]++
}

func (m *fakeMetrics) IncWebhookRejected(providerCode, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[providerCode+"/"+reason]++
}

func (m *fakeMetrics) ObserveJob(job string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job]++
	if err != nil {
		m.jobErrors[job]++
	}
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *memoryStore, providers ...provider.Provider) *PaymentService {
	if len(providers) == 0 {
		providers = []provider.Provider{&fakeProvider{}}
	}
	svc := NewPaymentService(
		&memoryPaymentRepo{store: store},
		&memoryEnrollmentRepo{store: store},
		&memoryCallbackRepo{store: store},
		&memoryTransactor{store: store},
		provider.NewRegistry(providers...),
		config.PaymentsConfig{
			PendingTimeout:      24 * time.Hour,
			ReconcileStaleAfter: 15 * time.Minute,
			JobBatchSize:        50,
		},
		config.CheckoutConfig{Currency: "IDR"},
	)
	svc.now = func() time.Time { return testNow }
	return svc
}
