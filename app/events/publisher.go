package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

const (
	EventTypeEnrollmentGranted = "enrollment.granted"

	defaultPublishTimeout = 15 * time.Second
)

// EnrollmentGranted is published after a payment settles and access is granted.
type EnrollmentGranted struct {
	EventID          string     `json:"event_id"`
	PaymentID        uint64     `json:"payment_id"`
	EnrollmentID     uint64     `json:"enrollment_id"`
	UserID           uint64     `json:"user_id"`
	CourseID         uint64     `json:"course_id"`
	IdempotencyToken string     `json:"idempotency_token"`
	Action           string     `json:"action"`
	Actor            string     `json:"actor"`
	AccessExpiresAt  *time.Time `json:"access_expires_at,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

type topicPublisher interface {
	Publish(context.Context, *pubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type Publisher struct {
	topic   topicPublisher
	timeout time.Duration
}

// NewPublisher wraps a Pub/Sub topic publisher.
func NewPublisher(topic *pubsub.Publisher) *Publisher {
	return newPublisher(&gcpPublisher{Publisher: topic})
}

func newPublisher(topic topicPublisher) *Publisher {
	return &Publisher{topic: topic, timeout: defaultPublishTimeout}
}

// PublishEnrollmentGranted blocks until the server acknowledges the message.
func (p *Publisher) PublishEnrollmentGranted(ctx context.Context, evt EnrollmentGranted) error {
	if p == nil || p.topic == nil {
		return errors.New("publisher not configured")
	}
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventTypeEnrollmentGranted, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type":        EventTypeEnrollmentGranted,
			"event_id":          evt.EventID,
			"idempotency_token": evt.IdempotencyToken,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", EventTypeEnrollmentGranted, err)
	}
	return nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return &gcpPublishResult{}
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result missing")
	}
	return r.PublishResult.Get(ctx)
}
