package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"
)

type fakeTopic struct {
	messages []*pubsub.Message
	err      error
}

func (f *fakeTopic) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakePublishResult{err: f.err}
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

func TestPublishEnrollmentGranted(t *testing.T) {
	topic := &fakeTopic{}
	p := newPublisher(topic)

	err := p.PublishEnrollmentGranted(context.Background(), EnrollmentGranted{
		PaymentID:        10,
		EnrollmentID:     20,
		UserID:           42,
		CourseID:         7,
		IdempotencyToken: "inv_7_42_1",
		Action:           "created",
	})
	require.NoError(t, err)
	require.Len(t, topic.messages, 1)

	msg := topic.messages[0]
	require.Equal(t, EventTypeEnrollmentGranted, msg.Attributes["event_type"])
	require.Equal(t, "inv_7_42_1", msg.Attributes["idempotency_token"])
	require.NotEmpty(t, msg.Attributes["event_id"])

	var decoded EnrollmentGranted
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	require.Equal(t, uint64(20), decoded.EnrollmentID)
	require.False(t, decoded.OccurredAt.IsZero())
}

func TestPublishEnrollmentGrantedSurfacesServerError(t *testing.T) {
	p := newPublisher(&fakeTopic{err: errors.New("unavailable")})

	err := p.PublishEnrollmentGranted(context.Background(), EnrollmentGranted{IdempotencyToken: "inv_1"})
	require.ErrorContains(t, err, "unavailable")
}

func TestNilPublisherFails(t *testing.T) {
	var p *Publisher
	require.Error(t, p.PublishEnrollmentGranted(context.Background(), EnrollmentGranted{}))
}
