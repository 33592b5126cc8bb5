package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "spacebook/internal/app/outbox"
	"spacebook/internal/infra/outbox"
)

type sent struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	messages []sent
}

func (p *recordingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.messages = append(p.messages, sent{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestCloudEventPublisher(t *testing.T) {
	producer := &recordingProducer{}
	pub := outbox.CloudEventPublisher{Producer: producer, TopicPrefix: "prod."}

	rec := appoutbox.EventRecord{
		ID:         "evt-1",
		Name:       "reservation.confirmed",
		Payload:    []byte(`{"reservationId":"res-1","total":135000}`),
		OccurredAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		Aggregate:  "res-1",
		Headers:    map[string]string{"event-name": "reservation.confirmed", "traceparent": "00-abc-def-01"},
	}
	require.NoError(t, pub.Publish(context.Background(), rec))
	require.Len(t, producer.messages, 1)

	msg := producer.messages[0]
	assert.Equal(t, "prod.reservation.events.v1", msg.topic)
	assert.Equal(t, "res-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "reservation.confirmed", msg.headers["event-name"])

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &envelope))
	assert.Equal(t, "1.0", envelope["specversion"])
	assert.Equal(t, "evt-1", envelope["id"])
	assert.Equal(t, "reservation.confirmed.v1", envelope["type"])
	assert.Equal(t, "app://spacebook", envelope["source"])
	assert.Equal(t, "00-abc-def-01", envelope["traceparent"])
	assert.Equal(t, map[string]any{"reservationId": "res-1", "total": float64(135000)}, envelope["data"])
}

func TestCloudEventPublisherRejectsNonJSONPayloads(t *testing.T) {
	producer := &recordingProducer{}
	pub := outbox.CloudEventPublisher{Producer: producer}
	err := pub.Publish(context.Background(), appoutbox.EventRecord{Name: "payment.captured", Payload: []byte("not json")})
	assert.Error(t, err)
	assert.Empty(t, producer.messages)
}

func TestCloudEventPublisherTopicWithoutPrefix(t *testing.T) {
	producer := &recordingProducer{}
	pub := outbox.CloudEventPublisher{Producer: producer, Source: "app://test"}
	require.NoError(t, pub.Publish(context.Background(), appoutbox.EventRecord{Name: "payment.refunded", Payload: []byte(`{}`)}))

	assert.Equal(t, "payment.events.v1", producer.messages[0].topic)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(producer.messages[0].payload, &envelope))
	assert.NotEmpty(t, envelope["id"], "missing ids are generated")
	assert.Equal(t, "app://test", envelope["source"])
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}
