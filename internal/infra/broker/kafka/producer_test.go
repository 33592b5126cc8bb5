package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/infra/config"
	"spacebook/internal/pkg/errs"
)

func TestProducerPublish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.JSONEq(t, `{"id":"evt-1"}`, string(val))
		return nil
	})
	p := &Producer{sync: sp}

	err := p.Publish(context.Background(), "reservation.events.v1", "res-1", []byte(`{"id":"evt-1"}`), map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerPublishFailureIsRetryable(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	p := &Producer{sync: sp}

	err := p.Publish(context.Background(), "payment.events.v1", "pay-1", []byte(`{}`), nil)
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	assert.True(t, errs.Is(err, errs.ErrRetryable))
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Producer{sync: mocks.NewSyncProducer(t, nil)}
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}

func TestRecordHeadersAreSorted(t *testing.T) {
	hs := recordHeaders(map[string]string{"traceparent": "x", "content-type": "y", "event-name": "z"})
	require.Len(t, hs, 3)
	assert.Equal(t, "content-type", string(hs[0].Key))
	assert.Equal(t, "event-name", string(hs[1].Key))
	assert.Equal(t, "traceparent", string(hs[2].Key))
}

func TestSaramaConfig(t *testing.T) {
	sc := saramaConfig(config.KafkaConfig{ClientID: "spacebook", MaxRetries: 3})
	assert.Equal(t, "spacebook", sc.ClientID)
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, 3, sc.Producer.Retry.Max)
	assert.Equal(t, 1, sc.Net.MaxOpenRequests)
	assert.NoError(t, sc.Validate())

	_, err := NewProducer(config.KafkaConfig{})
	assert.Error(t, err)
}
