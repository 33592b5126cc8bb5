package kafka

import (
	"context"
	"sort"
	"time"

	"github.com/IBM/sarama"

	"spacebook/internal/infra/config"
	"spacebook/internal/pkg/errs"
)

// Producer is a sync, idempotent producer. The relay publishes one record
// at a time and only marks it sent after the broker acknowledged it.
type Producer struct {
	sync sarama.SyncProducer
}

func saramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Version = sarama.V2_5_0_0
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Return.Successes = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Retry.Max = cfg.MaxRetries
	sc.Producer.Retry.Backoff = 200 * time.Millisecond
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
		sc.Net.DialTimeout = cfg.Timeout
	}
	// required by the idempotent producer
	sc.Net.MaxOpenRequests = 1
	return sc
}

func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errs.New("kafka: no brokers configured")
	}
	sync, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig(cfg))
	if err != nil {
		return nil, errs.Wrapf(err, "kafka: connect %v", cfg.Brokers)
	}
	return &Producer{sync: sync}, nil
}

// Publish sends one message keyed by aggregate id, so events of one
// reservation keep their order within a partition. Broker failures are
// retryable for the relay.
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: recordHeaders(headers),
	}
	if _, _, err := p.sync.SendMessage(msg); err != nil {
		return errs.Mark(errs.Wrapf(err, "kafka: send to %s", topic), errs.ErrRetryable)
	}
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]sarama.RecordHeader, len(names))
	for i, k := range names {
		out[i] = sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])}
	}
	return out
}

func (p *Producer) Close() error {
	if p == nil || p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
