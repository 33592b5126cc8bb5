package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	appoutbox "spacebook/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// CloudEventPublisher wraps outbox records into CloudEvents envelopes and
// sends them to a topic per aggregate kind, for example
// reservation.events.v1.
type CloudEventPublisher struct {
	Producer    Producer
	TopicPrefix string
	Source      string
}

func (p CloudEventPublisher) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	payload, headers, err := p.format(rec)
	if err != nil {
		return err
	}
	return p.Producer.Publish(ctx, p.topicFor(rec.Name), rec.Aggregate, payload, headers)
}

func (p CloudEventPublisher) format(rec appoutbox.EventRecord) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          p.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if rec.ID == "" {
		evt["id"] = uuid.NewString()
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (p CloudEventPublisher) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if p.TopicPrefix != "" {
		topic = p.TopicPrefix + topic
	}
	return topic
}

func (p CloudEventPublisher) source() string {
	if p.Source != "" {
		return p.Source
	}
	return "app://spacebook"
}

// LogPublisher only logs records. It stands in for Kafka when no brokers are
// configured so the relay still drains the outbox.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "outbox event", "id", rec.ID, "name", rec.Name, "aggregate", rec.Aggregate)
	return nil
}
