package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacebook/internal/domain/webhook"
	"spacebook/internal/pkg/errs"
)

// WebhookLogRepository is not part of the unit of work. Callers write to it
// outside any session so audit rows survive a rolled back transaction.
type WebhookLogRepository struct {
	col *mongo.Collection
}

func NewWebhookLogRepository(db *mongo.Database) *WebhookLogRepository {
	return &WebhookLogRepository{col: db.Collection(colWebhookLogs)}
}

func (r *WebhookLogRepository) Append(ctx context.Context, entry *webhook.LogEntry) error {
	_, err := r.col.InsertOne(ctx, newWebhookLogDocument(entry))
	return translate(err, nil)
}

func (r *WebhookLogRepository) Finalize(ctx context.Context, entry *webhook.LogEntry) error {
	doc := newWebhookLogDocument(entry)
	update := bson.M{"$set": bson.M{
		"status":             doc.Status,
		"error":              doc.Error,
		"processing_time_ms": doc.ProcessingTimeMs,
		"finalized_at":       doc.FinalizedAt,
		"event_type":         doc.EventType,
		"entity_id":          doc.EntityID,
		"payment_id":         doc.PaymentID,
		"order_id":           doc.OrderID,
		"refund_id":          doc.RefundID,
		"amount":             doc.Amount,
		"currency":           doc.Currency,
		"provider_status":    doc.ProviderStatus,
	}}
	filter := bson.M{"_id": entry.ID, "status": string(webhook.StatusReceived)}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err, nil)
	}
	if res.MatchedCount == 0 {
		return errs.Wrapf(webhook.ErrLogNotFound, "received entry %s", entry.ID)
	}
	return nil
}

func (r *WebhookLogRepository) List(ctx context.Context, filter webhook.LogFilter) ([]*webhook.LogEntry, int, error) {
	filter = filter.Normalized()
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = string(filter.Status)
	}
	if filter.EventType != "" {
		q["event_type"] = filter.EventType
	}
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, translate(err, nil)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, translate(err, nil)
	}
	defer cur.Close(ctx)
	var docs []webhookLogDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, translate(err, nil)
	}
	out := make([]*webhook.LogEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntry())
	}
	return out, int(total), nil
}

// Stats aggregates over the whole collection in memory. The log is an
// operational tool, not a hot path.
func (r *WebhookLogRepository) Stats(ctx context.Context) (webhook.Stats, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return webhook.Stats{}, translate(err, nil)
	}
	defer cur.Close(ctx)
	var entries []*webhook.LogEntry
	for cur.Next(ctx) {
		var doc webhookLogDocument
		if err := cur.Decode(&doc); err != nil {
			return webhook.Stats{}, translate(err, nil)
		}
		entries = append(entries, doc.toEntry())
	}
	if err := cur.Err(); err != nil {
		return webhook.Stats{}, translate(err, nil)
	}
	return webhook.ComputeStats(entries), nil
}

var _ webhook.LogRepository = (*WebhookLogRepository)(nil)
