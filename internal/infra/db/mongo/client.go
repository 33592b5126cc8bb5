package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colSpaces       = "spaces"
	colReservations = "reservations"
	colPayments     = "payments"
	colUsers        = "users"
	colWebhookLogs  = "webhook_logs"
	colIdempotency  = "idempotency"
	colInbox        = "inbox"
	colSpaceLocks   = "space_locks"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. Inserts that hit
// the unique booking code index are retried by the command pipeline.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colReservations: {
			{Keys: bson.D{{Key: "booking_code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "space_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.start", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "razorpay_order_id", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "payment_id", Value: 1}}},
			{Keys: bson.D{{Key: "reservation_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSpaces: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "pricing.base_price", Value: 1}}},
		},
		colWebhookLogs: {
			{Keys: bson.D{{Key: "received_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "event_type", Value: 1}}},
		},
		colInbox: {
			{Keys: bson.D{{Key: "source", Value: 1}, {Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, models := range specs {
		if _, err := c.DB.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
