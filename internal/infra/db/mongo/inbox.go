package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"spacebook/internal/app/uow"
)

// Inbox records applied provider events. Inside a transaction the insert is
// rolled back with it, so failed deliveries can be retried.
type Inbox struct {
	col *mongo.Collection
}

func NewInbox(db *mongo.Database) *Inbox {
	return &Inbox{col: db.Collection(colInbox)}
}

func (i *Inbox) Seen(ctx context.Context, source, eventID string) (bool, error) {
	doc := bson.M{
		"_id":         source + ":" + eventID,
		"source":      source,
		"event_id":    eventID,
		"received_at": time.Now().UTC(),
	}
	_, err := i.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, translate(err, nil)
}

var _ uow.Inbox = (*Inbox)(nil)
