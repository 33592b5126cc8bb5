package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
)

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection(colPayments)}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *payment.Payment) error {
	doc := newPaymentDocument(p)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return translate(err, nil)
	}
	p.Version = doc.Version
	return nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	doc := newPaymentDocument(p)
	doc.Version = p.Version + 1
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": p.Version}, doc)
	if err != nil {
		return translate(err, nil)
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

func (r *PaymentRepository) ByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	if orderID == "" {
		return nil, payment.ErrPaymentNotFound
	}
	return r.findOne(ctx, bson.M{"order_id": orderID}, nil)
}

func (r *PaymentRepository) ByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	if paymentID == "" {
		return nil, payment.ErrPaymentNotFound
	}
	return r.findOne(ctx, bson.M{"payment_id": paymentID}, nil)
}

func (r *PaymentRepository) LatestCompletedForReservation(ctx context.Context, id reservation.ReservationID) (*payment.Payment, error) {
	filter := bson.M{"reservation_id": string(id), "status": string(payment.StatusCompleted)}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

// ListByReservation returns attempts newest first.
func (r *PaymentRepository) ListByReservation(ctx context.Context, id reservation.ReservationID) ([]*payment.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"reservation_id": string(id)}, opts)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer cur.Close(ctx)
	var docs []paymentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, nil)
	}
	out := make([]*payment.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*payment.Payment, error) {
	var doc paymentDocument
	var err error
	if opts != nil {
		err = r.col.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.col.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, translate(err, payment.ErrPaymentNotFound)
	}
	return doc.toAggregate(), nil
}

var _ payment.Repository = (*PaymentRepository)(nil)
