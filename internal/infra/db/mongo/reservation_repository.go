package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
)

type ReservationRepository struct {
	col    *mongo.Collection
	spaces *SpaceRepository
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection(colReservations), spaces: NewSpaceRepository(db)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id reservation.ReservationID) (*reservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ReservationRepository) ByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error) {
	if orderID == "" {
		return nil, reservation.ErrReservationNotFound
	}
	return r.findOne(ctx, bson.M{"razorpay_order_id": orderID})
}

func (r *ReservationRepository) findOne(ctx context.Context, filter bson.M) (*reservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, reservation.ErrReservationNotFound)
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) Insert(ctx context.Context, res *reservation.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		switch {
		case duplicateOnIndex(err, bookingCodeIndex):
			return reservation.ErrDuplicateBookingCode
		case mongo.IsDuplicateKeyError(err):
			return reservation.ErrReservationExists
		}
		return translate(err, nil)
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *reservation.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	out, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": res.Version}, doc)
	if err != nil {
		return translate(err, nil)
	}
	if out.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) FindConflicts(ctx context.Context, spaceID space.SpaceID, window timerange.Range) ([]*reservation.Reservation, error) {
	statuses := make([]string, 0, len(reservation.ActiveStatuses))
	for _, s := range reservation.ActiveStatuses {
		statuses = append(statuses, string(s))
	}
	filter := bson.M{
		"space_id":    string(spaceID),
		"status":      bson.M{"$in": statuses},
		"range.start": bson.M{"$lt": window.End.UnixMilli()},
		"range.end":   bson.M{"$gt": window.Start.UnixMilli()},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}}))
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]*reservation.Reservation, error) {
	return r.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "range.start", Value: -1}}))
}

// CountByUser counts reservations that were not cancelled or rejected.
func (r *ReservationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	filter := bson.M{
		"user_id": userID,
		"status": bson.M{"$nin": []string{
			string(reservation.StatusCancelled),
			string(reservation.StatusRejected),
		}},
	}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, translate(err, nil)
	}
	return int(n), nil
}

func (r *ReservationRepository) GuardSpace(ctx context.Context, spaceID space.SpaceID) error {
	return r.spaces.guard(ctx, spaceID)
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*reservation.Reservation, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer cur.Close(ctx)
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, nil)
	}
	out := make([]*reservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
