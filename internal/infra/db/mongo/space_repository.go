package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacebook/internal/domain/space"
)

type SpaceRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewSpaceRepository(db *mongo.Database) *SpaceRepository {
	return &SpaceRepository{col: db.Collection(colSpaces), locks: db.Collection(colSpaceLocks)}
}

func (r *SpaceRepository) ByID(ctx context.Context, id space.SpaceID) (*space.Space, error) {
	var doc spaceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate(err, space.ErrSpaceNotFound)
	}
	return doc.toAggregate(), nil
}

// Save replaces the space when the stored version matches. Usage counters are
// excluded from the replacement so concurrent bookings are not lost.
func (r *SpaceRepository) Save(ctx context.Context, s *space.Space) error {
	doc := newSpaceDocument(s)
	doc.Version = s.Version + 1
	if s.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrConcurrentUpdate
			}
			return translate(err, nil)
		}
		s.Version = doc.Version
		return nil
	}
	var current spaceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": doc.ID}).Decode(&current); err != nil {
		return translate(err, space.ErrSpaceNotFound)
	}
	keepCounters(&doc.Pricing, current.Pricing)
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": s.Version}, doc)
	if err != nil {
		return translate(err, nil)
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	s.Version = doc.Version
	return nil
}

func keepCounters(dst *pricingDocument, prev pricingDocument) {
	for i := range dst.PromoCodes {
		for _, old := range prev.PromoCodes {
			if old.CodeKey == dst.PromoCodes[i].CodeKey {
				dst.PromoCodes[i].UsedCount = max(dst.PromoCodes[i].UsedCount, old.UsedCount)
			}
		}
	}
	for i := range dst.Bundles {
		for _, old := range prev.Bundles {
			if old.ID == dst.Bundles[i].ID {
				dst.Bundles[i].CurrentPurchases = max(dst.Bundles[i].CurrentPurchases, old.CurrentPurchases)
			}
		}
	}
	for i := range dst.TimeBlocks {
		for _, old := range prev.TimeBlocks {
			if old.ID == dst.TimeBlocks[i].ID {
				dst.TimeBlocks[i].CurrentBookings = max(dst.TimeBlocks[i].CurrentBookings, old.CurrentBookings)
			}
		}
	}
}

func (r *SpaceRepository) IncrementPromoUsage(ctx context.Context, id space.SpaceID, code string) (bool, error) {
	sp, err := r.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	promo, ok := sp.Pricing.Promo(code)
	if !ok {
		return false, nil
	}
	return r.increment(ctx, id, "promo_codes", "code_key", promoKey(code), "used_count", promo.MaxUses)
}

func (r *SpaceRepository) IncrementBundlePurchases(ctx context.Context, id space.SpaceID, bundleID string) (bool, error) {
	sp, err := r.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	bundle, ok := sp.Pricing.Bundle(bundleID)
	if !ok {
		return false, nil
	}
	return r.increment(ctx, id, "bundles", "id", bundleID, "current_purchases", bundle.MaxPurchases)
}

func (r *SpaceRepository) IncrementTimeBlockBookings(ctx context.Context, id space.SpaceID, blockID string) (bool, error) {
	sp, err := r.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	block, ok := sp.Pricing.TimeBlock(blockID)
	if !ok {
		return false, nil
	}
	return r.increment(ctx, id, "time_blocks", "id", blockID, "current_bookings", block.MaxBookings)
}

// increment runs a conditional $inc on one array element. The limit check is
// part of the filter, so the update and the check are a single write.
func (r *SpaceRepository) increment(ctx context.Context, id space.SpaceID, array, keyField, key, counter string, limit int) (bool, error) {
	match := bson.M{keyField: key}
	if limit > 0 {
		match[counter] = bson.M{"$lt": limit}
	}
	filter := bson.M{"_id": string(id), "pricing." + array: bson.M{"$elemMatch": match}}
	update := bson.M{"$inc": bson.M{"pricing." + array + ".$." + counter: 1}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err, nil)
	}
	return res.ModifiedCount == 1, nil
}

func (r *SpaceRepository) Search(ctx context.Context, params space.SearchParams) (space.SearchResult, error) {
	params = params.Normalized()
	filter := bson.M{}
	if params.Owner != "" {
		filter["owner_id"] = string(params.Owner)
	}
	if params.Query != "" {
		filter["search_text"] = bson.M{"$regex": regexp.QuoteMeta(params.Query)}
	}
	if len(params.Types) > 0 {
		types := make([]string, 0, len(params.Types))
		for _, t := range params.Types {
			types = append(types, string(t))
		}
		filter["pricing.type"] = bson.M{"$in": types}
	}
	price := bson.M{}
	if params.PriceMin > 0 {
		price["$gte"] = params.PriceMin
	}
	if params.PriceMax > 0 {
		price["$lte"] = params.PriceMax
	}
	if len(price) > 0 {
		filter["pricing.base_price"] = price
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return space.SearchResult{}, translate(err, nil)
	}
	opts := options.Find().
		SetSort(sortFor(params.Sort)).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return space.SearchResult{}, translate(err, nil)
	}
	defer cur.Close(ctx)
	var docs []spaceDocument
	if err := cur.All(ctx, &docs); err != nil {
		return space.SearchResult{}, translate(err, nil)
	}
	items := make([]*space.Space, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toAggregate())
	}
	return space.SearchResult{Items: items, Total: int(total)}, nil
}

func sortFor(by space.CatalogSort) bson.D {
	switch by {
	case space.SortByPriceAsc:
		return bson.D{{Key: "pricing.base_price", Value: 1}, {Key: "_id", Value: 1}}
	case space.SortByPriceDesc:
		return bson.D{{Key: "pricing.base_price", Value: -1}, {Key: "_id", Value: 1}}
	case space.SortByUpdated:
		return bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// guard bumps the lock document of a space inside the current transaction.
// Two transactions guarding the same space hit a write conflict.
func (r *SpaceRepository) guard(ctx context.Context, id space.SpaceID) error {
	update := bson.M{
		"$inc": bson.M{"seq": 1},
		"$set": bson.M{"touched_at": time.Now().UTC()},
	}
	_, err := r.locks.UpdateOne(ctx, bson.M{"_id": string(id)}, update, options.Update().SetUpsert(true))
	return translate(err, nil)
}

var _ space.Repository = (*SpaceRepository)(nil)
