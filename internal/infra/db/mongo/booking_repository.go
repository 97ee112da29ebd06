package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
	domainrange "stayfinder/internal/domain/shared/daterange"
)

var ErrConcurrentUpdate = fmt.Errorf("mongo: concurrent update detected: %w", uow.ErrConcurrentUpdate)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save upserts the booking, enforcing the version it was read at so a
// stale writer loses with ErrConcurrentUpdate.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByTraveler(ctx context.Context, travelerID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"traveler_id": travelerID})
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"owner_id": ownerID})
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type bookingDocument struct {
	ID              string        `bson:"_id"`
	PropertyID      string        `bson:"property_id"`
	TravelerID      string        `bson:"traveler_id"`
	OwnerID         string        `bson:"owner_id"`
	Range           rangeDocument `bson:"range"`
	Guests          int           `bson:"guests"`
	TotalPriceCents int64         `bson:"total_price_cents"`
	State           string        `bson:"state"`
	CreatedAt       int64         `bson:"created_at"`
	UpdatedAt       int64         `bson:"updated_at"`
	Version         int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:              string(b.ID),
		PropertyID:      string(b.PropertyID),
		TravelerID:      b.TravelerID,
		OwnerID:         b.OwnerID,
		Range:           rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		Guests:          b.Guests,
		TotalPriceCents: b.TotalPriceCents,
		State:           string(b.State),
		CreatedAt:       b.CreatedAt.UnixMilli(),
		UpdatedAt:       b.UpdatedAt.UnixMilli(),
		Version:         b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:              domainbooking.BookingID(d.ID),
		PropertyID:      domainproperty.PropertyID(d.PropertyID),
		TravelerID:      d.TravelerID,
		OwnerID:         d.OwnerID,
		Range:           domainrange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Guests:          d.Guests,
		TotalPriceCents: d.TotalPriceCents,
		State:           domainbooking.State(d.State),
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
