package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "stayfinder/internal/domain/availability"
	domainproperty "stayfinder/internal/domain/property"
	domainrange "stayfinder/internal/domain/shared/daterange"
)

// LedgerRepository stores one ledger document per property. Keeping the
// whole blocked-range set in a single versioned document means two accepts
// racing for the same property contend on one write, so the version filter
// on save decides the winner even outside a multi-document transaction.
type LedgerRepository struct {
	col *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{col: db.Collection("availability_ledgers")}
}

func (r *LedgerRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) (*domainavailability.Ledger, error) {
	var doc ledgerDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewLedger(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *LedgerRepository) Save(ctx context.Context, ledger *domainavailability.Ledger) error {
	doc := newLedgerDocument(ledger)
	filter := bson.M{"_id": doc.ID, "version": ledger.Version}
	doc.Version = ledger.Version + 1
	opts := options.Replace().SetUpsert(ledger.Version == 0)
	res, err := r.col.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	ledger.Version = doc.Version
	return nil
}

type ledgerDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

type blockDocument struct {
	BookingID string `bson:"booking_id"`
	Start     int64  `bson:"start"`
	End       int64  `bson:"end"`
	CreatedAt int64  `bson:"created_at"`
}

func newLedgerDocument(l *domainavailability.Ledger) ledgerDocument {
	blocks := make([]blockDocument, 0, len(l.Blocks))
	for _, b := range l.Blocks {
		blocks = append(blocks, blockDocument{
			BookingID: b.BookingID,
			Start:     b.Range.Start.UnixMilli(),
			End:       b.Range.End.UnixMilli(),
			CreatedAt: b.CreatedAt.UnixMilli(),
		})
	}
	return ledgerDocument{ID: string(l.PropertyID), Blocks: blocks, Version: l.Version}
}

func (d ledgerDocument) toAggregate() *domainavailability.Ledger {
	ledger := &domainavailability.Ledger{
		PropertyID: domainproperty.PropertyID(d.ID),
		Version:    d.Version,
	}
	for _, b := range d.Blocks {
		ledger.Blocks = append(ledger.Blocks, domainavailability.BlockedRange{
			PropertyID: ledger.PropertyID,
			BookingID:  b.BookingID,
			Range:      domainrange.DateRange{Start: time.UnixMilli(b.Start).UTC(), End: time.UnixMilli(b.End).UTC()},
			CreatedAt:  time.UnixMilli(b.CreatedAt).UTC(),
		})
	}
	return ledger
}
