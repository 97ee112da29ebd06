package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainproperty "stayfinder/internal/domain/property"
)

// PropertyRepository reads the properties collaborator's collection. The
// booking core never writes here.
type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, err
	}
	return &domainproperty.Property{
		ID:                 domainproperty.PropertyID(doc.ID),
		OwnerID:            doc.OwnerID,
		Name:               doc.Name,
		MaxGuests:          doc.MaxGuests,
		PricePerNightCents: doc.PricePerNightCents,
		Active:             doc.Active,
	}, nil
}

type propertyDocument struct {
	ID                 string `bson:"_id"`
	OwnerID            string `bson:"owner_id"`
	Name               string `bson:"name"`
	MaxGuests          int    `bson:"max_guests"`
	PricePerNightCents int64  `bson:"price_per_night_cents"`
	Active             bool   `bson:"is_active"`
}
