package property

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("property: not found")
	ErrInactive = errors.New("property: not active")
)

type PropertyID string

// Property is owned by the properties collaborator; the booking core only
// reads it and never mutates it.
type Property struct {
	ID                 PropertyID
	OwnerID            string
	Name               string
	MaxGuests          int
	PricePerNightCents int64
	Active             bool
}

type Store interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
}
