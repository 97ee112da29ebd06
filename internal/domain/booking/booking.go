package booking

import (
	"context"
	"errors"
	"time"

	"stayfinder/internal/domain/property"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/events"
)

var (
	ErrNotFound         = errors.New("booking: not found")
	ErrInvalidGuests    = errors.New("booking: guests count must be positive")
	ErrCapacityExceeded = errors.New("booking: guests exceed property capacity")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrAlreadyCancelled = errors.New("booking: already cancelled")
)

type BookingID string

type State string

const (
	StatePending   State = "PENDING"
	StateAccepted  State = "ACCEPTED"
	StateCancelled State = "CANCELLED"
)

// Booking is the central aggregate. PENDING bookings do not reserve the
// calendar; only acceptance materializes a blocked range.
type Booking struct {
	ID              BookingID
	PropertyID      property.PropertyID
	TravelerID      string
	OwnerID         string
	Range           daterange.DateRange
	Guests          int
	TotalPriceCents int64
	State           State
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByTraveler(ctx context.Context, travelerID string) ([]*Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	Property        *property.Property
	TravelerID      string
	Range           daterange.DateRange
	Guests          int
	TotalPriceCents int64
	CreatedAt       time.Time
}

// NewBooking validates the request and instantiates a PENDING booking.
// The total price is frozen here and never recomputed, even if the
// property's nightly rate later changes.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.TravelerID == "" {
		return nil, errors.New("booking: traveler id required")
	}
	if params.Property == nil {
		return nil, property.ErrNotFound
	}
	if params.Guests > params.Property.MaxGuests {
		return nil, ErrCapacityExceeded
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		PropertyID:      params.Property.ID,
		TravelerID:      params.TravelerID,
		OwnerID:         params.Property.OwnerID,
		Range:           params.Range,
		Guests:          params.Guests,
		TotalPriceCents: params.TotalPriceCents,
		State:           StatePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingCreated{
		BookingID:       b.ID,
		PropertyID:      b.PropertyID,
		OwnerID:         b.OwnerID,
		TravelerID:      b.TravelerID,
		Range:           b.Range,
		Guests:          b.Guests,
		TotalPriceCents: b.TotalPriceCents,
		At:              now,
	})
	return b, nil
}

// Accept transitions PENDING -> ACCEPTED. The availability re-check is the
// orchestrator's duty and must share the same atomic unit as the ledger
// block insertion.
func (b *Booking) Accept(now time.Time) error {
	if b.State != StatePending {
		if b.State == StateCancelled {
			return ErrAlreadyCancelled
		}
		return ErrInvalidState
	}
	b.State = StateAccepted
	b.UpdatedAt = now.UTC()
	b.Record(BookingAccepted{
		BookingID:       b.ID,
		PropertyID:      b.PropertyID,
		OwnerID:         b.OwnerID,
		TravelerID:      b.TravelerID,
		Range:           b.Range,
		TotalPriceCents: b.TotalPriceCents,
		At:              b.UpdatedAt,
	})
	return nil
}

// Cancel transitions to CANCELLED from either live state. The returned flag
// tells the caller whether a blocked range must be released.
func (b *Booking) Cancel(now time.Time) (releaseBlock bool, err error) {
	switch b.State {
	case StateCancelled:
		return false, ErrAlreadyCancelled
	case StatePending:
		releaseBlock = false
	case StateAccepted:
		releaseBlock = true
	default:
		return false, ErrInvalidState
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		OwnerID:    b.OwnerID,
		TravelerID: b.TravelerID,
		At:         b.UpdatedAt,
	})
	return releaseBlock, nil
}

// IsParty reports whether the user may read this booking.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.TravelerID || userID == b.OwnerID)
}
