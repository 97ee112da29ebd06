package booking

import (
	"time"

	"stayfinder/internal/domain/property"
	"stayfinder/internal/domain/shared/daterange"
)

type BookingCreated struct {
	BookingID       BookingID
	PropertyID      property.PropertyID
	OwnerID         string
	TravelerID      string
	Range           daterange.DateRange
	Guests          int
	TotalPriceCents int64
	At              time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingAccepted struct {
	BookingID       BookingID
	PropertyID      property.PropertyID
	OwnerID         string
	TravelerID      string
	Range           daterange.DateRange
	TotalPriceCents int64
	At              time.Time
}

func (e BookingAccepted) EventName() string     { return "booking.accepted" }
func (e BookingAccepted) AggregateID() string   { return string(e.BookingID) }
func (e BookingAccepted) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	OwnerID    string
	TravelerID string
	At         time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
