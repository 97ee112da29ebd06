package dto

import (
	"time"

	domainbooking "stayfinder/internal/domain/booking"
)

type BookingView struct {
	ID              string    `json:"id"`
	PropertyID      string    `json:"property_id"`
	TravelerID      string    `json:"traveler_id"`
	OwnerID         string    `json:"owner_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Guests          int       `json:"number_of_guests"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

func MapBookingView(bk *domainbooking.Booking) BookingView {
	return BookingView{
		ID:              string(bk.ID),
		PropertyID:      string(bk.PropertyID),
		TravelerID:      bk.TravelerID,
		OwnerID:         bk.OwnerID,
		StartDate:       bk.Range.Start,
		EndDate:         bk.Range.End,
		Guests:          bk.Guests,
		TotalPriceCents: bk.TotalPriceCents,
		Status:          string(bk.State),
		CreatedAt:       bk.CreatedAt,
	}
}
