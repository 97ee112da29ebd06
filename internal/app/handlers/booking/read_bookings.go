package booking

import (
	"context"
	"errors"
	"sort"
	"strings"

	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/queries"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"

	RoleTraveler = "traveler"
	RoleOwner    = "owner"
)

var ErrUnknownRole = errors.New("booking: unknown role")

type GetBookingQuery struct {
	BookingID   string
	RequesterID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the booking only to its traveler or owner. Outsiders get
// the same error as a missing booking, matching the route contract.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingView, error) {
	unit, ctx, cleanup, err := beginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingView{}, err
	}
	defer cleanup()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingView{}, err
	}
	if !bk.IsParty(q.RequesterID) {
		return dto.BookingView{}, ErrForbidden
	}
	return dto.MapBookingView(bk), nil
}

type ListBookingsQuery struct {
	UserID string
	Role   string
	Status string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle lists the user's bookings for the given role, optionally filtered
// by status, newest first.
func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	userID := strings.TrimSpace(q.UserID)
	if userID == "" {
		return dto.BookingCollection{}, errors.New("booking: user id is required")
	}

	unit, ctx, cleanup, err := beginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer cleanup()

	var bookings []*domainbooking.Booking
	switch strings.ToLower(strings.TrimSpace(q.Role)) {
	case RoleTraveler, "":
		bookings, err = unit.Bookings().ListByTraveler(ctx, userID)
	case RoleOwner:
		bookings, err = unit.Bookings().ListByOwner(ctx, userID)
	default:
		return dto.BookingCollection{}, ErrUnknownRole
	}
	if err != nil {
		return dto.BookingCollection{}, err
	}

	statusFilter := strings.ToUpper(strings.TrimSpace(q.Status))
	items := make([]dto.BookingView, 0, len(bookings))
	for _, bk := range bookings {
		if statusFilter != "" && string(bk.State) != statusFilter {
			continue
		}
		items = append(items, dto.MapBookingView(bk))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return dto.BookingCollection{Items: items}, nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.BookingView]         = (*GetBookingHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
)
