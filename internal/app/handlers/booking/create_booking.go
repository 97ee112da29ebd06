package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayfinder/internal/app/commands"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/policies"
	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
	"stayfinder/internal/domain/pricing"
	domainrange "stayfinder/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

var ErrForbidden = errors.New("booking: requester is not a party to this booking")

type CreateBookingCommand struct {
	CommandID  string
	PropertyID string
	TravelerID string
	Start      time.Time
	End        time.Time
	Guests     int
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

type CreateBookingResult struct {
	BookingID       string `json:"booking_id"`
	Status          string `json:"status"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   policies.Notifier
	Logger     *slog.Logger
}

// Handle validates the request and persists a PENDING booking. The conflict
// check here gives fast feedback against accepted ranges only; the
// accept-time re-check is the source of truth, so overlapping PENDING
// requests stay allowed and are arbitrated by the owner.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, ctx, finish, cleanup, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	dr, err := domainrange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	if !prop.Active {
		return nil, domainproperty.ErrInactive
	}

	ledger, err := unit.Ledger().ForProperty(ctx, prop.ID)
	if err != nil {
		return nil, err
	}
	if ledger.Conflicts(dr) {
		return nil, domainavailability.ErrDateConflict
	}

	now := time.Now().UTC()
	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              domainbooking.BookingID(cmd.CommandID),
		Property:        prop,
		TravelerID:      cmd.TravelerID,
		Range:           dr,
		Guests:          cmd.Guests,
		TotalPriceCents: pricing.TotalCents(dr, prop.PricePerNightCents),
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}

	pendingEvents := bk.PendingEvents()
	bk.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pendingEvents); err != nil {
		return nil, err
	}

	if err := finish(); err != nil {
		return nil, err
	}

	h.notifyOwner(ctx, bk)

	if h.Logger != nil {
		h.Logger.Info("booking requested", "booking_id", bk.ID, "property_id", bk.PropertyID, "range", bk.Range.String())
	}

	return &CreateBookingResult{
		BookingID:       string(bk.ID),
		Status:          string(bk.State),
		TotalPriceCents: bk.TotalPriceCents,
	}, nil
}

// notifyOwner pushes a live notification to the owner's session.
// Delivery failures are logged and discarded.
func (h *CreateBookingHandler) notifyOwner(ctx context.Context, bk *domainbooking.Booking) {
	if h.Notifier == nil {
		return
	}
	payload := map[string]any{
		"booking_id":        string(bk.ID),
		"property_id":       string(bk.PropertyID),
		"traveler_id":       bk.TravelerID,
		"start_date":        bk.Range.Start,
		"end_date":          bk.Range.End,
		"total_price_cents": bk.TotalPriceCents,
	}
	if err := h.Notifier.Notify(ctx, bk.OwnerID, "new_booking", payload); err != nil && h.Logger != nil {
		h.Logger.Warn("owner notification failed", "booking_id", bk.ID, "owner_id", bk.OwnerID, "error", err)
	}
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
