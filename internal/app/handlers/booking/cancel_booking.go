package booking

import (
	"context"
	"log/slog"
	"time"

	"stayfinder/internal/app/commands"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID   string
	RequesterID string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Locks      *PropertyLocks
	Logger     *slog.Logger
}

// Handle cancels a booking on behalf of its traveler or owner. When the
// booking was ACCEPTED its blocked range is released in the same atomic
// unit, reopening the dates for new acceptances. No cutoff policy applies.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	unit, ctx, finish, cleanup, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if !bk.IsParty(cmd.RequesterID) {
		return nil, ErrForbidden
	}

	if h.Locks != nil {
		unlock := h.Locks.Lock(bk.PropertyID)
		defer unlock()
	}

	releaseBlock, err := bk.Cancel(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if releaseBlock {
		ledger, err := unit.Ledger().ForProperty(ctx, bk.PropertyID)
		if err != nil {
			return nil, err
		}
		ledger.Unblock(string(bk.ID))
		if err := unit.Ledger().Save(ctx, ledger); err != nil {
			return nil, err
		}
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

	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", bk.ID, "property_id", bk.PropertyID, "released_block", releaseBlock)
	}

	return &CancelBookingResult{BookingID: string(bk.ID), Status: string(bk.State)}, nil
}

func (h *CancelBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
