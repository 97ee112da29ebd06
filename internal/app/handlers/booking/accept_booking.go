package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayfinder/internal/app/commands"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
)

const acceptBookingKey = "booking.accept"

type AcceptBookingCommand struct {
	BookingID string
	OwnerID   string
}

func (c AcceptBookingCommand) Key() string { return acceptBookingKey }

type AcceptBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type AcceptBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Locks      *PropertyLocks
	Logger     *slog.Logger
}

// Handle is the critical path: the availability re-check, the state
// transition and the block insertion must execute as one atomic unit. The
// world may have changed since the traveler's request, so the creation-time
// check is never reused. A conflicting accept leaves the booking PENDING;
// declining the loser is the owner's explicit call.
func (h *AcceptBookingHandler) Handle(ctx context.Context, cmd AcceptBookingCommand) (*AcceptBookingResult, error) {
	unit, ctx, finish, cleanup, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if bk.OwnerID != cmd.OwnerID {
		return nil, ErrForbidden
	}
	if bk.State != domainbooking.StatePending {
		if bk.State == domainbooking.StateCancelled {
			return nil, domainbooking.ErrAlreadyCancelled
		}
		return nil, domainbooking.ErrInvalidState
	}

	if h.Locks != nil {
		unlock := h.Locks.Lock(bk.PropertyID)
		defer unlock()
	}

	ledger, err := unit.Ledger().ForProperty(ctx, bk.PropertyID)
	if err != nil {
		return nil, err
	}
	if ledger.Conflicts(bk.Range) {
		if h.Logger != nil {
			h.Logger.Info("accept rejected on re-check", "booking_id", bk.ID, "property_id", bk.PropertyID, "range", bk.Range.String())
		}
		return nil, domainavailability.ErrDateConflict
	}

	now := time.Now().UTC()
	if err := bk.Accept(now); err != nil {
		return nil, err
	}
	if err := ledger.Block(string(bk.ID), bk.Range, now); err != nil {
		return nil, err
	}

	// the ledger is the contended document, so it is written first: a lost
	// version race means a concurrent accept blocked the dates, and the
	// booking must stay PENDING and untouched
	if err := unit.Ledger().Save(ctx, ledger); err != nil {
		if errors.Is(err, uow.ErrConcurrentUpdate) {
			return nil, domainavailability.ErrDateConflict
		}
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

	if h.Logger != nil {
		h.Logger.Info("booking accepted", "booking_id", bk.ID, "property_id", bk.PropertyID, "range", bk.Range.String())
	}

	return &AcceptBookingResult{BookingID: string(bk.ID), Status: string(bk.State)}, nil
}

func (h *AcceptBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[AcceptBookingCommand, *AcceptBookingResult] = (*AcceptBookingHandler)(nil)
