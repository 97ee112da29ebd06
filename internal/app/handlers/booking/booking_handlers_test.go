package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stayfinder/internal/app/commands"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/middleware"
	"stayfinder/internal/app/queries"
	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/infra/storage/memory"
)

type notifyCall struct {
	UserID  string
	Event   string
	Payload any
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) Notify(ctx context.Context, userID string, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{UserID: userID, Event: event, Payload: payload})
	return nil
}

func (n *fakeNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifyCall, len(n.calls))
	copy(out, n.calls)
	return out
}

type testEnv struct {
	props    *memory.PropertyStore
	bookings *memory.BookingRepository
	ledgers  *memory.LedgerRepository
	box      *memory.Outbox
	notifier *fakeNotifier
	commands commands.Bus
	queries  queries.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		props:    memory.NewPropertyStore(),
		bookings: memory.NewBookingRepository(),
		ledgers:  memory.NewLedgerRepository(),
		box:      memory.NewOutbox(),
		notifier: &fakeNotifier{},
	}
	env.props.Seed(
		domainproperty.Property{
			ID:                 "prop-1",
			OwnerID:            "owner-1",
			Name:               "Seaside cottage",
			MaxGuests:          4,
			PricePerNightCents: 10000,
			Active:             true,
		},
		domainproperty.Property{
			ID:                 "prop-dormant",
			OwnerID:            "owner-1",
			Name:               "Closed cabin",
			MaxGuests:          2,
			PricePerNightCents: 8000,
			Active:             false,
		},
	)

	factory := memory.Factory{
		PropertyStore: env.props,
		BookingRepo:   env.bookings,
		LedgerRepo:    env.ledgers,
	}
	locks := NewPropertyLocks()

	bus := commands.NewInMemoryBus()
	commands.Register(bus, CreateBookingCommand{}.Key(), &CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     env.box,
		Notifier:   env.notifier,
	})
	commands.Register(bus, AcceptBookingCommand{}.Key(), &AcceptBookingHandler{
		UoWFactory: factory,
		Outbox:     env.box,
		Locks:      locks,
	})
	commands.Register(bus, CancelBookingCommand{}.Key(), &CancelBookingHandler{
		UoWFactory: factory,
		Outbox:     env.box,
		Locks:      locks,
	})
	env.commands = middleware.ChainCommands(bus,
		middleware.OutboxFlush(env.box),
		middleware.Transaction(factory, nil),
	)

	queryBus := queries.NewInMemoryBus()
	queries.Register(queryBus, GetBookingQuery{}.Key(), &GetBookingHandler{UoWFactory: factory})
	queries.Register(queryBus, ListBookingsQuery{}.Key(), &ListBookingsHandler{UoWFactory: factory})
	env.queries = queryBus

	return env
}

func june(day int) time.Time {
	return time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) create(t *testing.T, id, traveler string, startDay, endDay, guests int) (*CreateBookingResult, error) {
	t.Helper()
	return commands.Dispatch[CreateBookingCommand, *CreateBookingResult](context.Background(), e.commands, CreateBookingCommand{
		CommandID:  id,
		PropertyID: "prop-1",
		TravelerID: traveler,
		Start:      june(startDay),
		End:        june(endDay),
		Guests:     guests,
	})
}

func (e *testEnv) accept(t *testing.T, bookingID, ownerID string) (*AcceptBookingResult, error) {
	t.Helper()
	return commands.Dispatch[AcceptBookingCommand, *AcceptBookingResult](context.Background(), e.commands, AcceptBookingCommand{
		BookingID: bookingID,
		OwnerID:   ownerID,
	})
}

func (e *testEnv) cancel(t *testing.T, bookingID, requesterID string) (*CancelBookingResult, error) {
	t.Helper()
	return commands.Dispatch[CancelBookingCommand, *CancelBookingResult](context.Background(), e.commands, CancelBookingCommand{
		BookingID:   bookingID,
		RequesterID: requesterID,
	})
}

func (e *testEnv) get(t *testing.T, bookingID, requesterID string) (dto.BookingView, error) {
	t.Helper()
	return queries.Ask[GetBookingQuery, dto.BookingView](context.Background(), e.queries, GetBookingQuery{
		BookingID:   bookingID,
		RequesterID: requesterID,
	})
}

func drainEventNames(box *memory.Outbox) []string {
	records := box.Drain()
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.create(t, "bk-1", "traveler-1", 1, 4, 2)
	require.NoError(t, err)
	require.Equal(t, "bk-1", res.BookingID)
	require.Equal(t, string(domainbooking.StatePending), res.Status)
	require.Equal(t, int64(30000), res.TotalPriceCents)

	require.Equal(t, []string{"booking.created"}, drainEventNames(env.box))

	calls := env.notifier.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "owner-1", calls[0].UserID)
	require.Equal(t, "new_booking", calls[0].Event)
}

func TestCreateBooking_UnknownProperty(t *testing.T) {
	env := newTestEnv(t)

	_, err := commands.Dispatch[CreateBookingCommand, *CreateBookingResult](context.Background(), env.commands, CreateBookingCommand{
		CommandID:  "bk-1",
		PropertyID: "prop-missing",
		TravelerID: "traveler-1",
		Start:      june(1),
		End:        june(4),
		Guests:     2,
	})
	require.ErrorIs(t, err, domainproperty.ErrNotFound)
}

func TestCreateBooking_InactiveProperty(t *testing.T) {
	env := newTestEnv(t)

	_, err := commands.Dispatch[CreateBookingCommand, *CreateBookingResult](context.Background(), env.commands, CreateBookingCommand{
		CommandID:  "bk-1",
		PropertyID: "prop-dormant",
		TravelerID: "traveler-1",
		Start:      june(1),
		End:        june(4),
		Guests:     2,
	})
	require.ErrorIs(t, err, domainproperty.ErrInactive)
}

func TestCreateBooking_InvalidRange(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 4, 1, 2)
	require.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestCreateBooking_CapacityExceededPersistsNothing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 1, 4, 9)
	require.ErrorIs(t, err, domainbooking.ErrCapacityExceeded)

	listed, lerr := env.bookings.ListByTraveler(context.Background(), "traveler-1")
	require.NoError(t, lerr)
	require.Empty(t, listed)
	require.Empty(t, env.box.Drain())
}

func TestCreateBooking_RejectsAcceptedRange(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)
	_, err = env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)

	_, err = env.create(t, "bk-2", "traveler-2", 12, 17, 2)
	require.ErrorIs(t, err, domainavailability.ErrDateConflict)
}

func TestOverlappingPendingsFirstAcceptWins(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)
	_, err = env.create(t, "bk-2", "traveler-2", 12, 17, 2)
	require.NoError(t, err, "overlapping requests stay possible while pending")

	res, err := env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StateAccepted), res.Status)

	_, err = env.accept(t, "bk-2", "owner-1")
	require.ErrorIs(t, err, domainavailability.ErrDateConflict)

	// the loser stays PENDING, awaiting an explicit owner decision
	view, err := env.get(t, "bk-2", "traveler-2")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StatePending), view.Status)
}

func TestAccept_TouchingRanges(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)
	_, err = env.create(t, "bk-2", "traveler-2", 15, 20, 2)
	require.NoError(t, err)

	_, err = env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)
	_, err = env.accept(t, "bk-2", "owner-1")
	require.NoError(t, err, "checkout day equals check-in day, no shared night")
}

func TestAccept_Authorization(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)

	_, err = env.accept(t, "bk-1", "intruder")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.accept(t, "bk-missing", "owner-1")
	require.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestAccept_InvalidStates(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)
	_, err = env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)

	_, err = env.accept(t, "bk-1", "owner-1")
	require.ErrorIs(t, err, domainbooking.ErrInvalidState)

	_, err = env.create(t, "bk-2", "traveler-2", 20, 22, 2)
	require.NoError(t, err)
	_, err = env.cancel(t, "bk-2", "traveler-2")
	require.NoError(t, err)

	_, err = env.accept(t, "bk-2", "owner-1")
	require.ErrorIs(t, err, domainbooking.ErrAlreadyCancelled)
}

func TestCancel_PendingIsTerminal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)

	res, err := env.cancel(t, "bk-1", "traveler-1")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StateCancelled), res.Status)

	_, err = env.cancel(t, "bk-1", "traveler-1")
	require.ErrorIs(t, err, domainbooking.ErrAlreadyCancelled)
}

func TestCancel_AcceptedReleasesRange(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)
	_, err = env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)
	require.Len(t, env.ledgers.BlockedRanges("prop-1"), 1)

	_, err = env.cancel(t, "bk-1", "owner-1")
	require.NoError(t, err)
	require.Empty(t, env.ledgers.BlockedRanges("prop-1"))

	// the freed dates can be booked and accepted again
	_, err = env.create(t, "bk-2", "traveler-2", 10, 15, 2)
	require.NoError(t, err)
	res, err := env.accept(t, "bk-2", "owner-1")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StateAccepted), res.Status)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)

	_, err = env.cancel(t, "bk-1", "intruder")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetBooking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)

	view, err := env.get(t, "bk-1", "traveler-1")
	require.NoError(t, err)
	require.Equal(t, "bk-1", view.ID)
	require.Equal(t, "prop-1", view.PropertyID)
	require.Equal(t, int64(50000), view.TotalPriceCents)

	_, err = env.get(t, "bk-1", "owner-1")
	require.NoError(t, err)

	_, err = env.get(t, "bk-1", "intruder")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.get(t, "bk-missing", "traveler-1")
	require.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestListBookings(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 1, 3, 2)
	require.NoError(t, err)
	_, err = env.create(t, "bk-2", "traveler-1", 10, 12, 2)
	require.NoError(t, err)
	_, err = env.create(t, "bk-3", "traveler-2", 20, 22, 2)
	require.NoError(t, err)
	_, err = env.accept(t, "bk-2", "owner-1")
	require.NoError(t, err)

	asTraveler, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](context.Background(), env.queries, ListBookingsQuery{
		UserID: "traveler-1",
		Role:   RoleTraveler,
	})
	require.NoError(t, err)
	require.Len(t, asTraveler.Items, 2)

	asOwner, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](context.Background(), env.queries, ListBookingsQuery{
		UserID: "owner-1",
		Role:   RoleOwner,
	})
	require.NoError(t, err)
	require.Len(t, asOwner.Items, 3)

	accepted, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](context.Background(), env.queries, ListBookingsQuery{
		UserID: "owner-1",
		Role:   RoleOwner,
		Status: "accepted",
	})
	require.NoError(t, err)
	require.Len(t, accepted.Items, 1)
	require.Equal(t, "bk-2", accepted.Items[0].ID)

	_, err = queries.Ask[ListBookingsQuery, dto.BookingCollection](context.Background(), env.queries, ListBookingsQuery{
		UserID: "owner-1",
		Role:   "admin",
	})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestConcurrentAccepts_ExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)

	const contenders = 8
	ids := make([]string, contenders)
	for i := range ids {
		ids[i] = fmt.Sprintf("bk-%d", i)
		_, err := env.create(t, ids[i], fmt.Sprintf("traveler-%d", i), 10, 15, 2)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.accept(t, id, "owner-1")
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.True(t, errors.Is(err, domainavailability.ErrDateConflict), "unexpected error: %v", err)
	}
	require.Equal(t, 1, accepted, "exactly one overlapping accept may win")
	require.Len(t, env.ledgers.BlockedRanges("prop-1"), 1)
}

// staleLedgerRepo simulates a backend whose ledger write loses its version
// race, the way a Mongo CAS does when a concurrent accept committed first.
type staleLedgerRepo struct {
	domainavailability.Repository
}

func (staleLedgerRepo) Save(ctx context.Context, l *domainavailability.Ledger) error {
	return memory.ErrVersionConflict
}

type staleLedgerUnit struct {
	uow.UnitOfWork
}

func (u staleLedgerUnit) Ledger() domainavailability.Repository {
	return staleLedgerRepo{u.UnitOfWork.Ledger()}
}

type staleLedgerFactory struct {
	inner uow.UoWFactory
}

func (f staleLedgerFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return staleLedgerUnit{unit}, nil
}

func TestAccept_LostLedgerRaceIsDateConflict(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create(t, "bk-1", "traveler-1", 10, 15, 2)
	require.NoError(t, err)

	factory := memory.Factory{
		PropertyStore: env.props,
		BookingRepo:   env.bookings,
		LedgerRepo:    env.ledgers,
	}
	handler := &AcceptBookingHandler{
		UoWFactory: staleLedgerFactory{inner: factory},
		Outbox:     env.box,
		Locks:      NewPropertyLocks(),
	}

	_, err = handler.Handle(context.Background(), AcceptBookingCommand{BookingID: "bk-1", OwnerID: "owner-1"})
	require.ErrorIs(t, err, domainavailability.ErrDateConflict)

	// the loser stays PENDING and the dates stay unblocked
	view, err := env.get(t, "bk-1", "traveler-1")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StatePending), view.Status)
	require.Empty(t, env.ledgers.BlockedRanges("prop-1"))
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// traveler requests a stay
	created, err := env.create(t, "bk-1", "traveler-1", 1, 4, 3)
	require.NoError(t, err)
	require.Equal(t, int64(30000), created.TotalPriceCents)
	require.Equal(t, []string{"booking.created"}, drainEventNames(env.box))

	// owner confirms, dates become blocked
	_, err = env.accept(t, "bk-1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, []string{"booking.accepted"}, drainEventNames(env.box))
	require.Len(t, env.ledgers.BlockedRanges("prop-1"), 1)

	// a competing request for the same dates bounces
	_, err = env.create(t, "bk-2", "traveler-2", 2, 5, 2)
	require.ErrorIs(t, err, domainavailability.ErrDateConflict)

	// traveler cancels, dates reopen
	_, err = env.cancel(t, "bk-1", "traveler-1")
	require.NoError(t, err)
	require.Equal(t, []string{"booking.cancelled"}, drainEventNames(env.box))
	require.Empty(t, env.ledgers.BlockedRanges("prop-1"))

	// and the competitor can now book and get accepted
	_, err = env.create(t, "bk-3", "traveler-2", 2, 5, 2)
	require.NoError(t, err)
	res, err := env.accept(t, "bk-3", "owner-1")
	require.NoError(t, err)
	require.Equal(t, string(domainbooking.StateAccepted), res.Status)
}
