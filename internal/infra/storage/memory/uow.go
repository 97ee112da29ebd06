package memory

import (
	"context"
	"errors"

	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
// Writes apply on Save and Commit is a no-op; serialization of the accept
// critical path comes from the per-property locks plus the repositories'
// version checks.
type Factory struct {
	PropertyStore *PropertyStore
	BookingRepo   *BookingRepository
	LedgerRepo    *LedgerRepository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertyStore == nil || f.BookingRepo == nil || f.LedgerRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		properties: f.PropertyStore,
		bookings:   f.BookingRepo,
		ledger:     f.LedgerRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	properties *PropertyStore
	bookings   *BookingRepository
	ledger     *LedgerRepository
}

func (u *Unit) Properties() domainproperty.Store { return u.properties }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Ledger() domainavailability.Repository { return u.ledger }

func (u *Unit) Commit(ctx context.Context) error { return nil }

func (u *Unit) Rollback(ctx context.Context) error { return nil }
