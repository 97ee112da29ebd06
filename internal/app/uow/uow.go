package uow

import (
	"context"
	"errors"

	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
)

// ErrConcurrentUpdate is the shared sentinel wrapped by every storage
// backend when an optimistic-concurrency save loses its race. Handlers and
// the HTTP layer match on it without knowing which backend is wired.
var ErrConcurrentUpdate = errors.New("uow: concurrent update")

// UnitOfWork coordinates the booking core's repositories inside one
// transaction boundary. Accept and cancel rely on Commit applying the
// booking state change and the ledger mutation all-or-nothing.
type UnitOfWork interface {
	Properties() domainproperty.Store
	Bookings() domainbooking.Repository
	Ledger() domainavailability.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
