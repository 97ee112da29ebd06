package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
)

// ErrVersionConflict signals a lost optimistic-concurrency race on save.
var ErrVersionConflict = fmt.Errorf("memory: version conflict: %w", uow.ErrConcurrentUpdate)

// PropertyStore is an in-memory read model of the properties collaborator.
type PropertyStore struct {
	mu    sync.RWMutex
	items map[domainproperty.PropertyID]domainproperty.Property
}

func NewPropertyStore() *PropertyStore {
	return &PropertyStore{items: make(map[domainproperty.PropertyID]domainproperty.Property)}
}

// Seed loads properties, replacing existing entries with the same id.
func (s *PropertyStore) Seed(props ...domainproperty.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range props {
		s.items[p.ID] = p
	}
}

func (s *PropertyStore) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, domainproperty.ErrNotFound
	}
	clone := p
	return &clone, nil
}

// BookingRepository stores bookings in memory. Reads return copies so
// uncommitted aggregate mutations never leak; Save enforces the version it
// read, so a stale writer loses with ErrVersionConflict.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bk, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	clone := bk
	clone.ClearEvents()
	return &clone, nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[booking.ID]; ok && current.Version != booking.Version {
		return fmt.Errorf("%w: booking %s", ErrVersionConflict, booking.ID)
	}
	booking.Version++
	clone := *booking
	clone.ClearEvents()
	r.items[booking.ID] = clone
	return nil
}

func (r *BookingRepository) ListByTraveler(ctx context.Context, travelerID string) ([]*domainbooking.Booking, error) {
	return r.list(func(bk domainbooking.Booking) bool { return bk.TravelerID == travelerID })
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domainbooking.Booking, error) {
	return r.list(func(bk domainbooking.Booking) bool { return bk.OwnerID == ownerID })
}

func (r *BookingRepository) list(match func(domainbooking.Booking) bool) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, bk := range r.items {
		if match(bk) {
			clone := bk
			matches = append(matches, &clone)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

// LedgerRepository keeps availability ledgers in memory, one per property.
type LedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[domainproperty.PropertyID]domainavailability.Ledger
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{ledgers: make(map[domainproperty.PropertyID]domainavailability.Ledger)}
}

// ForProperty retrieves a copy of the property's ledger, lazily creating an
// empty one.
func (r *LedgerRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) (*domainavailability.Ledger, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, errors.New("memory: property id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[id]
	if !ok {
		ledger = *domainavailability.NewLedger(id)
		r.ledgers[id] = ledger
	}
	clone := ledger
	clone.Blocks = append([]domainavailability.BlockedRange(nil), ledger.Blocks...)
	return &clone, nil
}

// Save persists a ledger snapshot, enforcing the version it was read at.
func (r *LedgerRepository) Save(ctx context.Context, ledger *domainavailability.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.ledgers[ledger.PropertyID]; ok && current.Version != ledger.Version {
		return fmt.Errorf("%w: ledger %s", ErrVersionConflict, ledger.PropertyID)
	}
	ledger.Version++
	clone := *ledger
	clone.Blocks = append([]domainavailability.BlockedRange(nil), ledger.Blocks...)
	r.ledgers[ledger.PropertyID] = clone
	return nil
}

// BlockedRanges returns the blocked ranges currently held for a property,
// for test and diagnostic use.
func (r *LedgerRepository) BlockedRanges(id domainproperty.PropertyID) []domainavailability.BlockedRange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger, ok := r.ledgers[id]
	if !ok {
		return nil
	}
	out := make([]domainavailability.BlockedRange, len(ledger.Blocks))
	copy(out, ledger.Blocks)
	return out
}
