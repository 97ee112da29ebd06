package availability

import (
	"context"
	"errors"
	"time"

	"stayfinder/internal/domain/property"
	"stayfinder/internal/domain/shared/daterange"
)

var ErrDateConflict = errors.New("availability: range overlaps an existing block")

// BlockedRange is the materialized unavailability record tied to an
// accepted booking.
type BlockedRange struct {
	PropertyID property.PropertyID
	BookingID  string
	Range      daterange.DateRange
	CreatedAt  time.Time
}

// Ledger is the authoritative set of blocked date ranges for one property.
// Version supports optimistic concurrency at the storage layer: two accepts
// racing for the same property cannot both save the same version.
type Ledger struct {
	PropertyID property.PropertyID
	Blocks     []BlockedRange
	Version    int64
}

type Repository interface {
	// ForProperty loads the ledger, lazily creating an empty one.
	ForProperty(ctx context.Context, id property.PropertyID) (*Ledger, error)
	Save(ctx context.Context, ledger *Ledger) error
}

func NewLedger(id property.PropertyID) *Ledger {
	return &Ledger{PropertyID: id}
}

// Conflicts reports whether r overlaps any blocked range.
func (l *Ledger) Conflicts(r daterange.DateRange) bool {
	for _, block := range l.Blocks {
		if block.Range.Overlaps(r) {
			return true
		}
	}
	return false
}

// Block appends a blocked range for the booking. Callers check Conflicts
// first inside the same unit of work; the check here is a final guard.
func (l *Ledger) Block(bookingID string, r daterange.DateRange, now time.Time) error {
	if l.Conflicts(r) {
		return ErrDateConflict
	}
	l.Blocks = append(l.Blocks, BlockedRange{
		PropertyID: l.PropertyID,
		BookingID:  bookingID,
		Range:      r,
		CreatedAt:  now.UTC(),
	})
	return nil
}

// Unblock removes the range tied to the booking. It is a no-op when the
// booking holds no block.
func (l *Ledger) Unblock(bookingID string) {
	for i, block := range l.Blocks {
		if block.BookingID == bookingID {
			l.Blocks = append(l.Blocks[:i], l.Blocks[i+1:]...)
			return
		}
	}
}
