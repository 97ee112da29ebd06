package booking

import (
	"sync"

	"stayfinder/internal/domain/property"
)

// PropertyLocks serializes ledger mutations per property. The lock spans the
// conflict re-check and the block insertion so two accepts racing for
// overlapping dates on one property cannot both pass the check.
type PropertyLocks struct {
	mu    sync.Mutex
	locks map[property.PropertyID]*sync.Mutex
}

func NewPropertyLocks() *PropertyLocks {
	return &PropertyLocks{locks: make(map[property.PropertyID]*sync.Mutex)}
}

// Lock acquires the mutex for the property and returns its unlock func.
func (p *PropertyLocks) Lock(id property.PropertyID) func() {
	p.mu.Lock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	p.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
