package memory

import (
	"context"
	"sync"

	appoutbox "stayfinder/internal/app/outbox"
)

// Outbox stages event records in memory. Add buffers inside the current
// command; Flush makes the buffered records visible to Drain, which a
// dispatcher loop polls.
type Outbox struct {
	mu     sync.Mutex
	staged []appoutbox.EventRecord
	ready  []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staged = append(o.staged, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = append(o.ready, o.staged...)
	o.staged = nil
	return nil
}

// Drain returns the flushed records and clears them.
func (o *Outbox) Drain() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.ready
	o.ready = nil
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
