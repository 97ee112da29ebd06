package outbox

import (
	"context"
	"sync"
	"time"

	"stayfinder/internal/infra/storage/memory"
)

// MemoryQueue adapts the in-memory outbox to the worker's Queue interface,
// so memory-backed deployments still publish booking events to Kafka.
type MemoryQueue struct {
	Outbox *memory.Outbox

	mu      sync.Mutex
	pending []*EventDocument
}

func NewMemoryQueue(box *memory.Outbox) *MemoryQueue {
	return &MemoryQueue{Outbox: box}
}

func (q *MemoryQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, rec := range q.Outbox.Drain() {
		q.pending = append(q.pending, &EventDocument{
			ID:         rec.ID,
			Name:       rec.Name,
			Payload:    rec.Payload,
			OccurredAt: rec.OccurredAt,
			Aggregate:  rec.Aggregate,
			Headers:    rec.Headers,
			State:      stateNew,
		})
	}
	now := time.Now().UTC()
	for _, doc := range q.pending {
		if doc.State == stateSent || doc.State == stateClaimed {
			continue
		}
		if doc.State == stateFailed && doc.NextAttempt.After(now) {
			continue
		}
		doc.State = stateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		return doc, nil
	}
	return nil, nil
}

func (q *MemoryQueue) MarkSent(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, doc := range q.pending {
		if doc.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, doc := range q.pending {
		if doc.ID == id {
			doc.State = stateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
