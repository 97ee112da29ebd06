package policies

import "context"

// Notifier pushes an event to a connected user session, fire-and-forget.
// An absent recipient is not an error; failures must never surface into the
// booking transaction.
type Notifier interface {
	Notify(ctx context.Context, userID string, event string, payload any) error
}
