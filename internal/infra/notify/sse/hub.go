package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stayfinder/internal/app/policies"
)

// Hub is an in-process server-sent-events broadcaster keyed by user id.
// Delivery is best-effort: a user with no connected session simply misses
// the push, which is never an error.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[chan []byte]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[chan []byte]struct{}),
		logger:  logger,
	}
}

// Subscribe registers a session for the user and returns its event channel
// plus an unsubscribe func. The channel is buffered; a session too slow to
// drain it loses messages rather than blocking the sender.
func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[chan []byte]struct{})
		h.clients[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if set, ok := h.clients[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.clients, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// Notify implements the app-layer Notifier port: it frames the payload as
// an SSE event and fans it out to every session of the user.
func (h *Hub) Notify(ctx context.Context, userID string, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))

	h.mu.RLock()
	set := h.clients[userID]
	delivered := 0
	for ch := range set {
		select {
		case ch <- frame:
			delivered++
		default:
		}
	}
	total := len(set)
	h.mu.RUnlock()

	if h.logger != nil {
		h.logger.Debug("sse notify", "user_id", userID, "event", event, "delivered", delivered, "sessions", total)
	}
	return nil
}

// Ping broadcasts an SSE comment to every session to keep connections
// alive through proxies.
func (h *Hub) Ping() {
	frame := []byte(": ping\n\n")
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for ch := range set {
			select {
			case ch <- frame:
			default:
			}
		}
	}
}

// RunPinger emits keepalive pings until the context is cancelled.
func (h *Hub) RunPinger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Ping()
		}
	}
}

// SessionCount reports connected sessions for a user.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

var _ policies.Notifier = (*Hub)(nil)
