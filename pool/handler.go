package pool

import (
	"context"
	"net/http"
	"sync"

	"github.com/world-in-progress/surfpool/caller"
)

// Handler represents one client borrowed from the pool.
// It is not a connection itself; the client it exposes keeps its own
// connections alive between handlers, so pre-connected clients are ready to use.
type Handler struct {
	pool *Pool
	slot *slot
	once sync.Once
}

// Client returns the borrowed HTTP client. It must not be used after Release.
func (h *Handler) Client() *http.Client {
	return h.slot.client
}

// Slot returns the index of the borrowed client.
func (h *Handler) Slot() int {
	return h.slot.index
}

// Execute sends req through the borrowed client.
func (h *Handler) Execute(ctx context.Context, req *caller.Request) (*caller.Response, error) {
	return req.Execute(ctx, h.slot.client)
}

// Release returns the client to the pool. Calling it more than once is a no-op.
func (h *Handler) Release() {
	h.once.Do(func() {
		h.pool.inUse.Dec()
		h.pool.metrics.HandlerReleased()
		h.pool.unlockSlot(h.slot)
	})
}
