package dispatcher

import (
	"context"
	"sync"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// HandlerFunc processes one claimed outbox item. Handlers MUST be
// idempotent: delivery is at-least-once (retries, stuck recovery, manual
// replays), so a second invocation for the same item has to produce the
// same observable end state.
type HandlerFunc func(ctx context.Context, item models.OutboxItem) error

// Router maps event kinds to their handlers. Kinds without a registered
// handler are not routed; the dispatcher marks them delivered so a
// forward-incompatible producer cannot stall the worker.
type Router struct {
	mtx      sync.RWMutex
	handlers map[enums.OutboxEventKind]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[enums.OutboxEventKind]HandlerFunc)}
}

// Register binds a handler to an event kind. Later registrations replace
// earlier ones.
func (r *Router) Register(kind enums.OutboxEventKind, handler HandlerFunc) {
	if handler == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.handlers[kind] = handler
}

// Resolve returns the handler for the kind, or false when none is registered.
func (r *Router) Resolve(kind enums.OutboxEventKind) (HandlerFunc, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	handler, ok := r.handlers[kind]
	return handler, ok
}

// Kinds lists the registered event kinds, mainly for logging at startup.
func (r *Router) Kinds() []enums.OutboxEventKind {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	kinds := make([]enums.OutboxEventKind, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}
