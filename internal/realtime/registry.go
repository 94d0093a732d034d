package realtime

import (
	"sync"

	"github.com/rs/xid"
)

// Handle is the transport side of a live connection. The registry is the
// sole owner of handles; everything else refers to connections by id.
type Handle interface {
	// Send enqueues a serialized frame for delivery.
	Send(data []byte) error

	// IsOpen reports whether the transport can still accept frames.
	IsOpen() bool

	// Close tears the transport down. Idempotent.
	Close() error
}

// Registry tracks every live connection by an opaque identifier.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Handle),
	}
}

// NewConnID mints a fresh opaque connection identifier. Ids are minted
// before the handle is built so its callbacks never observe an empty id.
func NewConnID() string {
	return xid.New().String()
}

// Register stores a handle under id.
func (r *Registry) Register(id string, h Handle) {
	r.mu.Lock()
	r.conns[id] = h
	r.mu.Unlock()
}

// Get returns the handle for an id, if present.
func (r *Registry) Get(id string) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.conns[id]
	r.mu.RUnlock()
	return h, ok
}

// Remove drops an id from the registry. Idempotent; removing an absent id is
// a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Send delivers a serialized frame to one connection. Absent or closed
// handles are skipped silently: a peer may disconnect between membership
// lookup and delivery, and that race must never abort a broadcast.
func (r *Registry) Send(id string, data []byte) {
	h, ok := r.Get(id)
	if !ok || !h.IsOpen() {
		return
	}

	// Delivery failure is benign here for the same reason absence is.
	_ = h.Send(data)
}

// ForEach calls fn for a snapshot of every registered connection. fn runs
// without the registry lock held.
func (r *Registry) ForEach(fn func(id string, h Handle)) {
	r.mu.RLock()
	snapshot := make(map[string]Handle, len(r.conns))
	for id, h := range r.conns {
		snapshot[id] = h
	}
	r.mu.RUnlock()

	for id, h := range snapshot {
		fn(id, h)
	}
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
