package executor

import "sync"

// Registry tracks in-flight calls by cache key so concurrent requests for
// the same key share a single transport call.
//
// An entry exists from the moment a keyed call starts until it settles or is
// aborted; the registry never holds a finished call.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*Call
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]*Call),
	}
}

// Lookup returns the in-flight call for key, if any.
func (r *Registry) Lookup(key string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[key]
	return c, ok
}

// Len returns the number of in-flight keyed calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Clear forgets every entry without touching the calls themselves. Calls that
// are still running settle normally but can no longer be attached to.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.calls {
		delete(r.calls, key)
		inflightRequests.Dec()
	}
}

// attachOrRegister returns the live call for key with one more reference
// taken, or registers fresh when there is none.
func (r *Registry) attachOrRegister(key string, fresh *Call) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.calls[key]; ok {
		c.mu.Lock()
		c.refs++
		c.mu.Unlock()
		return c, true
	}

	r.calls[key] = fresh
	inflightRequests.Inc()
	return fresh, false
}

// remove deletes key only while it still maps to c. Callers hold no call lock.
func (r *Registry) remove(key string, c *Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(key, c)
}

func (r *Registry) removeLocked(key string, c *Call) {
	if cur, ok := r.calls[key]; ok && cur == c {
		delete(r.calls, key)
		inflightRequests.Dec()
	}
}
