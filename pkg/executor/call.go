package executor

import (
	"context"
	"sync"
)

// Call is one underlying transport call, possibly shared by several handles.
type Call struct {
	id       string
	key      string
	registry *Registry
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	refs    int
	aborted bool
	settled bool
	payload []byte
	err     error
}

func newCall(id, key string, registry *Registry, cancel context.CancelFunc) *Call {
	return &Call{
		id:       id,
		key:      key,
		registry: registry,
		cancel:   cancel,
		done:     make(chan struct{}),
		refs:     1,
	}
}

// ID returns the correlation id of the call.
func (c *Call) ID() string {
	return c.id
}

// Key returns the cache key of the call, empty for unkeyed calls.
func (c *Call) Key() string {
	return c.key
}

// Refs returns the number of handles still holding the call.
func (c *Call) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// release drops one reference. The last release of an unsettled call aborts
// the transport and unregisters the call so nobody attaches to a dead call.
func (c *Call) release() {
	if c.key != "" && c.registry != nil {
		c.registry.mu.Lock()
		defer c.registry.mu.Unlock()
	}

	c.mu.Lock()
	c.refs--
	abort := c.refs == 0 && !c.settled && !c.aborted
	if abort {
		c.aborted = true
	}
	c.mu.Unlock()

	if !abort {
		return
	}

	if c.key != "" && c.registry != nil {
		c.registry.removeLocked(c.key, c)
	}
	callAbortsTotal.Inc()
	c.cancel()
}

// finish records the outcome and wakes every waiter.
func (c *Call) finish(payload []byte, err error) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	c.payload = payload
	c.err = err
	c.mu.Unlock()

	close(c.done)
	c.cancel()
}

func (c *Call) wasAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}
