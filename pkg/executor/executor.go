// Package executor issues cancellable requests for descriptors, sharing one
// transport call between concurrent requests for the same cache key and
// writing successful payloads back to the result cache.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/logging"
	"github.com/Sternrassler/reqstate/pkg/transport"
)

// ErrCanceled is the outcome of a call aborted before it settled.
// It is not a failure and must never reach a consumer.
var ErrCanceled = errors.New("request canceled")

// IsCanceled reports whether err is a cancellation outcome.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || transport.IsCanceled(err)
}

// Executor runs transport calls against a result store and an in-flight
// registry.
type Executor struct {
	transport transport.Transport
	store     cache.Store
	registry  *Registry
	logger    *zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRegistry shares an existing in-flight registry.
func WithRegistry(r *Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = &logger
	}
}

// New creates an executor.
func New(t transport.Transport, store cache.Store, opts ...Option) *Executor {
	if t == nil {
		panic("transport cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}

	e := &Executor{
		transport: t,
		store:     store,
		registry:  NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// log returns the configured logger, or one derived from the global logger
// at call time.
func (e *Executor) log() *zerolog.Logger {
	if e.logger != nil {
		return e.logger
	}
	l := logging.NewLogger("executor")
	return &l
}

// Store returns the result store.
func (e *Executor) Store() cache.Store {
	return e.store
}

// Registry returns the in-flight registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute issues the call for d, or attaches to the in-flight call already
// registered under key. An empty key disables both deduplication and the
// cache write-back.
//
// Keyed calls are registered before Execute returns.
func (e *Executor) Execute(d *descriptor.Descriptor, key string) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	fresh := newCall(uuid.NewString(), key, e.registry, cancel)

	if key != "" {
		c, attached := e.registry.attachOrRegister(key, fresh)
		if attached {
			cancel()
			dedupAttachTotal.Inc()
			e.log().Debug().
				Str("key", key).
				Str("call_id", c.id).
				Msg("Attached to in-flight call")
			return &Handle{call: c}
		}
	}

	e.log().Debug().
		Str("key", key).
		Str("url", d.URL).
		Str("call_id", fresh.id).
		Msg("Starting call")

	go e.run(ctx, fresh, d)

	return &Handle{call: fresh, owner: true}
}

func (e *Executor) run(ctx context.Context, c *Call, d *descriptor.Descriptor) {
	resp, err := e.transport.Do(ctx, d)

	switch {
	case err == nil:
		var payload []byte
		if resp != nil {
			payload = resp.Data
		}
		if c.key != "" {
			if setErr := e.store.Set(context.Background(), c.key, payload); setErr != nil {
				e.log().Warn().Err(setErr).Str("key", c.key).Msg("Failed to cache response")
			}
			e.registry.remove(c.key, c)
		}
		c.finish(payload, nil)

	case IsCanceled(err) || c.wasAborted():
		if c.key != "" {
			e.registry.remove(c.key, c)
		}
		e.log().Debug().Str("call_id", c.id).Msg("Call aborted")
		c.finish(nil, fmt.Errorf("%w: %w", ErrCanceled, err))

	default:
		if c.key != "" {
			e.registry.remove(c.key, c)
		}
		c.finish(nil, err)
	}
}

// Warmup starts fetching d ahead of any consumer so a later request under
// policy finds either a warm cache or a call to attach to. It returns nil when
// the policy disables caching, the store already holds the key or a call for
// the key is already in flight.
//
// The returned handle is never cancelled by the executor; the call always
// runs to completion.
func (e *Executor) Warmup(ctx context.Context, d *descriptor.Descriptor, policy cache.Policy) *Handle {
	key, ok := cache.KeyFor(policy, d)
	if !ok {
		return nil
	}
	if e.store.Has(ctx, key) {
		return nil
	}
	if _, inflight := e.registry.Lookup(key); inflight {
		return nil
	}
	return e.Execute(d, key)
}

// Reset clears the result store and forgets every in-flight entry.
func (e *Executor) Reset(ctx context.Context) error {
	e.registry.Clear()
	return e.store.Clear(ctx)
}

// Handle is one party's view of a call.
type Handle struct {
	call  *Call
	owner bool
	once  sync.Once
}

// Done is closed when the call has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.call.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (h *Handle) Result() ([]byte, error) {
	h.call.mu.Lock()
	defer h.call.mu.Unlock()
	return h.call.payload, h.call.err
}

// Wait blocks until the call settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-h.call.done:
		return h.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel releases this handle's hold on the call. The transport is only
// aborted once no handle holds the call any more, so detaching never breaks
// a call other parties still wait on. Cancel is idempotent.
func (h *Handle) Cancel() {
	h.once.Do(h.call.release)
}

// Owner reports whether this handle started the call.
func (h *Handle) Owner() bool {
	return h.owner
}

// Call returns the underlying call.
func (h *Handle) Call() *Call {
	return h.call
}
