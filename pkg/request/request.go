// Package request binds a descriptor to the request state machine: it starts
// and cancels executor calls as the state changes, drives polling and
// delivers outcomes to subscribers and callbacks.
//
// Every transition of a Request is applied under one lock, so the state a
// caller observes always matches the effects that are running. Transport
// calls and poll timers run on their own goroutines and only re-enter
// through that lock; outcomes of superseded calls are discarded.
package request

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/executor"
	"github.com/Sternrassler/reqstate/pkg/logging"
	"github.com/Sternrassler/reqstate/pkg/state"
)

// Option configures a Request.
type Option func(*Request)

// WithPollInterval refreshes the request every d once it has settled.
// Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(r *Request) {
		r.pollInterval = d
	}
}

// WithCachePolicy sets the cache policy (default NoCache).
func WithCachePolicy(p cache.Policy) Option {
	return func(r *Request) {
		r.policy = p
	}
}

// WithOnSuccess registers a callback invoked with every accepted payload.
func WithOnSuccess(fn func([]byte)) Option {
	return func(r *Request) {
		r.onSuccess = fn
	}
}

// WithOnError registers a callback invoked with every accepted failure.
func WithOnError(fn func(error)) Option {
	return func(r *Request) {
		r.onError = fn
	}
}

// WithExecutor sets the executor (default executor.Default).
func WithExecutor(e *executor.Executor) Option {
	return func(r *Request) {
		r.exec = e
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Request) {
		r.logger = logger
	}
}

type fetchDeps struct {
	config    *descriptor.Descriptor
	requestID int
}

type pollDeps struct {
	active   bool
	fetching bool
	interval time.Duration
}

type fetchTag struct {
	seq       uint64
	config    *descriptor.Descriptor
	requestID int
}

type notification struct {
	state    state.State
	callback func()
}

type subscriber struct {
	id int
	fn func(state.State)
}

// Request manages one logical request for its consumer.
type Request struct {
	exec         *executor.Executor
	policy       cache.Policy
	pollInterval time.Duration
	onSuccess    func([]byte)
	onError      func(error)
	logger       zerolog.Logger

	mu       sync.Mutex
	reducer  state.Reducer
	state    state.State
	closed   bool
	fetch    effect[fetchDeps]
	poll     effect[pollDeps]
	fetchSeq uint64
	pollSeq  uint64

	subscribers []subscriber
	nextSubID   int
	pending     []notification
	draining    bool
}

// New mounts a request for d. A nil descriptor mounts an idle request that
// fetches nothing until it is given one.
func New(d *descriptor.Descriptor, opts ...Option) *Request {
	r := &Request{
		exec:   executor.Default,
		policy: cache.NoCache,
		logger: logging.NewLogger("request"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.reducer = state.Reducer{Policy: r.policy, Store: r.exec.Store()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.reducer.Init(d, d, nil)
	r.syncEffectsLocked()

	return r
}

// State returns a snapshot of the current state.
func (r *Request) State() state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Observe reports the descriptor the consumer currently supplies and returns
// the resulting state. A descriptor other than the one last observed
// reconfigures the request; observing the same one again is a no-op.
func (r *Request) Observe(d *descriptor.Descriptor) state.State {
	s, _ := r.dispatch(state.ConfigChanged{Config: d}, nil)
	return s
}

// Refresh starts a new fetch generation for the current descriptor. It is a
// no-op while no descriptor is configured.
func (r *Request) Refresh() {
	r.mu.Lock()
	if r.closed || r.state.Config == nil {
		r.mu.Unlock()
		return
	}
	r.applyLocked(state.Poll{}, nil)
}

// Update replaces the descriptor. Unlike Observe it leaves the last observed
// descriptor in place, so observing that descriptor again later does not
// undo the update.
func (r *Request) Update(d *descriptor.Descriptor) {
	r.dispatch(state.ManuallySetConfig{Config: d}, nil)
}

// SetPollInterval changes the poll interval. Zero disables polling.
func (r *Request) SetPollInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pollInterval = d
	r.syncEffectsLocked()
}

// Subscribe registers fn to be called with every committed state. Calls are
// made in commit order, never concurrently. The returned function removes
// the subscription.
func (r *Request) Subscribe(fn func(state.State)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers = append(r.subscribers, subscriber{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.subscribers {
			if sub.id == id {
				r.subscribers = append(r.subscribers[:i:i], r.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Close tears the request down. Calls it owns are released and pending
// outcomes and callbacks are dropped. The shared result cache and in-flight
// registry are left alone. Close is idempotent.
func (r *Request) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.fetch.stop()
	r.poll.stop()
	r.pending = nil

	r.logger.Debug().
		Int("request_id", r.state.RequestID).
		Msg("Request closed")
}

// dispatch applies a and delivers the resulting notification.
func (r *Request) dispatch(a state.Action, callback func()) (state.State, bool) {
	r.mu.Lock()
	if r.closed {
		s := r.state
		r.mu.Unlock()
		return s, false
	}
	return r.applyLocked(a, callback)
}

// applyLocked reduces a, syncs effects and queues the notification. It must
// be called with mu held and releases it.
func (r *Request) applyLocked(a state.Action, callback func()) (state.State, bool) {
	next, changed := r.reducer.Reduce(r.state, a)
	if !changed {
		r.mu.Unlock()
		return next, false
	}

	r.state = next
	r.logger.Trace().
		Str("action", a.Name()).
		Str("phase", string(next.Phase())).
		Int("request_id", next.RequestID).
		Msg("State transition")

	r.syncEffectsLocked()
	r.pending = append(r.pending, notification{state: next, callback: callback})
	r.drainLocked()

	return next, true
}

// drainLocked delivers queued notifications in order. Only one goroutine
// drains at a time; notifications queued from within a subscriber or
// callback are delivered by the active drainer after the current one. It
// must be called with mu held and releases it.
func (r *Request) drainLocked() {
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true

	for len(r.pending) > 0 && !r.closed {
		n := r.pending[0]
		r.pending = r.pending[1:]
		subs := make([]subscriber, len(r.subscribers))
		copy(subs, r.subscribers)
		r.mu.Unlock()

		for _, sub := range subs {
			sub.fn(n.state)
		}

		r.mu.Lock()
		if n.callback != nil && !r.closed {
			r.mu.Unlock()
			n.callback()
			r.mu.Lock()
		}
	}

	r.draining = false
	r.mu.Unlock()
}

func (r *Request) syncEffectsLocked() {
	var fetchConfig *descriptor.Descriptor
	if r.state.IsFetching {
		fetchConfig = r.state.Config
	}
	r.fetch.sync(fetchDeps{config: fetchConfig, requestID: r.state.RequestID}, r.startFetchLocked)

	r.poll.sync(pollDeps{
		active:   r.state.Config != nil,
		fetching: r.state.IsFetching,
		interval: r.pollInterval,
	}, r.startPollLocked)
}

// startFetchLocked issues the executor call for deps and returns the cleanup
// releasing it.
func (r *Request) startFetchLocked(deps fetchDeps) func() {
	if deps.config == nil {
		return nil
	}

	r.fetchSeq++
	tag := fetchTag{seq: r.fetchSeq, config: deps.config, requestID: deps.requestID}

	key, _ := cache.KeyFor(r.policy, deps.config)
	h := r.exec.Execute(deps.config, key)

	r.logger.Debug().
		Str("url", deps.config.URL).
		Int("request_id", deps.requestID).
		Str("call_id", h.Call().ID()).
		Bool("owner", h.Owner()).
		Msg("Fetch started")

	stop := make(chan struct{})
	go r.await(h, tag, stop)

	return func() {
		close(stop)
		h.Cancel()
	}
}

func (r *Request) await(h *executor.Handle, tag fetchTag, stop <-chan struct{}) {
	select {
	case <-h.Done():
	case <-stop:
		return
	}

	payload, err := h.Result()
	r.settle(tag, payload, err)
}

// settle dispatches the outcome of the call tagged tag if it still belongs to
// the live state.
func (r *Request) settle(tag fetchTag, payload []byte, err error) {
	r.mu.Lock()

	if executor.IsCanceled(err) {
		r.mu.Unlock()
		return
	}

	live := r.state
	if r.closed || tag.seq != r.fetchSeq || !live.IsFetching ||
		tag.config != live.Config || tag.requestID != live.RequestID {
		r.mu.Unlock()
		staleOutcomesTotal.Inc()
		r.logger.Debug().
			Int("request_id", tag.requestID).
			Int("live_request_id", live.RequestID).
			Msg("Discarding stale outcome")
		return
	}

	if err != nil {
		var callback func()
		if fn := r.onError; fn != nil {
			callback = func() { fn(err) }
		}
		r.applyLocked(state.Error{Err: err}, callback)
		return
	}

	var callback func()
	if fn := r.onSuccess; fn != nil {
		callback = func() { fn(payload) }
	}
	r.applyLocked(state.Fetched{Payload: payload}, callback)
}

// startPollLocked arms the poll timer for deps and returns the cleanup
// disarming it.
func (r *Request) startPollLocked(deps pollDeps) func() {
	if !deps.active || deps.fetching || deps.interval <= 0 {
		return nil
	}

	r.pollSeq++
	seq := r.pollSeq
	timer := time.AfterFunc(deps.interval, func() {
		r.firePoll(seq)
	})

	return func() {
		timer.Stop()
		r.pollSeq++
	}
}

func (r *Request) firePoll(seq uint64) {
	r.mu.Lock()
	if r.closed || seq != r.pollSeq || r.state.Config == nil {
		r.mu.Unlock()
		return
	}
	r.applyLocked(state.Poll{}, nil)
}
