package state

import (
	"context"

	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
)

// Reducer computes state transitions under a cache policy. It only reads the
// store; writes belong to the executor.
type Reducer struct {
	Policy cache.Policy
	Store  cache.Store
}

// Init builds the state for a (re)configured request. A cache hit seeds Data;
// on a miss the given data is kept so stale results stay visible.
func (r Reducer) Init(config, prevConfig *descriptor.Descriptor, data []byte) State {
	hit := false
	if key, ok := cache.KeyFor(r.Policy, config); ok {
		if payload, found := cache.Lookup(context.Background(), r.Store, key); found {
			data = payload
			hit = true
		}
	}

	return State{
		Config:     config,
		PrevConfig: prevConfig,
		Data:       data,
		IsFetching: config != nil && (!hit || r.Policy == cache.CacheAndNetwork),
		Err:        nil,
		RequestID:  1,
	}
}

// Reduce applies a to s. It reports false, with s returned as is, when the
// action is a no-op.
func (r Reducer) Reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case ConfigChanged:
		if a.Config == s.PrevConfig {
			return s, false
		}
		s = r.Init(a.Config, a.Config, s.Data)

	case ManuallySetConfig:
		if a.Config == s.Config {
			return s, false
		}
		s = r.Init(a.Config, s.PrevConfig, s.Data)

	case Poll:
		s.IsFetching = true
		s.Err = nil
		s.RequestID++

	case Fetched:
		s.Data = a.Payload
		s.IsFetching = false
		s.Err = nil

	case Error:
		s.IsFetching = false
		s.Err = a.Err

	default:
		return s, false
	}

	transitionsTotal.WithLabelValues(a.Name()).Inc()
	return s, true
}
