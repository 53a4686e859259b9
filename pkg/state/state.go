// Package state holds the request state record and the reducer that moves it
// between Idle, Fetching, Success and Error.
package state

import (
	"encoding/json"
	"errors"

	"github.com/Sternrassler/reqstate/pkg/descriptor"
)

// ErrNoData is returned by DecodeJSON when no payload is available yet.
var ErrNoData = errors.New("no data")

// Phase names the coarse state of a request.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseSuccess  Phase = "success"
	PhaseError    Phase = "error"
)

// State is the record a consumer observes.
type State struct {
	// Config is the descriptor currently requested; nil means none.
	Config *descriptor.Descriptor

	// PrevConfig is the descriptor last observed from the caller. It tells an
	// external reconfiguration apart from a repeated observation of the same
	// descriptor.
	PrevConfig *descriptor.Descriptor

	// Data is the last successful payload, possibly seeded from the result
	// cache. It stays visible while a refresh is in flight.
	Data []byte

	IsFetching bool
	Err        error

	// RequestID identifies the generation of fetch attempts.
	RequestID int
}

// Loading reports whether the first fetch of the current configuration is
// still pending.
func (s State) Loading() bool {
	return s.IsFetching && s.RequestID == 1
}

// Phase returns the coarse state.
func (s State) Phase() Phase {
	switch {
	case s.IsFetching:
		return PhaseFetching
	case s.Err != nil:
		return PhaseError
	case s.Config == nil:
		return PhaseIdle
	default:
		return PhaseSuccess
	}
}

// DecodeJSON unmarshals Data into v.
func (s State) DecodeJSON(v any) error {
	if s.Data == nil {
		return ErrNoData
	}
	return json.Unmarshal(s.Data, v)
}
