package state

import "github.com/Sternrassler/reqstate/pkg/descriptor"

// Action is an event applied to a State by the Reducer.
type Action interface {
	// Name is the action label used in logs and metrics.
	Name() string
}

// ConfigChanged reports the descriptor observed from the caller.
type ConfigChanged struct {
	Config *descriptor.Descriptor
}

// ManuallySetConfig replaces the descriptor on explicit caller request.
type ManuallySetConfig struct {
	Config *descriptor.Descriptor
}

// Poll starts a new fetch generation for the current descriptor.
type Poll struct{}

// Fetched delivers a successful payload.
type Fetched struct {
	Payload []byte
}

// Error delivers a failed fetch.
type Error struct {
	Err error
}

func (ConfigChanged) Name() string     { return "config_changed" }
func (ManuallySetConfig) Name() string { return "manually_set_config" }
func (Poll) Name() string              { return "poll" }
func (Fetched) Name() string           { return "fetched" }
func (Error) Name() string             { return "error" }
