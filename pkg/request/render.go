package request

import "github.com/Sternrassler/reqstate/pkg/state"

// Renderers maps request states to output values.
type Renderers[T any] struct {
	// Render handles settled states and refreshes.
	Render func(state.State) T

	// Loading handles the first fetch of a configuration.
	Loading func(state.State) T

	// Error handles failed fetches.
	Error func(state.State) T
}

// Render observes req and dispatches to the matching renderer.
func Render[T any](req *Request, r Renderers[T]) T {
	return RenderState(req.State(), r)
}

// RenderState dispatches s to Loading while the first fetch is pending, to
// Error when the last fetch failed and to Render otherwise. A missing
// renderer yields the zero value.
func RenderState[T any](s state.State, r Renderers[T]) T {
	var fn func(state.State) T
	switch {
	case s.Loading():
		fn = r.Loading
	case s.Err != nil:
		fn = r.Error
	default:
		fn = r.Render
	}

	if fn == nil {
		var zero T
		return zero
	}
	return fn(s)
}
