package request

// effect runs a side effect whenever its dependencies change and runs the
// previous cleanup first. It is not safe for concurrent use; the owning
// Request serializes access.
type effect[D comparable] struct {
	deps    D
	ran     bool
	cleanup func()
}

// sync re-runs fn when deps differ from the last run.
func (e *effect[D]) sync(deps D, fn func(D) func()) {
	if e.ran && e.deps == deps {
		return
	}
	e.stop()
	e.deps = deps
	e.ran = true
	e.cleanup = fn(deps)
}

// stop runs the pending cleanup, if any.
func (e *effect[D]) stop() {
	if e.cleanup == nil {
		return
	}
	cleanup := e.cleanup
	e.cleanup = nil
	cleanup()
}
