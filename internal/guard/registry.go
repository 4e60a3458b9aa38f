package guard

import (
	"context"
	"sync"
)

// Registry keeps one Evaluator per admin session so that the
// stale-response generation and the pending sign-out timer survive
// across requests from the same session. Entries are dropped when the
// session signs out or the registry is closed.
type Registry struct {
	mu         sync.Mutex
	evaluators map[string]*Evaluator
	build      func(sessionID string) *Evaluator
	closed     bool
}

// NewRegistry constructs a Registry. build is invoked once per session
// ID to wire an evaluator with session-scoped collaborators.
func NewRegistry(build func(sessionID string) *Evaluator) *Registry {
	return &Registry{
		evaluators: make(map[string]*Evaluator),
		build:      build,
	}
}

// ForSession returns the evaluator for the session, creating and
// mounting it on first use.
func (r *Registry) ForSession(sessionID, route string) *Evaluator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if ev, ok := r.evaluators[sessionID]; ok {
		ev.SetRoute(route)
		return ev
	}
	ev := r.build(sessionID)
	r.evaluators[sessionID] = ev
	ev.Mount(route)
	return ev
}

// Drop removes the evaluator for a session after an out-of-band
// sign-out notification. The evaluator is closed and its mirror slot
// cleared; closing alone is not enough, because the evaluator's own
// session subscription skips the clear once it observes the closed
// state.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	ev, ok := r.evaluators[sessionID]
	if ok {
		delete(r.evaluators, sessionID)
	}
	r.mu.Unlock()
	if ok {
		ev.Drop(context.Background())
	}
}

// Close shuts down every evaluator.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	evs := make([]*Evaluator, 0, len(r.evaluators))
	for _, ev := range r.evaluators {
		evs = append(evs, ev)
	}
	r.evaluators = make(map[string]*Evaluator)
	r.mu.Unlock()
	for _, ev := range evs {
		ev.Close()
	}
}
