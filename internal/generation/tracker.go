package generation

import "sync"

// Tracker is the caller-side "generating" flag per target. The orchestrator
// does not serialize jobs, so whoever triggers regeneration marks the target
// here first and refuses to submit while a job for it is still in flight.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[string]struct{})}
}

// Begin marks the target as generating. It returns false when a job for the
// target is already in flight, in which case nothing was marked.
func (t *Tracker) Begin(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inflight[target]; busy {
		return false
	}
	t.inflight[target] = struct{}{}
	return true
}

// End clears the target's flag. Safe to call for a target that was never
// marked.
func (t *Tracker) End(target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, target)
}

// Generating reports whether a job for the target is in flight.
func (t *Tracker) Generating(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.inflight[target]
	return busy
}
