// Package health implements the dependency probe and the /healthz,
// /readyz HTTP surface.
package health

import "sync"

// ReadinessState is a single-writer, multi-reader snapshot of whether
// safehaven-core's upstream dependencies are reachable.
type ReadinessState struct {
	mu      sync.RWMutex
	ready   bool
	details map[string]bool
}

// NewReadinessState starts not-ready with no dependency details yet.
func NewReadinessState() *ReadinessState {
	return &ReadinessState{details: map[string]bool{}}
}

// Set updates the readiness snapshot. Called only by the probe loop.
func (r *ReadinessState) Set(ready bool, details map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = ready
	r.details = details
}

// Snapshot returns the current readiness and a copy of its details.
func (r *ReadinessState) Snapshot() (bool, map[string]bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	details := make(map[string]bool, len(r.details))
	for k, v := range r.details {
		details[k] = v
	}
	return r.ready, details
}
