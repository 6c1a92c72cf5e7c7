package model

import "sync"

// RetryCounters tracks a monotonic retry count per step-id. A step-id's
// counter is discarded the instant it reaches a terminal verdict
// (success, skip, or abort) — see spec.md §3 invariants.
type RetryCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRetryCounters returns an empty counter set.
func NewRetryCounters() *RetryCounters {
	return &RetryCounters{counts: make(map[string]int)}
}

// Get returns the current retry count for a step-id (0 if unseen).
func (r *RetryCounters) Get(stepID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[stepID]
}

// Increment bumps the retry count for a step-id and returns the new value.
func (r *RetryCounters) Increment(stepID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[stepID]++
	return r.counts[stepID]
}

// Forget discards the retry count for a step-id on terminal verdict.
func (r *RetryCounters) Forget(stepID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, stepID)
}
