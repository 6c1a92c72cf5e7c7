package model

import "sync"

// ActionQueue is a per-run FIFO of pending steps. A step-id appears in
// at most one of {pending, in-flight} at any time; the executor is
// responsible for that invariant, the queue itself just orders work.
type ActionQueue struct {
	mu    sync.Mutex
	items []ActionStep
}

// NewActionQueue returns an empty queue.
func NewActionQueue() *ActionQueue {
	return &ActionQueue{}
}

// PushAll appends steps to the tail, preserving order.
func (q *ActionQueue) PushAll(steps []ActionStep) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, steps...)
}

// Push appends a single step to the tail (used for retries — simple
// retry, no priority re-ordering per spec.md §5).
func (q *ActionQueue) Push(step ActionStep) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, step)
}

// Pop removes and returns the head of the queue, or ok=false if empty.
func (q *ActionQueue) Pop() (ActionStep, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return ActionStep{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Len returns the current number of pending steps.
func (q *ActionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DoneQueue is a write-only (from the core's perspective), append-only
// log of ExecutedStep records for external consumers. Auto-dismiss
// steps interleave with user-planned steps in execution order.
type DoneQueue struct {
	mu    sync.Mutex
	items []ExecutedStep
}

// NewDoneQueue returns an empty done queue.
func NewDoneQueue() *DoneQueue {
	return &DoneQueue{}
}

// Append records a completed step.
func (q *DoneQueue) Append(step ExecutedStep) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, step)
}

// Snapshot returns a copy of everything recorded so far.
func (q *DoneQueue) Snapshot() []ExecutedStep {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ExecutedStep, len(q.items))
	copy(out, q.items)
	return out
}
