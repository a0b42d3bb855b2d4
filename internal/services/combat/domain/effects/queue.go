package effects

import (
	"sync"
	"time"
)

// DefaultCadence is the interval between drained effects when none is
// configured.
const DefaultCadence = 120 * time.Millisecond

// Queue paces effect playback: descriptors are pushed as they are projected
// and drained at a fixed cadence so animations do not land all at once.
// Flushed or dropped effects are never retried; the ledger they were derived
// from is unaffected.
type Queue struct {
	mu       sync.Mutex
	cadence  time.Duration
	pending  []Descriptor
	lastEmit time.Time
}

// NewQueue creates a Queue draining at the given cadence. A non-positive
// cadence uses DefaultCadence.
func NewQueue(cadence time.Duration) *Queue {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Queue{cadence: cadence}
}

// Push enqueues descriptors in order.
func (q *Queue) Push(descriptors ...Descriptor) {
	if len(descriptors) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, descriptors...)
}

// Drain returns the descriptors due by now: one per elapsed cadence interval
// since the previous emission, oldest first.
func (q *Queue) Drain(now time.Time) []Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	if q.lastEmit.IsZero() {
		q.lastEmit = now.Add(-q.cadence)
	}

	var due []Descriptor
	for len(q.pending) > 0 && !q.lastEmit.Add(q.cadence).After(now) {
		due = append(due, q.pending[0])
		q.pending = q.pending[1:]
		q.lastEmit = q.lastEmit.Add(q.cadence)
	}
	if len(q.pending) == 0 {
		// Do not bank idle intervals toward a future burst.
		q.lastEmit = time.Time{}
	}
	return due
}

// Flush discards everything pending. Called when the board context changes
// type; the dropped effects are simply never shown.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.lastEmit = time.Time{}
}

// Len reports the number of pending descriptors.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
