// Package scheduler owns the thumbnail work queue: it recomputes the
// needs-processing set whenever the visible item list changes, runs a
// bounded pool of logical workers over it, and drives each item through
// the resolution order (durable store, remote generator, local probe) to
// a terminal classification.
//
// Invariants: a content id is never simultaneously pending and in flight,
// and the number of active workers never exceeds the configured ceiling.
package scheduler
