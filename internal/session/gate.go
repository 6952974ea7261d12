package session

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is the counting semaphore bounding simultaneous comprehensive
// analyses across all sessions. It is the only hard bound on concurrent
// heavy work; comprehensive scoring is assumed expensive and unbounded
// concurrency would exhaust the external scorer or the host.
type Gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewGate creates a gate with the given number of slots.
func NewGate(slots int) *Gate {
	return &Gate{sem: semaphore.NewWeighted(int64(slots))}
}

// Acquire blocks until a slot is free or the context is cancelled. Only the
// calling scheduler iteration blocks; fast-path monitors are unaffected.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// Release frees a slot. It must run even when the analysis fails.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight returns the number of analyses currently holding a slot.
func (g *Gate) InFlight() int64 {
	return g.inFlight.Load()
}
