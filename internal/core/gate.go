package core

// gate.go implements the dispatcher's idle/busy gate.
//
// The gate is a semaphore sized by DISPATCH_MAX_CONCURRENT (1 by default, the
// single busy flag of the dashboard). Actions only ever TryAcquire: when no
// slot is free the action is rejected with ErrBusy instead of waiting.
//
// WaitForDrain blocks until all in-flight actions complete; it is used during
// graceful shutdown.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentActions keeps the dashboard's one-action-at-a-time rule.
const DefaultMaxConcurrentActions = 1

// ActionGate controls how many dispatcher actions may run at once.
type ActionGate struct {
	semaphore chan struct{}

	mu     sync.RWMutex
	active int
}

// NewActionGate creates a gate with maxConcurrent slots.
func NewActionGate(maxConcurrent int) *ActionGate {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentActions
	}
	return &ActionGate{semaphore: make(chan struct{}, maxConcurrent)}
}

// TryAcquire takes a slot without blocking. It returns false when busy.
// A successful TryAcquire must be paired with exactly one Release.
func (g *ActionGate) TryAcquire() bool {
	select {
	case g.semaphore <- struct{}{}:
		g.mu.Lock()
		g.active++
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by TryAcquire.
func (g *ActionGate) Release() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()

	<-g.semaphore
}

// Busy reports whether no slot is currently free.
func (g *ActionGate) Busy() bool {
	return g.Available() == 0
}

// ActiveCount returns the number of running actions.
func (g *ActionGate) ActiveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// MaxConcurrent returns the gate capacity.
func (g *ActionGate) MaxConcurrent() int {
	return cap(g.semaphore)
}

// Available returns the number of free slots.
func (g *ActionGate) Available() int {
	return cap(g.semaphore) - len(g.semaphore)
}

// WaitForDrain blocks until no action is running or ctx is done.
func (g *ActionGate) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GateStatus is a snapshot of the gate for monitoring.
type GateStatus struct {
	State         string `json:"state"`
	Active        int    `json:"active"`
	Available     int    `json:"available"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// Status returns the current gate state.
func (g *ActionGate) Status() GateStatus {
	g.mu.RLock()
	active := g.active
	g.mu.RUnlock()

	available := cap(g.semaphore) - len(g.semaphore)
	state := StateIdle.String()
	if available == 0 {
		state = StateBusy.String()
	}
	return GateStatus{
		State:         state,
		Active:        active,
		Available:     available,
		MaxConcurrent: cap(g.semaphore),
	}
}
