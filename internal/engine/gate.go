package engine

import (
	"context"
	"sync"
)

// PauseGate blocks callers while paused. Waiters sleep on a channel that
// is closed on resume; nothing polls.
type PauseGate struct {
	mu     sync.Mutex
	open   chan struct{}
	paused bool
}

// NewPauseGate returns an open gate
func NewPauseGate() *PauseGate {
	g := &PauseGate{open: make(chan struct{})}
	close(g.open)
	return g
}

// Pause closes the gate. Returns false if already paused.
func (g *PauseGate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}
	g.paused = true
	g.open = make(chan struct{})
	return true
}

// Resume opens the gate and wakes every waiter. Returns false if not paused.
func (g *PauseGate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}
	g.paused = false
	close(g.open)
	return true
}

// IsPaused reports whether the gate is closed
func (g *PauseGate) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait returns immediately when open, otherwise blocks until Resume or ctx is done
func (g *PauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()

	select {
	case <-open:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
