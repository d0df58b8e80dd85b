package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPauseGate(t *testing.T) {
	g := NewPauseGate()
	if g.IsPaused() {
		t.Fatal("New gate should be open")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on open gate: %v", err)
	}
	if g.Resume() {
		t.Error("Resume on open gate should report false")
	}
	if !g.Pause() || g.Pause() {
		t.Error("Pause should succeed once")
	}

	released := make(chan error, 1)
	go func() { released <- g.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("Wait returned while paused")
	case <-time.After(30 * time.Millisecond):
	}

	g.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait after resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestPauseGateCancel(t *testing.T) {
	g := NewPauseGate()
	g.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	released := make(chan error, 1)
	go func() { released <- g.Wait(ctx) }()
	cancel()

	select {
	case err := <-released:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait ignored cancellation")
	}
}
