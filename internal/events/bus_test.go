package events

import (
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for events")
}

func TestSubscribeAndSubscribeAll(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var casts, all collector
	bus.Subscribe(EventTypeCardCast, casts.handle)
	allID := bus.SubscribeAll(all.handle)

	bus.Publish(NewCardCastEvent("tempest", "spell", 0.9, 1, 2))
	bus.Publish(NewRefillStartedEvent("zero"))

	waitFor(t, func() bool { return casts.count() == 1 && all.count() == 2 })

	bus.Unsubscribe(allID)
	bus.Publish(NewRefillStartedEvent("idle"))
	bus.Publish(NewCardCastEvent("tempest", "spell", 0.9, 1, 2))
	waitFor(t, func() bool { return casts.count() == 2 })

	time.Sleep(20 * time.Millisecond)
	if all.count() != 2 {
		t.Errorf("Unsubscribed handler received %d events", all.count())
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Stop()

	var mu sync.Mutex
	var logged []string
	bus.SetLogf(func(format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, format)
	})

	var ok collector
	bus.Subscribe(EventTypeError, func(Event) { panic("handler bug") })
	bus.Subscribe(EventTypeError, ok.handle)

	bus.Publish(NewErrorEvent("engine", "loop failed", nil))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ok.count() == 1 && len(logged) == 1
	})
}

func TestStopDrainsAndDrops(t *testing.T) {
	bus := NewEventBus(8)

	var c collector
	bus.SubscribeAll(c.handle)
	bus.SetLogf(nil)

	for i := 0; i < 5; i++ {
		bus.Publish(NewMovementToggledEvent(i%2 == 0))
	}
	bus.Stop()
	bus.Stop()

	// Publish after stop must not block
	done := make(chan struct{})
	go func() {
		bus.Publish(NewMovementToggledEvent(true))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}

	waitFor(t, func() bool { return c.count() == 5 })
}

func TestEventHelpers(t *testing.T) {
	e := NewRefillCompletedEvent("idle", true, 1500*time.Millisecond)
	if e.Type != EventTypeRefillCompleted || e.Data["duration_ms"] != int64(1500) {
		t.Errorf("Unexpected refill event %+v", e)
	}

	if NewControllerEvent(true).Type != EventTypeControllerConnected {
		t.Error("Connected event has wrong type")
	}
	if NewControllerEvent(false).Type != EventTypeControllerDisconnected {
		t.Error("Disconnected event has wrong type")
	}
	if _, ok := NewErrorEvent("x", "msg", nil).Data["error"]; ok {
		t.Error("Nil error should not set error field")
	}
}
