package controller

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeKeys is a settable key state
type fakeKeys struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeKeys(keys ...string) *fakeKeys {
	k := &fakeKeys{held: make(map[string]bool)}
	for _, key := range keys {
		k.held[key] = true
	}
	return k
}

func (k *fakeKeys) IsKeyPressed(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held[key]
}

func TestRapidStepSchedule(t *testing.T) {
	duration := 50 * time.Millisecond
	gap := 10 * time.Millisecond
	base := time.Unix(1000, 0)

	var r rapidStep
	tests := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},                      // first step starts immediately
		{20 * time.Millisecond, true},  // inside step
		{49 * time.Millisecond, true},  // end of step
		{50 * time.Millisecond, false}, // gap
		{59 * time.Millisecond, false}, // gap
		{60 * time.Millisecond, true},  // next step
		{100 * time.Millisecond, true}, // 40ms into second step
		{115 * time.Millisecond, false},
		{120 * time.Millisecond, true},
	}

	for _, tt := range tests {
		if got := r.tick(base.Add(tt.offset), duration, gap); got != tt.want {
			t.Errorf("tick at +%v = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestSampleButtonsAndTriggers(t *testing.T) {
	c := New(&fakeDevice{})
	keys := newFakeKeys("space", "e", "up", MouseLeft)
	p := NewPoller(c, keys, DefaultBindings(), DefaultPollerConfig())

	s := p.sample(time.Unix(1000, 0))
	want := ButtonA | ButtonLeftShoulder | ButtonDpadUp
	if s.Buttons != want {
		t.Errorf("Buttons = %v, want %v", s.Buttons, want)
	}
	if s.RightTrigger != TriggerMax || s.LeftTrigger != 0 {
		t.Errorf("Left mouse should drive the right trigger, got lt=%d rt=%d", s.LeftTrigger, s.RightTrigger)
	}

	keys = newFakeKeys(MouseRight)
	p = NewPoller(c, keys, DefaultBindings(), DefaultPollerConfig())
	if s := p.sample(time.Unix(1000, 0)); s.LeftTrigger != TriggerMax {
		t.Errorf("Right mouse should drive the left trigger when swapped, got %v", s)
	}

	bindings := DefaultBindings()
	bindings.MouseLeftIsRightTrigger = false
	p = NewPoller(c, newFakeKeys(MouseLeft), bindings, DefaultPollerConfig())
	if s := p.sample(time.Unix(1000, 0)); s.LeftTrigger != TriggerMax || s.RightTrigger != 0 {
		t.Errorf("Left mouse should drive the left trigger when not swapped, got %v", s)
	}
}

func TestSampleNeverDeflectsOppositeDirections(t *testing.T) {
	c := New(&fakeDevice{})
	keys := newFakeKeys("w", "s", "a", "d")
	p := NewPoller(c, keys, DefaultBindings(), DefaultPollerConfig())

	base := time.Unix(1000, 0)
	var deflected int
	for ms := 0; ms < 500; ms += 5 {
		s := p.sample(base.Add(time.Duration(ms) * time.Millisecond))
		if s.LeftStick.Y == AxisMax || s.LeftStick.X == AxisMin {
			t.Fatalf("Up/left must lose to down/right when both held, got %v at %dms", s.LeftStick, ms)
		}
		if s.LeftStick.Y != 0 && s.LeftStick.Y != AxisMin {
			t.Fatalf("Unexpected Y value %d", s.LeftStick.Y)
		}
		if !s.LeftStick.Centered() {
			deflected++
		}
		if !s.RightStick.Centered() {
			t.Fatalf("Unbound right stick moved: %v", s.RightStick)
		}
	}
	if deflected == 0 {
		t.Error("Held keys should produce deflection")
	}
}

func TestSampleRapidStepsPulse(t *testing.T) {
	c := New(&fakeDevice{})
	p := NewPoller(c, newFakeKeys("w"), DefaultBindings(), DefaultPollerConfig())

	base := time.Unix(1000, 0)
	var on, off int
	for ms := 0; ms < 600; ms += 5 {
		s := p.sample(base.Add(time.Duration(ms) * time.Millisecond))
		switch s.LeftStick {
		case StickUp:
			on++
		case Stick{}:
			off++
		default:
			t.Fatalf("Unexpected stick %v", s.LeftStick)
		}
	}
	// 60ms period: 10 ticks on, 2 ticks off
	if on != 100 || off != 20 {
		t.Errorf("Expected 100 on / 20 off ticks, got %d / %d", on, off)
	}
}

func TestTickSkipsWhileDriveHeld(t *testing.T) {
	c, dev := connected(t)
	p := NewPoller(c, newFakeKeys("space"), DefaultBindings(), DefaultPollerConfig())

	d, _ := c.Acquire(context.Background(), "sequencer")
	before := len(dev.history())
	p.tick(time.Now())
	if len(dev.history()) != before {
		t.Error("Poller wrote state while another producer held the drive")
	}
	d.Release()

	p.tick(time.Now())
	if c.State().Buttons != ButtonA {
		t.Errorf("Poller should drive once free, got %v", c.State())
	}
}

func TestPollerStartStop(t *testing.T) {
	c, dev := connected(t)
	p := NewPoller(c, newFakeKeys("w"), DefaultBindings(), DefaultPollerConfig())

	p.Stop() // no-op before start
	p.Start(context.Background())
	p.Start(context.Background())
	if !p.IsRunning() {
		t.Fatal("Poller should be running")
	}

	time.Sleep(40 * time.Millisecond)
	p.Stop()
	p.Stop()

	if p.IsRunning() {
		t.Error("Poller should be stopped")
	}

	var moved bool
	for _, s := range dev.history() {
		if s.LeftStick == StickUp {
			moved = true
		}
	}
	if !moved {
		t.Error("Expected forward deflection while w was held")
	}
	if !c.State().Neutral() {
		t.Errorf("Stopping the poller should leave the pad neutral, got %v", c.State())
	}
}
