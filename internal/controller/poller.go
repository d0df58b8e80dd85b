package controller

import (
	"context"
	"sync"
	"time"
)

// KeyState reports whether a logical key is currently held
type KeyState interface {
	IsKeyPressed(key string) bool
}

// PollerConfig holds rapid-step timing
type PollerConfig struct {
	StepDuration time.Duration // full deflection per step
	StepGap      time.Duration // neutral gap between steps
	Interval     time.Duration // poll tick
}

// DefaultPollerConfig returns the tuned rapid-step timing
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		StepDuration: 50 * time.Millisecond,
		StepGap:      10 * time.Millisecond,
		Interval:     5 * time.Millisecond,
	}
}

// rapidStep tracks when one held direction last started a step
type rapidStep struct {
	last time.Time
}

// tick reports whether the direction is deflected at now while its key is held.
// A new step starts every duration+gap; between steps the direction rests.
func (r *rapidStep) tick(now time.Time, duration, gap time.Duration) bool {
	elapsed := now.Sub(r.last)
	if r.last.IsZero() || elapsed >= duration+gap {
		r.last = now
		return true
	}
	return elapsed < duration
}

// Poller translates held keys into gamepad state. Sticks move in rapid steps.
type Poller struct {
	ctrl     *Controller
	keys     KeyState
	bindings Bindings
	config   PollerConfig

	// up, down, left, right per stick
	left  [4]rapidStep
	right [4]rapidStep

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

const (
	dirUp = iota
	dirDown
	dirLeft
	dirRight
)

// NewPoller creates a poller; it does nothing until Start
func NewPoller(ctrl *Controller, keys KeyState, bindings Bindings, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}
	return &Poller{
		ctrl:     ctrl,
		keys:     keys,
		bindings: bindings,
		config:   config,
	}
}

// Start begins polling in the background. Starting twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop ends polling and waits up to a second for the loop to exit
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

// IsRunning reports whether the poll loop is active
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Leave no key-driven input engaged
			if drive, err := p.ctrl.TryAcquire("poller"); err == nil {
				drive.Reset()
				drive.Release()
			}
			return
		case now := <-ticker.C:
			p.tick(now)
		}
	}
}

// tick applies one sample unless another producer holds the drive
func (p *Poller) tick(now time.Time) {
	if !p.ctrl.IsConnected() {
		return
	}

	drive, err := p.ctrl.TryAcquire("poller")
	if err != nil {
		return
	}
	defer drive.Release()

	drive.Set(p.sample(now))
}

// sample computes the state implied by the keys held at now
func (p *Poller) sample(now time.Time) State {
	var s State
	b := p.bindings

	for _, bb := range b.buttons() {
		if p.held(bb.key) {
			s.Buttons |= bb.button
		}
	}

	if p.held(b.LeftTrigger) {
		s.LeftTrigger = TriggerMax
	}
	if p.held(b.RightTrigger) {
		s.RightTrigger = TriggerMax
	}
	if b.MouseLeftTrigger && p.held(MouseLeft) {
		if b.MouseLeftIsRightTrigger {
			s.RightTrigger = TriggerMax
		} else {
			s.LeftTrigger = TriggerMax
		}
	}
	if b.MouseRightTrigger && p.held(MouseRight) {
		if b.MouseLeftIsRightTrigger {
			s.LeftTrigger = TriggerMax
		} else {
			s.RightTrigger = TriggerMax
		}
	}

	s.LeftStick = p.stick(now, &p.left, b.LeftStickUp, b.LeftStickDown, b.LeftStickLeft, b.LeftStickRight)
	s.RightStick = p.stick(now, &p.right, b.RightStickUp, b.RightStickDown, b.RightStickLeft, b.RightStickRight)
	return s
}

// stick resolves one stick. Each axis holds a single value, so opposite
// directions can never both be deflected; down and right win over up and left.
func (p *Poller) stick(now time.Time, steps *[4]rapidStep, up, down, left, right string) Stick {
	var s Stick
	if p.step(now, &steps[dirUp], up) {
		s.Y = AxisMax
	}
	if p.step(now, &steps[dirDown], down) {
		s.Y = AxisMin
	}
	if p.step(now, &steps[dirLeft], left) {
		s.X = AxisMin
	}
	if p.step(now, &steps[dirRight], right) {
		s.X = AxisMax
	}
	return s
}

func (p *Poller) step(now time.Time, r *rapidStep, key string) bool {
	if !p.held(key) {
		return false
	}
	return r.tick(now, p.config.StepDuration, p.config.StepGap)
}

func (p *Poller) held(key string) bool {
	return key != "" && p.keys.IsKeyPressed(key)
}
