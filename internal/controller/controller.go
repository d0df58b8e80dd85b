package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/timing"
)

var (
	// ErrDriveHeld is returned by TryAcquire while another producer drives the pad
	ErrDriveHeld = errors.New("controller drive already held")
	// ErrDriveReleased is returned when a released Drive is used
	ErrDriveReleased = errors.New("controller drive released")
)

// ButtonSettle is the pause after releasing a pressed button
const ButtonSettle = 50 * time.Millisecond

// Controller owns the single live gamepad state and the device it is applied to.
// Writes go through a Drive; at most one Drive exists at a time.
type Controller struct {
	device Device

	mu        sync.Mutex
	state     State
	connected bool
	holder    string

	drive chan struct{}

	onChange func(connected bool)
}

// New creates a controller over device
func New(device Device) *Controller {
	return &Controller{
		device: device,
		drive:  make(chan struct{}, 1),
	}
}

// OnConnectionChange registers a callback fired after Connect and Disconnect
func (c *Controller) OnConnectionChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Connect plugs in the virtual pad and pushes a neutral state
func (c *Controller) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	if err := c.device.Connect(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to connect controller: %w", err)
	}

	c.state = State{}
	if err := c.device.Update(c.state); err != nil {
		c.device.Disconnect()
		c.mu.Unlock()
		return fmt.Errorf("failed to apply neutral state: %w", err)
	}
	c.connected = true
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(true)
	}
	return nil
}

// Disconnect neutralizes and unplugs the pad. Disconnecting twice is a no-op.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.state = State{}
		c.mu.Unlock()
		return nil
	}

	c.state = State{}
	var errs []error
	if err := c.device.Update(c.state); err != nil {
		errs = append(errs, fmt.Errorf("failed to reset controller before unplugging: %w", err))
	}
	if err := c.device.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("failed to disconnect controller: %w", err))
	}
	c.connected = false
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(false)
	}
	return errors.Join(errs...)
}

// IsConnected reports whether the pad is plugged in
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Holder names the current Drive owner, or "" when free
func (c *Controller) Holder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder
}

// Acquire blocks until drive rights are free or ctx is done
func (c *Controller) Acquire(ctx context.Context, owner string) (*Drive, error) {
	select {
	case c.drive <- struct{}{}:
		return c.newDrive(owner), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire takes drive rights only if nobody holds them
func (c *Controller) TryAcquire(owner string) (*Drive, error) {
	select {
	case c.drive <- struct{}{}:
		return c.newDrive(owner), nil
	default:
		return nil, ErrDriveHeld
	}
}

func (c *Controller) newDrive(owner string) *Drive {
	c.mu.Lock()
	c.holder = owner
	c.mu.Unlock()
	return &Drive{c: c, owner: owner}
}

// apply is the single read-modify-apply boundary
func (c *Controller) apply(mutate func(*State)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mutate(&c.state)
	if !c.connected {
		return ErrNotConnected
	}
	return c.device.Update(c.state)
}

// Drive is the capability to write controller state
type Drive struct {
	c        *Controller
	owner    string
	released atomic.Bool
}

// Owner returns the name the drive was acquired with
func (d *Drive) Owner() string {
	return d.owner
}

// Release gives drive rights back. Releasing twice is a no-op.
func (d *Drive) Release() {
	if !d.released.CompareAndSwap(false, true) {
		return
	}
	d.c.mu.Lock()
	d.c.holder = ""
	d.c.mu.Unlock()
	<-d.c.drive
}

func (d *Drive) apply(mutate func(*State)) error {
	if d.released.Load() {
		return ErrDriveReleased
	}
	return d.c.apply(mutate)
}

// Set replaces the whole state
func (d *Drive) Set(s State) error {
	return d.apply(func(st *State) { *st = s })
}

// SetButton sets or clears button bits
func (d *Drive) SetButton(b Button, pressed bool) error {
	return d.apply(func(st *State) {
		if pressed {
			st.Buttons |= b
		} else {
			st.Buttons &^= b
		}
	})
}

// PressButton holds b for hold, releases it and settles
func (d *Drive) PressButton(ctx context.Context, b Button, hold time.Duration) error {
	if err := d.SetButton(b, true); err != nil {
		return err
	}
	sleepErr := timing.Sleep(ctx, hold)
	if err := d.SetButton(b, false); err != nil {
		return err
	}
	if sleepErr != nil {
		return sleepErr
	}
	return timing.Sleep(ctx, ButtonSettle)
}

// SetStick moves one stick, clamping to the axis range
func (d *Drive) SetStick(side Side, x, y int) error {
	s := Stick{X: ClampAxis(x), Y: ClampAxis(y)}
	return d.apply(func(st *State) {
		if side == Left {
			st.LeftStick = s
		} else {
			st.RightStick = s
		}
	})
}

// SetTrigger sets one trigger, clamping to 0..255
func (d *Drive) SetTrigger(side Side, value int) error {
	v := ClampTrigger(value)
	return d.apply(func(st *State) {
		if side == Left {
			st.LeftTrigger = v
		} else {
			st.RightTrigger = v
		}
	})
}

// Reset returns every button, stick and trigger to neutral
func (d *Drive) Reset() error {
	return d.apply(func(st *State) { *st = State{} })
}
