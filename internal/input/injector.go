package input

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

const (
	// clickMoveSettle is the pause between moving the cursor and pressing
	clickMoveSettle = 50 * time.Millisecond
	// clickHold is how long a mouse button stays down on a click
	clickHold = 50 * time.Millisecond
)

// backend sends raw events. robotBackend is the real one.
type backend interface {
	KeyDown(name string) error
	KeyUp(name string) error
	MouseDown(button string) error
	MouseUp(button string) error
	Move(x, y int)
}

type robotBackend struct{}

func (robotBackend) KeyDown(name string) error { return robotgo.KeyToggle(name, "down") }

func (robotBackend) KeyUp(name string) error { return robotgo.KeyToggle(name, "up") }

func (robotBackend) MouseDown(button string) error { return robotgo.Toggle(button) }

func (robotBackend) MouseUp(button string) error { return robotgo.Toggle(button, "up") }

func (robotBackend) Move(x, y int) { robotgo.Move(x, y) }

// Injector synthesises key presses and mouse clicks. Unknown key names are
// a no-op. Calls are serialised so one press finishes before the next starts.
type Injector struct {
	mu     sync.Mutex
	be     backend
	keys   KeyState
	logger *logging.Logger
}

// NewInjector returns an injector backed by robotgo and the platform key state
func NewInjector(logger *logging.Logger) *Injector {
	return newInjector(robotBackend{}, NewKeyState(), logger)
}

func newInjector(be backend, keys KeyState, logger *logging.Logger) *Injector {
	if logger == nil {
		logger = logging.NewLogger("Input")
	}
	return &Injector{be: be, keys: keys, logger: logger}
}

// PressKey taps a key, holding it down for hold
func (in *Injector) PressKey(name string, hold time.Duration) error {
	return in.holdFor(name, hold)
}

// HoldKey holds a key down for hold. It blocks for the whole duration.
func (in *Injector) HoldKey(name string, hold time.Duration) error {
	return in.holdFor(name, hold)
}

func (in *Injector) holdFor(name string, hold time.Duration) error {
	k, ok := lookup(name)
	if !ok {
		in.logger.Debug(fmt.Sprintf("Ignoring unknown key %q", name))
		return nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.down(k); err != nil {
		return fmt.Errorf("failed to press %s: %w", name, err)
	}
	if hold > 0 {
		time.Sleep(hold)
	}
	if err := in.up(k); err != nil {
		return fmt.Errorf("failed to release %s: %w", name, err)
	}
	return nil
}

// KeyDown presses a key without releasing it
func (in *Injector) KeyDown(name string) error {
	k, ok := lookup(name)
	if !ok {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.down(k)
}

// KeyUp releases a key pressed with KeyDown
func (in *Injector) KeyUp(name string) error {
	k, ok := lookup(name)
	if !ok {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.up(k)
}

// Click left-clicks at a screen position
func (in *Injector) Click(x, y int) error {
	return in.ClickButton(MouseLeft, x, y)
}

// ClickButton moves to (x, y) and clicks the given mouse button
func (in *Injector) ClickButton(button string, x, y int) error {
	k, ok := lookup(button)
	if !ok || !k.mouse {
		return fmt.Errorf("unknown mouse button %q", button)
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.be.Move(x, y)
	time.Sleep(clickMoveSettle)

	if err := in.be.MouseDown(k.robot); err != nil {
		return fmt.Errorf("failed to click at (%d, %d): %w", x, y, err)
	}
	time.Sleep(clickHold)
	if err := in.be.MouseUp(k.robot); err != nil {
		return fmt.Errorf("failed to release click at (%d, %d): %w", x, y, err)
	}
	return nil
}

// IsKeyPressed reports the physical state of a key
func (in *Injector) IsKeyPressed(name string) bool {
	return in.keys.IsKeyPressed(name)
}

func (in *Injector) down(k keyInfo) error {
	if k.mouse {
		return in.be.MouseDown(k.robot)
	}
	return in.be.KeyDown(k.robot)
}

func (in *Injector) up(k keyInfo) error {
	if k.mouse {
		return in.be.MouseUp(k.robot)
	}
	return in.be.KeyUp(k.robot)
}
