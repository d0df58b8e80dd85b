// Package engine runs the detect-decide-act loop: it samples cards and the
// resource gauge, picks an action by the mode's priority policy and drives
// input through the injected devices.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/events"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
	"github.com/AbyssalKaz/Console101Farm/internal/sequence"
)

var (
	// ErrAlreadyRunning is returned by Start while the loop is active
	ErrAlreadyRunning = errors.New("engine already running")
	// ErrNotRunning is returned by Pause and Resume when the loop is stopped
	ErrNotRunning = errors.New("engine not running")
	// ErrStopping is returned by Start while a loop that outlived its stop
	// timeout has not exited yet
	ErrStopping = errors.New("engine still stopping")
)

// Deps are the engine's collaborators. Cards and Input are required;
// a nil optional dependency disables the feature it serves.
type Deps struct {
	Cards     CardDetector
	Prompts   PromptLocator
	Resources ResourceChecker
	Input     Injector
	Gamepad   Gamepad
	Sequencer SequenceRunner
	Refill    *sequence.Sequence

	Logger *logging.Logger
	Bus    events.EventBus
}

// Hooks are caller-supplied observers. Both run on the engine's goroutines.
type Hooks struct {
	OnLog         func(line string)
	OnStateChange func(from, to BotState)
}

// Stats is a snapshot of the engine's counters
type Stats struct {
	State           string  `json:"state"`
	Mode            string  `json:"mode"`
	MovementEnabled bool    `json:"movement_enabled"`
	Cycles          int64   `json:"cycles"`
	Casts           int64   `json:"casts"`
	Enchants        int64   `json:"enchants"`
	Refills         int64   `json:"refills"`
	IdleSeconds     float64 `json:"idle_seconds"`
}

// Engine is the decision loop
type Engine struct {
	deps   Deps
	logger *logging.Logger

	mu       sync.Mutex
	cfg      Config
	state    BotState
	movement bool
	hooks    Hooks
	cancel   context.CancelFunc
	// done belongs to the last loop started and is kept until that loop exits
	done     chan struct{}

	gate   *PauseGate
	pauses pauses

	// slot is the keyboard cursor; only the loop goroutine touches it
	slot int

	lastAction atomic.Int64
	cycles     atomic.Int64
	casts      atomic.Int64
	enchants   atomic.Int64
	refills    atomic.Int64

	now func() time.Time
}

// New creates a stopped engine
func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Cards == nil {
		return nil, fmt.Errorf("engine requires a card detector")
	}
	if deps.Input == nil {
		return nil, fmt.Errorf("engine requires an input injector")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger("Engine")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = PromptTemplate
	}

	e := &Engine{
		deps:     deps,
		logger:   deps.Logger,
		cfg:      cfg,
		state:    StateStopped,
		movement: cfg.Movement.Enabled,
		gate:     NewPauseGate(),
		pauses:   defaultPauses,
		now:      time.Now,
	}
	e.lastAction.Store(e.now().UnixNano())
	return e, nil
}

// SetHooks replaces the observers
func (e *Engine) SetHooks(h Hooks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = h
}

// Start launches the loop in the given mode
func (e *Engine) Start(ctx context.Context, mode Mode) error {
	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	if e.done != nil {
		select {
		case <-e.done:
			e.done = nil
		default:
			e.mu.Unlock()
			return ErrStopping
		}
	}
	if e.cancel != nil {
		e.cancel()
	}

	e.cfg.Mode = mode
	e.slot = 0
	e.cycles.Store(0)
	e.casts.Store(0)
	e.enchants.Store(0)
	e.gate.Resume()

	from := e.state
	e.state = StateRunning

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	e.notifyState(from, StateRunning)
	e.info(fmt.Sprintf("Starting in %s mode", mode), nil)
	e.publish(events.NewEngineStartedEvent(mode.String()))

	go e.run(runCtx, done)
	return nil
}

// Stop cancels the loop and waits up to the stop timeout for it to exit.
// On timeout the state is forced to Stopped, but Start is refused until the
// old loop has actually returned. Calling Stop when stopped is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	timeout := e.cfg.Timing.StopTimeout
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	e.info("Stopping", nil)
	cancel()

	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		e.logger.Warn("Engine loop did not exit within stop timeout")
		e.setState(StateStopped)
	}
}

// Pause suspends the loop at its next suspend point
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state != StateRunning {
		from := e.state
		e.mu.Unlock()
		if from == StateStopped {
			return ErrNotRunning
		}
		return &TransitionError{From: from, To: StatePaused}
	}
	e.gate.Pause()
	e.state = StatePaused
	e.mu.Unlock()

	e.notifyState(StateRunning, StatePaused)
	e.info("Paused", nil)
	return nil
}

// Resume continues a paused loop
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.state != StatePaused {
		from := e.state
		e.mu.Unlock()
		if from == StateStopped {
			return ErrNotRunning
		}
		return &TransitionError{From: from, To: StateRunning}
	}
	e.gate.Resume()
	e.state = StateRunning
	e.mu.Unlock()

	e.notifyState(StatePaused, StateRunning)
	e.info("Resumed", nil)
	return nil
}

// TogglePause pauses a running loop or resumes a paused one
func (e *Engine) TogglePause() error {
	if e.State() == StatePaused {
		return e.Resume()
	}
	return e.Pause()
}

// ToggleMovement flips post-cast movement and returns the new setting
func (e *Engine) ToggleMovement() bool {
	e.mu.Lock()
	e.movement = !e.movement
	enabled := e.movement
	e.mu.Unlock()

	if enabled {
		e.info("Movement enabled", nil)
	} else {
		e.info("Movement disabled", nil)
	}
	e.publish(events.NewMovementToggledEvent(enabled))
	return enabled
}

// SetMode changes the policy used from the next cycle on
func (e *Engine) SetMode(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Mode = mode
}

// State returns the current lifecycle state
func (e *Engine) State() BotState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// MarkAction resets the idle timer
func (e *Engine) MarkAction() {
	e.lastAction.Store(e.now().UnixNano())
}

// IdleTime is the time since the last successful action
func (e *Engine) IdleTime() time.Duration {
	return e.now().Sub(time.Unix(0, e.lastAction.Load()))
}

// Stats returns a snapshot of the counters
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	state, mode, movement := e.state, e.cfg.Mode, e.movement
	e.mu.Unlock()

	return Stats{
		State:           state.String(),
		Mode:            mode.String(),
		MovementEnabled: movement,
		Cycles:          e.cycles.Load(),
		Casts:           e.casts.Load(),
		Enchants:        e.enchants.Load(),
		Refills:         e.refills.Load(),
		IdleSeconds:     e.IdleTime().Seconds(),
	}
}

// RunRefill plays the recovery sequence now, outside the loop's policy
func (e *Engine) RunRefill(ctx context.Context) bool {
	return e.refill(ctx, TriggerManual)
}

func (e *Engine) config() (Config, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg, e.movement
}

func (e *Engine) setState(to BotState) {
	e.mu.Lock()
	from := e.state
	if from == to {
		e.mu.Unlock()
		return
	}
	if !from.CanTransitionTo(to) {
		e.mu.Unlock()
		e.logger.Error("Rejected state change", &TransitionError{From: from, To: to})
		return
	}
	e.state = to
	e.mu.Unlock()

	e.notifyState(from, to)
}

func (e *Engine) notifyState(from, to BotState) {
	e.mu.Lock()
	fn := e.hooks.OnStateChange
	e.mu.Unlock()

	if fn != nil {
		fn(from, to)
	}
	e.publish(events.NewStateChangedEvent(from.String(), to.String()))
}

func (e *Engine) info(msg string, context map[string]interface{}) {
	e.logger.InfoWithContext(msg, context)
	e.hook(msg)
}

func (e *Engine) debug(msg string, context map[string]interface{}) {
	e.logger.DebugWithContext(msg, context)
	e.mu.Lock()
	debug := e.cfg.Debug
	e.mu.Unlock()
	if debug {
		e.hook(msg)
	}
}

func (e *Engine) hook(line string) {
	e.mu.Lock()
	fn := e.hooks.OnLog
	e.mu.Unlock()
	if fn != nil {
		fn(line)
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.deps.Bus != nil {
		e.deps.Bus.Publish(ev)
	}
}
