package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

var (
	// ErrSequenceRunning rejects a second concurrent Run
	ErrSequenceRunning = errors.New("sequence already running")
	// ErrAborted is returned when shouldAbort or ctx stops a sequence early
	ErrAborted = errors.New("sequence aborted")
)

// DriveOwner is the holder name the executor acquires the controller with
const DriveOwner = "sequencer"

// interStepGap follows every button step
const interStepGap = 100 * time.Millisecond

// Executor plays sequences on a controller. At most one sequence runs at a time.
type Executor struct {
	ctrl   *controller.Controller
	logger *logging.Logger

	running atomic.Bool

	mu         sync.Mutex
	onComplete func(seq *Sequence)
}

// NewExecutor creates an executor
func NewExecutor(ctrl *controller.Controller, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewLogger("Sequencer")
	}
	return &Executor{ctrl: ctrl, logger: logger}
}

// OnComplete registers a callback fired after a sequence finishes successfully
func (e *Executor) OnComplete(fn func(seq *Sequence)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// IsRunning reports whether a sequence is executing
func (e *Executor) IsRunning() bool {
	return e.running.Load()
}

// Execute runs seq and reports success. Any failure, abort or rejection is false.
func (e *Executor) Execute(ctx context.Context, seq *Sequence, shouldAbort func() bool) bool {
	err := e.Run(ctx, seq, shouldAbort)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSequenceRunning):
		e.logger.Warn("Sequence already running, request ignored")
	case errors.Is(err, ErrAborted):
		e.logger.Info(fmt.Sprintf("Sequence '%s' aborted", seq.Name))
	default:
		e.logger.Error(fmt.Sprintf("Sequence '%s' failed", seq.Name), err)
	}
	return false
}

// Run executes steps strictly in order, checking shouldAbort before every
// repetition. The controller is always left neutral afterwards, whatever
// the outcome.
func (e *Executor) Run(ctx context.Context, seq *Sequence, shouldAbort func() bool) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrSequenceRunning
	}
	defer e.running.Store(false)

	drive, err := e.ctrl.Acquire(ctx, DriveOwner)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	defer func() {
		drive.Reset()
		drive.Release()
	}()

	aborted := func() bool {
		return ctx.Err() != nil || (shouldAbort != nil && shouldAbort())
	}

	total := seq.Len()
	e.logger.InfoWithContext(fmt.Sprintf("Starting sequence '%s'", seq.Name), map[string]interface{}{
		"steps": total,
	})

	for i, step := range seq.Steps {
		e.logger.Debug(fmt.Sprintf("[%d/%d] %s", i+1, total, step.Action()))

		for r := 0; r < step.Times(); r++ {
			if aborted() {
				return ErrAborted
			}

			e.logger.Debug("    " + step.Describe())
			if err := step.run(ctx, drive); err != nil {
				if ctx.Err() != nil {
					return ErrAborted
				}
				return fmt.Errorf("step %d (%s): %w", i+1, step.Action(), err)
			}
		}
	}

	e.logger.Info(fmt.Sprintf("Sequence '%s' complete", seq.Name))

	e.mu.Lock()
	fn := e.onComplete
	e.mu.Unlock()
	if fn != nil {
		fn(seq)
	}
	return nil
}
