package sequence

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

type recordingDevice struct {
	mu        sync.Mutex
	updates   []controller.State
	updateErr error
}

func (d *recordingDevice) Connect() error    { return nil }
func (d *recordingDevice) Disconnect() error { return nil }

func (d *recordingDevice) Update(s controller.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, s)
	return d.updateErr
}

func (d *recordingDevice) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateErr = err
}

func (d *recordingDevice) history() []controller.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]controller.State(nil), d.updates...)
}

func quietLogger() *logging.Logger {
	l := logging.NewLogger("Sequencer")
	l.SetOutputs(io.Discard)
	return l
}

func newTestExecutor(t *testing.T) (*Executor, *controller.Controller, *recordingDevice) {
	t.Helper()
	dev := &recordingDevice{}
	ctrl := controller.New(dev)
	if err := ctrl.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	return NewExecutor(ctrl, quietLogger()), ctrl, dev
}

func TestExecuteSteps(t *testing.T) {
	e, ctrl, dev := newTestExecutor(t)

	var completed int32
	e.OnComplete(func(*Sequence) { atomic.AddInt32(&completed, 1) })

	seq := New("test",
		&Button{Timing: Timing{Duration: 0.01, Repeat: 2}, Value: "A"},
		&StickHold{Value: "left"},
		&TriggerHold{Value: "left"},
		StickForward(0.01),
	)

	start := time.Now()
	if !e.Execute(context.Background(), seq, nil) {
		t.Fatal("Expected sequence to succeed")
	}
	// two presses: hold + settle + inter-step gap each
	if min := 2 * (10*time.Millisecond + controller.ButtonSettle + interStepGap); time.Since(start) < min {
		t.Errorf("Sequence finished in %v, expected at least %v", time.Since(start), min)
	}

	if atomic.LoadInt32(&completed) != 1 {
		t.Error("OnComplete should fire once")
	}
	if !ctrl.State().Neutral() {
		t.Errorf("Controller should be neutral after the sequence, got %v", ctrl.State())
	}
	if ctrl.Holder() != "" {
		t.Errorf("Drive should be released, held by %q", ctrl.Holder())
	}

	var presses int
	var wasPressed, sawHold, sawForward bool
	for _, s := range dev.history() {
		pressed := s.Buttons&controller.ButtonA != 0
		if pressed && !wasPressed {
			presses++
		}
		wasPressed = pressed
		if s.LeftStick == controller.StickLeft && s.LeftTrigger == controller.TriggerMax {
			sawHold = true
		}
		// pulse replaces the held position; the trigger stays engaged
		if s.LeftStick == controller.StickUp && s.LeftTrigger == controller.TriggerMax {
			sawForward = true
		}
	}
	if presses != 2 {
		t.Errorf("Expected 2 presses of A, got %d", presses)
	}
	if !sawHold {
		t.Error("Stick and trigger holds should stay engaged together")
	}
	if !sawForward {
		t.Error("Expected forward pulse with trigger still held")
	}
}

func TestExecuteAbortLeavesNeutral(t *testing.T) {
	tests := []struct {
		name    string
		abortAt int32
	}{
		{"before first step", 0},
		{"after hold", 2},
		{"mid repeat", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ctrl, _ := newTestExecutor(t)

			seq := New("abort",
				&TriggerHold{Value: "right"},
				&StickHold{Value: "forward"},
				&Button{Timing: Timing{Duration: 0.01, Repeat: 5}, Value: "X"},
			)

			var checks int32
			shouldAbort := func() bool {
				return atomic.AddInt32(&checks, 1) > tt.abortAt
			}

			err := e.Run(context.Background(), seq, shouldAbort)
			if !errors.Is(err, ErrAborted) {
				t.Fatalf("Expected ErrAborted, got %v", err)
			}
			if !ctrl.State().Neutral() {
				t.Errorf("Controller should be neutral after abort, got %v", ctrl.State())
			}
		})
	}
}

func TestExecuteCancelDuringWait(t *testing.T) {
	e, ctrl, _ := newTestExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	seq := New("long", &StickHold{Value: "right"}, wait(30))

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if e.Execute(ctx, seq, nil) {
		t.Fatal("Cancelled sequence should fail")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Cancel took %v", time.Since(start))
	}
	if !ctrl.State().Neutral() {
		t.Errorf("Controller should be neutral, got %v", ctrl.State())
	}
}

func TestExecuteRejectsReentry(t *testing.T) {
	e, _, _ := newTestExecutor(t)

	release := make(chan struct{})
	started := make(chan struct{})
	seq := New("blocking", wait(5))

	done := make(chan bool)
	go func() {
		done <- e.Execute(context.Background(), seq, func() bool {
			select {
			case <-started:
			default:
				close(started)
			}
			<-release
			return true
		})
	}()

	<-started
	if !e.IsRunning() {
		t.Error("Executor should report running")
	}
	if err := e.Run(context.Background(), New("second"), nil); !errors.Is(err, ErrSequenceRunning) {
		t.Errorf("Expected ErrSequenceRunning, got %v", err)
	}

	close(release)
	if <-done {
		t.Error("Aborted sequence should report failure")
	}
	if e.IsRunning() {
		t.Error("Executor should be idle")
	}
}

func TestExecuteDeviceError(t *testing.T) {
	e, ctrl, dev := newTestExecutor(t)
	dev.setErr(errors.New("bus gone"))

	var completed bool
	e.OnComplete(func(*Sequence) { completed = true })

	if e.Execute(context.Background(), New("fail", &TriggerHold{Value: "left"}), nil) {
		t.Error("Device error should fail the sequence")
	}
	if completed {
		t.Error("OnComplete must not fire on failure")
	}
	if !ctrl.State().Neutral() {
		t.Errorf("State should be reset even when the device fails, got %v", ctrl.State())
	}
}

func TestExecuteBlocksPollerDrive(t *testing.T) {
	e, ctrl, _ := newTestExecutor(t)

	var heldBy string
	seq := New("probe", &Wait{Timing: Timing{Duration: 0.01}})
	e.OnComplete(func(*Sequence) {})

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Execute(context.Background(), seq, func() bool {
			heldBy = ctrl.Holder()
			if _, err := ctrl.TryAcquire("poller"); !errors.Is(err, controller.ErrDriveHeld) {
				t.Errorf("Poller should be locked out, got %v", err)
			}
			return false
		})
	}()
	<-done

	if heldBy != DriveOwner {
		t.Errorf("Drive holder = %q, want %q", heldBy, DriveOwner)
	}
}

func TestUnknownButtonSkipped(t *testing.T) {
	e, _, dev := newTestExecutor(t)

	seq := New("typo",
		&Button{Timing: Timing{Duration: 0.01}, Value: "TURBO"},
		&Button{Timing: Timing{Duration: 0.01}, Value: "B"},
	)
	if !e.Execute(context.Background(), seq, nil) {
		t.Fatal("Expected sequence with unknown button to succeed")
	}

	var pressedB bool
	for _, s := range dev.history() {
		switch s.Buttons {
		case 0:
		case controller.ButtonB:
			pressedB = true
		default:
			t.Errorf("Unexpected buttons pressed: %v", s.Buttons)
		}
	}
	if !pressedB {
		t.Error("Expected B to be pressed after the unknown button")
	}
}
