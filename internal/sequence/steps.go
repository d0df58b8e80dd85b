package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/timing"
)

// DefaultButtonHold is used when a button step has no duration
const DefaultButtonHold timing.Seconds = 0.1

// Timing is shared by every step
type Timing struct {
	Duration timing.Seconds `yaml:"duration,omitempty"`
	Repeat   int            `yaml:"repeat,omitempty"`
}

// Times returns how often the step runs; repeat <= 0 means once
func (t Timing) Times() int {
	if t.Repeat <= 0 {
		return 1
	}
	return t.Repeat
}

// Step is one entry of a Sequence. The set of kinds is closed;
// each kind carries only the fields it needs.
type Step interface {
	// Action is the YAML action name
	Action() string
	// Validate checks the step's fields
	Validate() error
	// Times is the repeat count
	Times() int
	// Describe is a short log line for one run of the step
	Describe() string

	run(ctx context.Context, d *controller.Drive) error
}

// Button presses a gamepad button for Duration
type Button struct {
	Timing `yaml:",inline"`
	Value  string `yaml:"value"`
}

func (s *Button) Action() string { return "button" }

// Validate accepts any name. An unknown button is kept and does nothing when run.
func (s *Button) Validate() error { return nil }

// Known reports whether Value names a gamepad button
func (s *Button) Known() bool {
	_, ok := controller.ParseButton(s.Value)
	return ok
}

func (s *Button) Describe() string {
	return fmt.Sprintf("Button: %s", strings.ToUpper(s.Value))
}

func (s *Button) hold() timing.Seconds {
	if s.Duration <= 0 {
		return DefaultButtonHold
	}
	return s.Duration
}

func (s *Button) run(ctx context.Context, d *controller.Drive) error {
	b, ok := controller.ParseButton(s.Value)
	if !ok {
		return nil
	}
	if err := d.PressButton(ctx, b, s.hold().Duration()); err != nil {
		return err
	}
	return timing.Sleep(ctx, interStepGap)
}

// Wait pauses for Duration
type Wait struct {
	Timing `yaml:",inline"`
}

func (s *Wait) Action() string   { return "wait" }
func (s *Wait) Validate() error  { return nil }
func (s *Wait) Describe() string { return fmt.Sprintf("Wait: %v", s.Duration) }

func (s *Wait) run(ctx context.Context, _ *controller.Drive) error {
	return timing.Sleep(ctx, s.Duration.Duration())
}

// StickPulse deflects the left stick fully for Duration, then centres it
type StickPulse struct {
	Timing    `yaml:",inline"`
	Direction string `yaml:"-"`
}

// Pulse constructors used by the built-in combo
func StickForward(d timing.Seconds) *StickPulse {
	return &StickPulse{Timing: Timing{Duration: d}, Direction: "forward"}
}

func StickBack(d timing.Seconds) *StickPulse {
	return &StickPulse{Timing: Timing{Duration: d}, Direction: "back"}
}

func StickLeft(d timing.Seconds) *StickPulse {
	return &StickPulse{Timing: Timing{Duration: d}, Direction: "left"}
}

func StickRight(d timing.Seconds) *StickPulse {
	return &StickPulse{Timing: Timing{Duration: d}, Direction: "right"}
}

func (s *StickPulse) Action() string { return "stick_" + s.Direction }

func (s *StickPulse) Validate() error {
	if _, ok := controller.ParseDirection(s.Direction); !ok {
		return fmt.Errorf("invalid stick direction '%s'", s.Direction)
	}
	return nil
}

func (s *StickPulse) Describe() string {
	return fmt.Sprintf("Stick %s: %v", s.Direction, s.Duration)
}

func (s *StickPulse) run(ctx context.Context, d *controller.Drive) error {
	pos, ok := controller.ParseDirection(s.Direction)
	if !ok {
		return nil
	}
	if err := d.SetStick(controller.Left, int(pos.X), int(pos.Y)); err != nil {
		return err
	}
	sleepErr := timing.Sleep(ctx, s.Duration.Duration())
	if err := d.SetStick(controller.Left, 0, 0); err != nil {
		return err
	}
	return sleepErr
}

// StickHold engages the left stick and leaves it engaged
type StickHold struct {
	Timing `yaml:",inline"`
	Value  string `yaml:"value"`
}

func (s *StickHold) Action() string { return "stick_hold" }

func (s *StickHold) Validate() error {
	if _, ok := controller.ParseDirection(s.Value); !ok {
		return fmt.Errorf("invalid stick_hold direction '%s' (use left, right, up/forward, down/back)", s.Value)
	}
	return nil
}

func (s *StickHold) Describe() string {
	return fmt.Sprintf("Stick Hold: %s", strings.ToLower(s.Value))
}

func (s *StickHold) run(ctx context.Context, d *controller.Drive) error {
	pos, ok := controller.ParseDirection(s.Value)
	if !ok {
		return nil
	}
	if err := d.SetStick(controller.Left, int(pos.X), int(pos.Y)); err != nil {
		return err
	}
	return timing.Sleep(ctx, s.Duration.Duration())
}

// StickRelease centres the left stick
type StickRelease struct {
	Timing `yaml:",inline"`
	Value  string `yaml:"value,omitempty"`
}

func (s *StickRelease) Action() string   { return "stick_release" }
func (s *StickRelease) Validate() error  { return nil }
func (s *StickRelease) Describe() string { return "Stick Release" }

func (s *StickRelease) run(_ context.Context, d *controller.Drive) error {
	return d.SetStick(controller.Left, 0, 0)
}

// TriggerHold pulls a trigger fully and leaves it engaged
type TriggerHold struct {
	Timing `yaml:",inline"`
	Value  string `yaml:"value"`
}

func (s *TriggerHold) Action() string  { return "trigger_hold" }
func (s *TriggerHold) Validate() error { return validateSide(s.Value) }

func (s *TriggerHold) Describe() string {
	return fmt.Sprintf("Trigger Hold: %s", controller.ParseSide(s.Value))
}

func (s *TriggerHold) run(ctx context.Context, d *controller.Drive) error {
	if err := d.SetTrigger(controller.ParseSide(s.Value), controller.TriggerMax); err != nil {
		return err
	}
	return timing.Sleep(ctx, s.Duration.Duration())
}

// TriggerRelease lets a trigger go
type TriggerRelease struct {
	Timing `yaml:",inline"`
	Value  string `yaml:"value"`
}

func (s *TriggerRelease) Action() string  { return "trigger_release" }
func (s *TriggerRelease) Validate() error { return validateSide(s.Value) }

func (s *TriggerRelease) Describe() string {
	return fmt.Sprintf("Trigger Release: %s", controller.ParseSide(s.Value))
}

func (s *TriggerRelease) run(_ context.Context, d *controller.Drive) error {
	return d.SetTrigger(controller.ParseSide(s.Value), 0)
}

func validateSide(v string) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "right":
		return nil
	default:
		return fmt.Errorf("invalid trigger side '%s' (use left or right)", v)
	}
}
