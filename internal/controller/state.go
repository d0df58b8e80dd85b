package controller

import (
	"fmt"
	"sort"
	"strings"
)

// Button is an XInput button bit
type Button uint16

const (
	ButtonNone          Button = 0x0000
	ButtonDpadUp        Button = 0x0001
	ButtonDpadDown      Button = 0x0002
	ButtonDpadLeft      Button = 0x0004
	ButtonDpadRight     Button = 0x0008
	ButtonStart         Button = 0x0010
	ButtonBack          Button = 0x0020
	ButtonLeftThumb     Button = 0x0040
	ButtonRightThumb    Button = 0x0080
	ButtonLeftShoulder  Button = 0x0100
	ButtonRightShoulder Button = 0x0200
	ButtonGuide         Button = 0x0400
	ButtonA             Button = 0x1000
	ButtonB             Button = 0x2000
	ButtonX             Button = 0x4000
	ButtonY             Button = 0x8000
)

var buttonNames = map[string]Button{
	"A":              ButtonA,
	"B":              ButtonB,
	"X":              ButtonX,
	"Y":              ButtonY,
	"DPAD_UP":        ButtonDpadUp,
	"DPAD_DOWN":      ButtonDpadDown,
	"DPAD_LEFT":      ButtonDpadLeft,
	"DPAD_RIGHT":     ButtonDpadRight,
	"LEFT_SHOULDER":  ButtonLeftShoulder,
	"RIGHT_SHOULDER": ButtonRightShoulder,
	"LEFT_THUMB":     ButtonLeftThumb,
	"RIGHT_THUMB":    ButtonRightThumb,
	"START":          ButtonStart,
	"BACK":           ButtonBack,
	"GUIDE":          ButtonGuide,
}

// ParseButton looks up a button by its case-insensitive name
func ParseButton(name string) (Button, bool) {
	b, ok := buttonNames[strings.ToUpper(strings.TrimSpace(name))]
	return b, ok
}

// ButtonNames returns every known button name, sorted
func ButtonNames() []string {
	names := make([]string, 0, len(buttonNames))
	for name := range buttonNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b Button) String() string {
	if b == ButtonNone {
		return "NONE"
	}
	var parts []string
	for _, name := range ButtonNames() {
		if bit := buttonNames[name]; b&bit != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("0x%04X", uint16(b))
	}
	return strings.Join(parts, "|")
}

// Axis and trigger limits
const (
	AxisMax    = 32767
	AxisMin    = -32768
	TriggerMax = 255
)

// Side selects the left or right stick/trigger
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ParseSide accepts "left" and "right"; anything else is right
func ParseSide(s string) Side {
	if strings.EqualFold(strings.TrimSpace(s), "left") {
		return Left
	}
	return Right
}

// Stick is an analog stick position
type Stick struct {
	X, Y int16
}

// Centered reports whether the stick is at rest
func (s Stick) Centered() bool {
	return s.X == 0 && s.Y == 0
}

// Full-deflection positions
var (
	StickUp    = Stick{X: 0, Y: AxisMax}
	StickDown  = Stick{X: 0, Y: AxisMin}
	StickLeft  = Stick{X: AxisMin, Y: 0}
	StickRight = Stick{X: AxisMax, Y: 0}
)

// ParseDirection maps up/forward, down/back, left and right to a full deflection
func ParseDirection(name string) (Stick, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up", "forward":
		return StickUp, true
	case "down", "back":
		return StickDown, true
	case "left":
		return StickLeft, true
	case "right":
		return StickRight, true
	default:
		return Stick{}, false
	}
}

// State is a full gamepad snapshot
type State struct {
	Buttons      Button
	LeftTrigger  uint8
	RightTrigger uint8
	LeftStick    Stick
	RightStick   Stick
}

// Neutral reports whether nothing is pressed or deflected
func (s State) Neutral() bool {
	return s == State{}
}

// Stick returns the stick on side
func (s State) Stick(side Side) Stick {
	if side == Left {
		return s.LeftStick
	}
	return s.RightStick
}

// Trigger returns the trigger on side
func (s State) Trigger(side Side) uint8 {
	if side == Left {
		return s.LeftTrigger
	}
	return s.RightTrigger
}

func (s State) String() string {
	return fmt.Sprintf("buttons=%s lt=%d rt=%d ls=(%d,%d) rs=(%d,%d)",
		s.Buttons, s.LeftTrigger, s.RightTrigger,
		s.LeftStick.X, s.LeftStick.Y, s.RightStick.X, s.RightStick.Y)
}

// ClampAxis limits v to the stick range
func ClampAxis(v int) int16 {
	if v > AxisMax {
		return AxisMax
	}
	if v < AxisMin {
		return AxisMin
	}
	return int16(v)
}

// ClampTrigger limits v to the trigger range
func ClampTrigger(v int) uint8 {
	if v > TriggerMax {
		return TriggerMax
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
