package controller

// Mouse button names understood by the key state reader
const (
	MouseLeft  = "mouse_left"
	MouseRight = "mouse_right"
)

// Bindings maps keyboard keys to gamepad inputs for polling. Empty keys are unbound.
type Bindings struct {
	ButtonA         string
	ButtonB         string
	ButtonX         string
	ButtonY         string
	LeftBumper      string
	RightBumper     string
	LeftTrigger     string
	RightTrigger    string
	DpadUp          string
	DpadDown        string
	DpadLeft        string
	DpadRight       string
	LeftStickClick  string
	RightStickClick string
	Start           string
	Back            string
	Guide           string

	LeftStickUp     string
	LeftStickDown   string
	LeftStickLeft   string
	LeftStickRight  string
	RightStickUp    string
	RightStickDown  string
	RightStickLeft  string
	RightStickRight string

	MouseLeftTrigger        bool
	MouseRightTrigger       bool
	MouseLeftIsRightTrigger bool
}

// DefaultBindings returns the stock keyboard layout
func DefaultBindings() Bindings {
	return Bindings{
		ButtonA:         "space",
		ButtonB:         "lctrl",
		ButtonX:         "r",
		ButtonY:         "1",
		LeftBumper:      "e",
		RightBumper:     "q",
		DpadUp:          "up",
		DpadDown:        "down",
		DpadLeft:        "left",
		DpadRight:       "right",
		LeftStickClick:  "lshift",
		RightStickClick: "c",
		Start:           "b",
		Back:            "v",
		Guide:           "tilde",

		LeftStickUp:    "w",
		LeftStickDown:  "s",
		LeftStickLeft:  "a",
		LeftStickRight: "d",

		MouseLeftTrigger:        true,
		MouseRightTrigger:       true,
		MouseLeftIsRightTrigger: true,
	}
}

type buttonBinding struct {
	key    string
	button Button
}

func (b Bindings) buttons() []buttonBinding {
	return []buttonBinding{
		{b.ButtonA, ButtonA},
		{b.ButtonB, ButtonB},
		{b.ButtonX, ButtonX},
		{b.ButtonY, ButtonY},
		{b.LeftBumper, ButtonLeftShoulder},
		{b.RightBumper, ButtonRightShoulder},
		{b.DpadUp, ButtonDpadUp},
		{b.DpadDown, ButtonDpadDown},
		{b.DpadLeft, ButtonDpadLeft},
		{b.DpadRight, ButtonDpadRight},
		{b.LeftStickClick, ButtonLeftThumb},
		{b.RightStickClick, ButtonRightThumb},
		{b.Start, ButtonStart},
		{b.Back, ButtonBack},
		{b.Guide, ButtonGuide},
	}
}
