package sequence

import "github.com/AbyssalKaz/Console101Farm/internal/timing"

// RefillComboName names the built-in recovery combo
const RefillComboName = "mana_refill"

func button(name string, repeat int) *Button {
	return &Button{Timing: Timing{Duration: DefaultButtonHold, Repeat: repeat}, Value: name}
}

func wait(seconds timing.Seconds) *Wait {
	return &Wait{Timing: Timing{Duration: seconds}}
}

// DefaultRefillCombo returns the stock mana recovery combo: open the
// inventory, use a potion, walk back into the duel.
func DefaultRefillCombo() *Sequence {
	return New(RefillComboName,
		button("RIGHT_SHOULDER", 1),
		&StickHold{Timing: Timing{Duration: 0.2}, Value: "left"},
		button("RIGHT_SHOULDER", 1),
		&StickRelease{Value: "left"},
		wait(7),
		button("LEFT_SHOULDER", 4),
		button("A", 1),
		button("DPAD_DOWN", 4),
		button("A", 1),
		wait(5),
		StickForward(2),
		wait(5),
		StickForward(2),
		wait(5),
		StickForward(2),
		wait(2),
		StickRight(1),
		StickForward(2),
		wait(2),
		button("X", 1),
		button("DPAD_DOWN", 1),
		button("X", 1),
		wait(2),
		button("B", 1),
		&TriggerHold{Value: "right"},
		&StickHold{Timing: Timing{Duration: 1.0}, Value: "left"},
		&TriggerRelease{Value: "right"},
		&StickRelease{Value: "left"},
		button("DPAD_LEFT", 1),
		StickForward(2),
	)
}
