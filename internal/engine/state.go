package engine

import (
	"fmt"
	"strings"
)

// BotState is the engine's lifecycle state
type BotState int

const (
	StateStopped BotState = iota
	StateRunning
	StatePaused
	// StateWaiting is declared for callers that display it; the loop never enters it
	StateWaiting
)

func (s BotState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateWaiting:
		return "waiting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// validTransitions lists the allowed targets per state
var validTransitions = map[BotState][]BotState{
	StateStopped: {StateRunning},
	StateRunning: {StatePaused, StateStopped},
	StatePaused:  {StateRunning, StateStopped},
	StateWaiting: {StateRunning, StateStopped},
}

// CanTransitionTo reports whether target is reachable from s
func (s BotState) CanTransitionTo(target BotState) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the loop is alive in this state
func (s BotState) IsActive() bool {
	return s == StateRunning || s == StatePaused || s == StateWaiting
}

// TransitionError represents an invalid state transition attempt
type TransitionError struct {
	From BotState
	To   BotState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// Mode selects the priority policy
type Mode int

const (
	// ModeSimple casts the first enchanted card, else the first spell
	ModeSimple Mode = iota
	// ModeAdvanced also enchants spells before casting them
	ModeAdvanced
)

func (m Mode) String() string {
	if m == ModeAdvanced {
		return "advanced"
	}
	return "simple"
}

// ParseMode accepts "simple" and "advanced"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return ModeSimple, nil
	case "advanced":
		return ModeAdvanced, nil
	default:
		return ModeSimple, fmt.Errorf("unknown mode %q (use simple or advanced)", s)
	}
}

// CardSelect chooses how a card is picked
type CardSelect int

const (
	// SelectClick clicks the card's centre
	SelectClick CardSelect = iota
	// SelectKeyboard moves a slot cursor with the navigation keys and presses select
	SelectKeyboard
)

func (c CardSelect) String() string {
	if c == SelectKeyboard {
		return "keyboard"
	}
	return "click"
}

// ParseCardSelect accepts "click" and "keyboard"
func ParseCardSelect(s string) (CardSelect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "click":
		return SelectClick, nil
	case "keyboard":
		return SelectKeyboard, nil
	default:
		return SelectClick, fmt.Errorf("unknown card selection %q (use click or keyboard)", s)
	}
}
