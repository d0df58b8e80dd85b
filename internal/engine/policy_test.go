package engine

import (
	"testing"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
)

func card(name string, typ cv.CardType, x int) cv.Detection {
	return cv.Detection{X: x, Y: 500, Width: 20, Height: 30, Confidence: 0.9, Type: typ, Name: name}
}

func TestDecide(t *testing.T) {
	enchant := card("blade", cv.CardEnchant, 10)
	spell := card("fire_cat", cv.CardSpell, 100)
	spell2 := card("ice_beetle", cv.CardSpell, 150)
	enchanted := card("fire_cat_blade", cv.CardEnchantedSpell, 200)

	tests := []struct {
		name     string
		mode     Mode
		dets     []cv.Detection
		wantKind actionKind
		wantCard string
		wantSlot int
		wantEnch string
	}{
		{"empty", ModeSimple, nil, actionNone, "", 0, ""},
		{"simple prefers enchanted", ModeSimple, []cv.Detection{enchant, spell, enchanted}, actionCast, "fire_cat_blade", 2, ""},
		{"simple casts first spell", ModeSimple, []cv.Detection{enchant, spell, spell2}, actionCast, "fire_cat", 1, ""},
		{"simple ignores lone enchant", ModeSimple, []cv.Detection{enchant}, actionNone, "", 0, ""},
		{"advanced prefers enchanted", ModeAdvanced, []cv.Detection{enchant, spell, enchanted}, actionCast, "fire_cat_blade", 2, ""},
		{"advanced pairs enchant and spell", ModeAdvanced, []cv.Detection{enchant, spell, spell2}, actionEnchant, "fire_cat", 1, "blade"},
		{"advanced casts spell without enchant", ModeAdvanced, []cv.Detection{spell, spell2}, actionCast, "fire_cat", 0, ""},
		{"advanced waits on lone enchant", ModeAdvanced, []cv.Detection{enchant}, actionNone, "", 0, ""},
		{"unknown types ignored", ModeSimple, []cv.Detection{card("x", cv.CardUnknown, 0)}, actionNone, "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(tt.mode, partition(tt.dets))
			if d.kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", d.kind, tt.wantKind)
			}
			if d.kind == actionNone {
				return
			}
			if d.card.Name != tt.wantCard || d.slot != tt.wantSlot {
				t.Errorf("card = %s@%d, want %s@%d", d.card.Name, d.slot, tt.wantCard, tt.wantSlot)
			}
			if d.enchant.Name != tt.wantEnch {
				t.Errorf("enchant = %q, want %q", d.enchant.Name, tt.wantEnch)
			}
		})
	}
}

func TestHandPredicates(t *testing.T) {
	h := partition([]cv.Detection{card("blade", cv.CardEnchant, 0)})
	if h.castable() {
		t.Error("Lone enchant should not be castable")
	}
	if !h.hasCards() {
		t.Error("Lone enchant should count as a card")
	}
	if (hand{}).hasCards() {
		t.Error("Empty hand should have no cards")
	}
}

func TestShouldRefill(t *testing.T) {
	policy := RefillPolicy{Enabled: true, IdleTimeout: 3 * time.Minute}

	tests := []struct {
		name        string
		policy      RefillPolicy
		status      cv.ResourceStatus
		idle        time.Duration
		wantOK      bool
		wantTrigger string
	}{
		{"normal", policy, cv.ResourceStatus{}, time.Hour, false, ""},
		{"zero refills immediately", policy, cv.ResourceStatus{Zero: true, Low: true}, 0, true, TriggerZero},
		{"low but active", policy, cv.ResourceStatus{Low: true}, time.Minute, false, ""},
		{"low at timeout", policy, cv.ResourceStatus{Low: true}, 3 * time.Minute, true, TriggerIdle},
		{"low and idle", policy, cv.ResourceStatus{Low: true}, 5 * time.Minute, true, TriggerIdle},
		{"disabled", RefillPolicy{IdleTimeout: time.Minute}, cv.ResourceStatus{Zero: true, Low: true}, time.Hour, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, trigger := tt.policy.ShouldRefill(tt.status, tt.idle)
			if ok != tt.wantOK || trigger != tt.wantTrigger {
				t.Errorf("ShouldRefill = (%v, %q), want (%v, %q)", ok, trigger, tt.wantOK, tt.wantTrigger)
			}
		})
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to BotState
		want     bool
	}{
		{StateStopped, StateRunning, true},
		{StateStopped, StatePaused, false},
		{StateRunning, StatePaused, true},
		{StateRunning, StateStopped, true},
		{StatePaused, StateRunning, true},
		{StatePaused, StateStopped, true},
		{StateWaiting, StateRunning, true},
		{StateRunning, StateRunning, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseModeAndCardSelect(t *testing.T) {
	if m, err := ParseMode(" Advanced "); err != nil || m != ModeAdvanced {
		t.Errorf("ParseMode(advanced) = %v, %v", m, err)
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if c, err := ParseCardSelect("keyboard"); err != nil || c != SelectKeyboard {
		t.Errorf("ParseCardSelect(keyboard) = %v, %v", c, err)
	}
	if _, err := ParseCardSelect("gamepad"); err == nil {
		t.Error("Expected error for unknown card selection")
	}
}
