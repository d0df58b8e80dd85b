package engine

import (
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
)

// Refill triggers
const (
	TriggerZero   = "zero"
	TriggerIdle   = "idle"
	TriggerManual = "manual"
)

// RefillPolicy decides when the recovery sequence runs
type RefillPolicy struct {
	Enabled     bool
	IdleTimeout time.Duration
}

// ShouldRefill is true on zero resource, or on low resource once idle >= IdleTimeout.
// trigger names the reason.
func (p RefillPolicy) ShouldRefill(status cv.ResourceStatus, idle time.Duration) (ok bool, trigger string) {
	if !p.Enabled {
		return false, ""
	}
	if status.Zero {
		return true, TriggerZero
	}
	if status.Low && idle >= p.IdleTimeout {
		return true, TriggerIdle
	}
	return false, ""
}

type actionKind int

const (
	actionNone actionKind = iota
	actionCast
	actionEnchant
)

// decision is the winning action for one cycle. slot indexes the card in the
// x-sorted detection list.
type decision struct {
	kind    actionKind
	card    cv.Detection
	slot    int
	enchant cv.Detection
	eslot   int
}

type indexed struct {
	det  cv.Detection
	slot int
}

// hand is one cycle's detections split by type, each in ascending x
type hand struct {
	all       []cv.Detection
	enchants  []indexed
	spells    []indexed
	enchanted []indexed
}

func partition(dets []cv.Detection) hand {
	h := hand{all: dets}
	for i, d := range dets {
		switch d.Type {
		case cv.CardEnchant:
			h.enchants = append(h.enchants, indexed{d, i})
		case cv.CardSpell:
			h.spells = append(h.spells, indexed{d, i})
		case cv.CardEnchantedSpell:
			h.enchanted = append(h.enchanted, indexed{d, i})
		}
	}
	return h
}

// castable reports whether a spell or enchanted spell is present
func (h hand) castable() bool {
	return len(h.spells) > 0 || len(h.enchanted) > 0
}

// hasCards reports whether any typed card is present
func (h hand) hasCards() bool {
	return h.castable() || len(h.enchants) > 0
}

// decide applies the mode's priority policy.
//
// simple: first enchanted, else first spell.
// advanced: first enchanted; else enchant+spell pair; else first spell when
// no enchant is present.
func decide(mode Mode, h hand) decision {
	if len(h.enchanted) > 0 {
		c := h.enchanted[0]
		return decision{kind: actionCast, card: c.det, slot: c.slot}
	}

	if mode == ModeAdvanced && len(h.enchants) > 0 && len(h.spells) > 0 {
		e, s := h.enchants[0], h.spells[0]
		return decision{kind: actionEnchant, card: s.det, slot: s.slot, enchant: e.det, eslot: e.slot}
	}

	if len(h.spells) > 0 && (mode == ModeSimple || len(h.enchants) == 0) {
		s := h.spells[0]
		return decision{kind: actionCast, card: s.det, slot: s.slot}
	}

	return decision{kind: actionNone}
}
