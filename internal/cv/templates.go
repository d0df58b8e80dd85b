package cv

import (
	"fmt"
	"image"
	"strings"
)

// CardType classifies what a reference image represents on screen
type CardType int

const (
	CardUnknown CardType = iota
	CardSpell
	CardEnchant
	CardEnchantedSpell
)

func (t CardType) String() string {
	switch t {
	case CardSpell:
		return "spell"
	case CardEnchant:
		return "enchant"
	case CardEnchantedSpell:
		return "enchanted_spell"
	default:
		return "unknown"
	}
}

// ParseCardType converts a YAML/INI type name into a CardType.
// Empty and "ui" map to CardUnknown.
func ParseCardType(s string) (CardType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spell":
		return CardSpell, nil
	case "enchant":
		return CardEnchant, nil
	case "enchanted", "enchanted_spell", "enchantedspell":
		return CardEnchantedSpell, nil
	case "", "ui", "unknown":
		return CardUnknown, nil
	default:
		return CardUnknown, fmt.Errorf("unknown card type '%s'", s)
	}
}

// Template describes a reference image before it is loaded
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Region    *Region
	Scale     float64
	Type      CardType
}

// Builder methods

// InRegion sets the search region for the template
func (t Template) InRegion(x1, y1, x2, y2 int) Template {
	region := NewRegion(x1, y1, x2, y2)
	t.Region = &region
	return t
}

// WithThreshold sets the matching threshold
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}

// WithScale sets the scale factor
func (t Template) WithScale(scale float64) Template {
	t.Scale = scale
	return t
}

// OfType sets the card classification
func (t Template) OfType(cardType CardType) Template {
	t.Type = cardType
	return t
}

// Reference is a loaded template ready for matching
type Reference struct {
	Template
	Image *image.RGBA
}

// Size returns the reference image dimensions
func (r Reference) Size() (width, height int) {
	if r.Image == nil {
		return 0, 0
	}
	b := r.Image.Bounds()
	return b.Dx(), b.Dy()
}
