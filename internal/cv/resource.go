package cv

import (
	"fmt"
	"image"
	"sync"
)

// Reference names used by the mana cascade
const (
	RefManaZero     = "mana_zero"
	RefManaOrbEmpty = "mana_orb_empty"
	RefManaOrbFull  = "mana_orb_full"
	refManaDigitFmt = "mana_digit_%d"
)

// ResourceStatus is the mana reading of one check. Zero implies Low.
type ResourceStatus struct {
	Zero       bool
	Low        bool
	Confidence float64
	Region     *Region
}

func (s ResourceStatus) String() string {
	switch {
	case s.Zero:
		return "zero"
	case s.Low:
		return "low"
	default:
		return "normal"
	}
}

// ResourceThresholds holds per-stage confidences of the mana cascade
type ResourceThresholds struct {
	Zero        float64
	Low         float64
	Digit       float64
	Orb         float64
	LowFullness float64
}

// DefaultResourceThresholds returns the tuned cascade thresholds
func DefaultResourceThresholds() ResourceThresholds {
	return ResourceThresholds{
		Zero:        0.93,
		Low:         0.80,
		Digit:       0.88,
		Orb:         0.6,
		LowFullness: 0.3,
	}
}

// Fixed confidences reported by stages that have no single match score
const (
	digitStageConfidence    = 0.85
	fullnessStageConfidence = 0.7
	onlyFullFullness        = 0.8
	onlyEmptyFullness       = 0.2
)

// ResourceDetector classifies mana as zero, low or normal from reference matches
type ResourceDetector struct {
	capturer   Capturer
	refs       ReferenceSource
	thresholds ResourceThresholds
	downscale  float64
	onSkip     SkipFunc

	lastRegion *Region
	mu         sync.Mutex
}

// NewResourceDetector creates a mana detector. Every mana reference is optional.
func NewResourceDetector(capturer Capturer, refs ReferenceSource, thresholds ResourceThresholds) *ResourceDetector {
	return &ResourceDetector{
		capturer:   capturer,
		refs:       refs,
		thresholds: thresholds,
	}
}

// WithDownscale enables the coarse-to-fine search at scale s for every mana reference
func (r *ResourceDetector) WithDownscale(s float64) *ResourceDetector {
	r.downscale = s
	return r
}

// OnSkip registers a handler for references that failed to match
func (r *ResourceDetector) OnSkip(fn SkipFunc) *ResourceDetector {
	r.onSkip = fn
	return r
}

// CheckStatus captures a fresh frame and classifies it
func (r *ResourceDetector) CheckStatus() (ResourceStatus, error) {
	frame, err := r.capturer.CaptureFrame()
	if err != nil {
		return ResourceStatus{}, fmt.Errorf("failed to capture frame: %w", err)
	}
	return r.Check(frame), nil
}

// Check runs the cascade against frame. The first stage that fires decides.
func (r *ResourceDetector) Check(frame *image.RGBA) ResourceStatus {
	if d, ok := r.find(frame, RefManaZero, r.thresholds.Zero); ok {
		region := RegionFromBox(d.X, d.Y, d.Width, d.Height)
		r.mu.Lock()
		r.lastRegion = &region
		r.mu.Unlock()
		return ResourceStatus{Zero: true, Low: true, Confidence: d.Confidence, Region: &region}
	}

	if d, ok := r.find(frame, RefManaOrbEmpty, r.thresholds.Low); ok {
		return ResourceStatus{Low: true, Confidence: d.Confidence}
	}

	for digit := 0; digit <= 5; digit++ {
		if _, ok := r.find(frame, fmt.Sprintf(refManaDigitFmt, digit), r.thresholds.Digit); ok {
			return ResourceStatus{Low: true, Confidence: digitStageConfidence}
		}
	}

	if fullness, ok := r.Fullness(frame); ok && fullness < r.thresholds.LowFullness {
		return ResourceStatus{Low: true, Confidence: fullnessStageConfidence}
	}

	return ResourceStatus{}
}

// Fullness estimates orb fill in [0,1] from the full and empty orb references.
// Both references must be registered.
func (r *ResourceDetector) Fullness(frame *image.RGBA) (float64, bool) {
	full, errFull := r.refs.Reference(RefManaOrbFull)
	empty, errEmpty := r.refs.Reference(RefManaOrbEmpty)
	if errFull != nil || errEmpty != nil {
		return 0, false
	}

	fullMatch, fullOK := r.match(frame, full, r.thresholds.Orb)
	emptyMatch, emptyOK := r.match(frame, empty, r.thresholds.Orb)

	switch {
	case fullOK && emptyOK:
		total := fullMatch.Confidence + emptyMatch.Confidence
		if total <= 0 {
			return 0, false
		}
		return fullMatch.Confidence / total, true
	case fullOK:
		return onlyFullFullness, true
	case emptyOK:
		return onlyEmptyFullness, true
	default:
		return 0, false
	}
}

// LastRegion returns where the zero indicator was last seen
func (r *ResourceDetector) LastRegion() (Region, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRegion == nil {
		return Region{}, false
	}
	return *r.lastRegion, true
}

func (r *ResourceDetector) find(frame *image.RGBA, name string, threshold float64) (Detection, bool) {
	ref, err := r.refs.Reference(name)
	if err != nil {
		return Detection{}, false
	}
	return r.match(frame, ref, threshold)
}

func (r *ResourceDetector) match(frame *image.RGBA, ref Reference, threshold float64) (Detection, bool) {
	var opts []Option
	if r.downscale > 0 && r.downscale < 1 {
		opts = append(opts, WithDownscale(r.downscale))
	}
	if r.onSkip != nil {
		opts = append(opts, WithSkipHandler(r.onSkip))
	}
	return FindBest(frame, ref, threshold, opts...)
}
