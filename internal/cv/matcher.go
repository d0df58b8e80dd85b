package cv

import (
	"fmt"
	"image"
	"sync"
)

// ReferenceSource supplies loaded reference images by name
type ReferenceSource interface {
	Reference(name string) (Reference, error)
	CardReferences() ([]Reference, error)
}

// originer is implemented by capturers whose frames are offset from screen space
type originer interface {
	Origin() image.Point
}

// Matcher captures frames and runs reference matching against them
type Matcher struct {
	capturer  Capturer
	refs      ReferenceSource
	threshold float64
	downscale float64
	onSkip    SkipFunc

	mu sync.RWMutex
}

// NewMatcher creates a matcher. threshold <= 0 defers to per-reference thresholds.
func NewMatcher(capturer Capturer, refs ReferenceSource, threshold float64) *Matcher {
	return &Matcher{
		capturer:  capturer,
		refs:      refs,
		threshold: threshold,
	}
}

// WithDownscale enables the coarse-to-fine search at scale s
func (m *Matcher) WithDownscale(s float64) *Matcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downscale = s
	return m
}

// OnSkip registers a handler for references skipped during a cycle
func (m *Matcher) OnSkip(fn SkipFunc) *Matcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSkip = fn
	return m
}

// SetThreshold updates the card confidence threshold
func (m *Matcher) SetThreshold(threshold float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the card confidence threshold
func (m *Matcher) Threshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threshold
}

// CaptureFrame grabs a fresh frame
func (m *Matcher) CaptureFrame() (*image.RGBA, error) {
	frame, err := m.capturer.CaptureFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	return frame, nil
}

// Detect captures one frame and returns every card detection in screen coordinates
func (m *Matcher) Detect() ([]Detection, error) {
	frame, err := m.CaptureFrame()
	if err != nil {
		return nil, err
	}

	detections, err := m.DetectIn(frame)
	if err != nil {
		return nil, err
	}

	origin := m.origin()
	for i := range detections {
		detections[i].X += origin.X
		detections[i].Y += origin.Y
	}
	return detections, nil
}

// DetectIn returns card detections in frame coordinates
func (m *Matcher) DetectIn(frame *image.RGBA) ([]Detection, error) {
	refs, err := m.refs.CardReferences()
	if err != nil {
		return nil, fmt.Errorf("failed to load card references: %w", err)
	}
	return FindDetections(frame, refs, m.Threshold(), m.options()...), nil
}

// Locate finds the named reference in a fresh frame, in screen coordinates
func (m *Matcher) Locate(name string) (Detection, bool, error) {
	frame, err := m.CaptureFrame()
	if err != nil {
		return Detection{}, false, err
	}

	d, ok, err := m.LocateIn(frame, name)
	if err != nil || !ok {
		return d, ok, err
	}

	origin := m.origin()
	d.X += origin.X
	d.Y += origin.Y
	return d, true, nil
}

// LocateIn finds the named reference in frame
func (m *Matcher) LocateIn(frame *image.RGBA, name string) (Detection, bool, error) {
	ref, err := m.refs.Reference(name)
	if err != nil {
		return Detection{}, false, fmt.Errorf("failed to load reference: %w", err)
	}
	d, ok := FindBest(frame, ref, m.Threshold(), m.options()...)
	return d, ok, nil
}

// IsVisible reports whether the named reference is on screen
func (m *Matcher) IsVisible(name string) (bool, error) {
	_, ok, err := m.Locate(name)
	return ok, err
}

func (m *Matcher) options() []Option {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var opts []Option
	if m.downscale > 0 && m.downscale < 1 {
		opts = append(opts, WithDownscale(m.downscale))
	}
	if m.onSkip != nil {
		opts = append(opts, WithSkipHandler(m.onSkip))
	}
	return opts
}

func (m *Matcher) origin() image.Point {
	if o, ok := m.capturer.(originer); ok {
		return o.Origin()
	}
	return image.Point{}
}
