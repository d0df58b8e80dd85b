package cv

import (
	"fmt"
	"image"
	"sort"
)

// DefaultConfidence is used when neither the caller nor the reference sets a threshold
const DefaultConfidence = 0.8

// Detection is one located, typed match of a reference within a frame
type Detection struct {
	X, Y          int
	Width, Height int
	Confidence    float64
	Type          CardType
	Name          string
}

// Center returns the screen point at the middle of the detection
func (d Detection) Center() image.Point {
	return image.Point{X: d.X + d.Width/2, Y: d.Y + d.Height/2}
}

// Bounds returns the detection rectangle
func (d Detection) Bounds() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

func (d Detection) String() string {
	return fmt.Sprintf("%s(%s) at (%d,%d) conf=%.3f", d.Name, d.Type, d.X, d.Y, d.Confidence)
}

// overlaps reports whether two detections lie within half a template of each other on both axes
func (d Detection) overlaps(o Detection) bool {
	dx := d.X - o.X
	dy := d.Y - o.Y
	return float64(abs(dx)) < float64(d.Width)*0.5 && float64(abs(dy)) < float64(d.Height)*0.5
}

// SkipFunc is notified when a reference is skipped for a cycle
type SkipFunc func(name string, err error)

// FindDetections matches every reference against the same frame and returns
// deduplicated detections sorted left to right. A threshold <= 0 defers to each
// reference's own threshold.
func FindDetections(frame *image.RGBA, refs []Reference, threshold float64, opts ...Option) []Detection {
	o := applyOptions(opts)

	var detections []Detection
	for _, ref := range refs {
		matches, err := matchReference(frame, ref, resolveThreshold(threshold, ref), o)
		if err != nil {
			if o.onSkip != nil {
				o.onSkip(ref.Name, err)
			}
			continue
		}

		w, h := ref.Size()
		for _, m := range matches {
			detections = mergeDetection(detections, Detection{
				X:          m.Location.X,
				Y:          m.Location.Y,
				Width:      w,
				Height:     h,
				Confidence: m.Confidence,
				Type:       ref.Type,
				Name:       ref.Name,
			})
		}
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].X < detections[j].X
	})
	return detections
}

// mergeDetection adds candidate unless it collides with an accepted detection.
// On collision the higher confidence wins.
func mergeDetection(accepted []Detection, candidate Detection) []Detection {
	for i, existing := range accepted {
		if !candidate.overlaps(existing) {
			continue
		}
		if candidate.Confidence > existing.Confidence {
			accepted = append(accepted[:i], accepted[i+1:]...)
			return append(accepted, candidate)
		}
		return accepted
	}
	return append(accepted, candidate)
}

// FindBest returns the highest-confidence placement of ref in frame
func FindBest(frame *image.RGBA, ref Reference, threshold float64, opts ...Option) (Detection, bool) {
	o := applyOptions(opts)
	threshold = resolveThreshold(threshold, ref)

	result, err := bestReference(frame, ref, threshold, o)
	if err != nil {
		if o.onSkip != nil {
			o.onSkip(ref.Name, err)
		}
		return Detection{}, false
	}
	if !result.Found {
		return Detection{}, false
	}

	w, h := ref.Size()
	return Detection{
		X:          result.Location.X,
		Y:          result.Location.Y,
		Width:      w,
		Height:     h,
		Confidence: result.Confidence,
		Type:       ref.Type,
		Name:       ref.Name,
	}, true
}

// IsVisible reports whether ref appears in frame at or above threshold
func IsVisible(frame *image.RGBA, ref Reference, threshold float64, opts ...Option) bool {
	_, ok := FindBest(frame, ref, threshold, opts...)
	return ok
}

func resolveThreshold(threshold float64, ref Reference) float64 {
	if threshold > 0 {
		return threshold
	}
	if ref.Threshold > 0 {
		return ref.Threshold
	}
	return DefaultConfidence
}

func matchConfig(ref Reference, threshold float64, o *cvOptions) *MatchConfig {
	config := &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: threshold,
		Downscale: o.downscale,
	}
	if o.region != nil {
		config.SearchRegion = o.region.ToImageRectangle()
	} else if ref.Region != nil {
		config.SearchRegion = ref.Region.ToImageRectangle()
	}
	return config
}

func validateReference(frame *image.RGBA, ref Reference) error {
	if frame == nil || ref.Image == nil {
		return ErrInvalidImage
	}
	fb, rb := frame.Bounds(), ref.Image.Bounds()
	if rb.Empty() {
		return ErrInvalidImage
	}
	if rb.Dx() > fb.Dx() || rb.Dy() > fb.Dy() {
		return ErrTemplateTooLarge
	}
	return nil
}

// matchReference runs the all-matches scan, converting a panic from a
// malformed image into an error so one bad reference cannot end the cycle.
func matchReference(frame *image.RGBA, ref Reference, threshold float64, o *cvOptions) (matches []MatchResult, err error) {
	if err := validateReference(frame, ref); err != nil {
		return nil, fmt.Errorf("reference %s: %w", ref.Name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = fmt.Errorf("reference %s: match failed: %v", ref.Name, r)
		}
	}()

	return FindTemplateAll(frame, ref.Image, matchConfig(ref, threshold, o)), nil
}

func bestReference(frame *image.RGBA, ref Reference, threshold float64, o *cvOptions) (result *MatchResult, err error) {
	if err := validateReference(frame, ref); err != nil {
		return nil, fmt.Errorf("reference %s: %w", ref.Name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("reference %s: match failed: %v", ref.Name, r)
		}
	}()

	return FindTemplate(frame, ref.Image, matchConfig(ref, threshold, o)), nil
}
