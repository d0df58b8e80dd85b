package cv

import (
	"image"
	"math"
	"sort"

	"github.com/nfnt/resize"
)

const (
	// minCoarseSide is the smallest scaled template side worth searching
	minCoarseSide = 8
	// coarseSlack lowers the threshold of the coarse pass to survive resampling
	coarseSlack = 0.15
)

// coarseScale returns the scale of the pre-pass for this needle. A needle too
// small for config.Downscale is searched at the smallest scale that keeps its
// short side at minCoarseSide.
func coarseScale(needle *image.RGBA, config *MatchConfig) (float64, bool) {
	s := config.Downscale
	if s <= 0 || s >= 1 {
		return 0, false
	}
	b := needle.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	if short <= 0 {
		return 0, false
	}
	if math.Round(float64(short)*s) < minCoarseSide {
		s = float64(minCoarseSide) / float64(short)
	}
	if s >= 1 {
		return 0, false
	}
	return s, true
}

// useCoarse reports whether a downscaled pre-pass applies to this needle
func useCoarse(needle *image.RGBA, config *MatchConfig) bool {
	_, ok := coarseScale(needle, config)
	return ok
}

// coarsePass is a downscaled copy of the search area and needle
type coarsePass struct {
	scale    float64
	origin   image.Point
	haystack *image.RGBA
	needle   *image.RGBA
}

func newCoarsePass(haystack, needle *image.RGBA, config *MatchConfig) (*coarsePass, bool) {
	bounds := haystack.Bounds()
	if config.SearchRegion != nil {
		bounds = config.SearchRegion.Intersect(bounds)
	}
	if bounds.Empty() {
		return nil, false
	}

	s, ok := coarseScale(needle, config)
	if !ok {
		return nil, false
	}
	nb := needle.Bounds()
	hw := uint(math.Round(float64(bounds.Dx()) * s))
	hh := uint(math.Round(float64(bounds.Dy()) * s))
	nw := uint(math.Round(float64(nb.Dx()) * s))
	nh := uint(math.Round(float64(nb.Dy()) * s))
	if nw == 0 || nh == 0 || hw < nw || hh < nh {
		return nil, false
	}

	src := haystack.SubImage(bounds)
	return &coarsePass{
		scale:    s,
		origin:   bounds.Min,
		haystack: ToRGBA(resize.Resize(hw, hh, src, resize.Bilinear)),
		needle:   ToRGBA(resize.Resize(nw, nh, needle, resize.Bilinear)),
	}, true
}

// refineArea maps a coarse hit back to a small full-resolution search window
func (c *coarsePass) refineArea(p image.Point, full image.Rectangle) image.Rectangle {
	cb := c.haystack.Bounds()
	fx := c.origin.X + int(math.Round(float64(p.X-cb.Min.X)/c.scale))
	fy := c.origin.Y + int(math.Round(float64(p.Y-cb.Min.Y)/c.scale))
	r := int(math.Ceil(1/c.scale)) + 1
	return image.Rect(fx-r, fy-r, fx+r+1, fy+r+1).Intersect(full)
}

func findTemplateCoarse(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	full, ok := searchArea(haystack, needle, config)
	if !ok {
		return &MatchResult{Found: false}
	}

	pass, ok := newCoarsePass(haystack, needle, config)
	if !ok {
		return newScorer(haystack, needle, config.Method, full).best(full, config.Threshold)
	}

	coarse := FindTemplate(pass.haystack, pass.needle, &MatchConfig{Method: config.Method})
	if coarse.Confidence < config.Threshold-coarseSlack {
		return &MatchResult{Found: false, Confidence: coarse.Confidence}
	}

	area := pass.refineArea(coarse.Location, full)
	if area.Empty() {
		return &MatchResult{Found: false}
	}
	return newScorer(haystack, needle, config.Method, area).best(area, config.Threshold)
}

func findTemplateAllCoarse(haystack, needle *image.RGBA, config *MatchConfig) []MatchResult {
	full, ok := searchArea(haystack, needle, config)
	if !ok {
		return nil
	}

	pass, ok := newCoarsePass(haystack, needle, config)
	if !ok {
		return newScorer(haystack, needle, config.Method, full).all(full, config.Threshold, config.MaxMatches)
	}

	candidates := FindTemplateAll(pass.haystack, pass.needle, &MatchConfig{
		Method:    config.Method,
		Threshold: math.Max(0, config.Threshold-coarseSlack),
	})

	seen := make(map[image.Point]bool)
	var results []MatchResult
	for _, c := range candidates {
		area := pass.refineArea(c.Location, full)
		if area.Empty() {
			continue
		}
		best := newScorer(haystack, needle, config.Method, area).best(area, config.Threshold)
		if !best.Found || seen[best.Location] {
			continue
		}
		seen[best.Location] = true
		results = append(results, *best)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].Location, results[j].Location
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	if config.MaxMatches > 0 && len(results) > config.MaxMatches {
		results = results[:config.MaxMatches]
	}
	return results
}
