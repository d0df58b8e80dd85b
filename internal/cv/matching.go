package cv

import (
	"errors"
	"image"
	"math"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// MatchConfig configures template matching
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
	MaxMatches   int              // For FindAll, 0 = unlimited
	Downscale    float64          // Coarse pass scale in (0,1); 0 scans at full resolution
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.8,
	}
}

// Error types
var (
	ErrTemplateTooLarge = errors.New("template larger than search image")
	ErrInvalidImage     = errors.New("invalid image provided")
)

// FindTemplate finds the best placement of needle within haystack.
// Found is set when the best score reaches the threshold.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	if useCoarse(needle, config) {
		return findTemplateCoarse(haystack, needle, config)
	}

	area, ok := searchArea(haystack, needle, config)
	if !ok {
		return &MatchResult{Found: false}
	}

	return newScorer(haystack, needle, config.Method, area).best(area, config.Threshold)
}

// FindTemplateAll returns every placement scoring at or above the threshold,
// in row-major order (top to bottom, then left to right).
func FindTemplateAll(haystack, needle *image.RGBA, config *MatchConfig) []MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	if useCoarse(needle, config) {
		return findTemplateAllCoarse(haystack, needle, config)
	}

	area, ok := searchArea(haystack, needle, config)
	if !ok {
		return nil
	}

	return newScorer(haystack, needle, config.Method, area).all(area, config.Threshold, config.MaxMatches)
}

// searchArea returns the rectangle of valid top-left positions for needle
func searchArea(haystack, needle *image.RGBA, config *MatchConfig) (image.Rectangle, bool) {
	bounds := haystack.Bounds()
	if config.SearchRegion != nil {
		bounds = config.SearchRegion.Intersect(bounds)
	}

	needleWidth := needle.Bounds().Dx()
	needleHeight := needle.Bounds().Dy()
	if needleWidth == 0 || needleHeight == 0 || bounds.Empty() {
		return image.Rectangle{}, false
	}

	maxX := bounds.Max.X - needleWidth
	maxY := bounds.Max.Y - needleHeight
	if maxX < bounds.Min.X || maxY < bounds.Min.Y {
		// Template doesn't fit in search region
		return image.Rectangle{}, false
	}

	return image.Rect(bounds.Min.X, bounds.Min.Y, maxX+1, maxY+1), true
}

// scorer evaluates one needle against haystack positions
type scorer struct {
	haystack *image.RGBA
	needle   *image.RGBA
	method   MatchMethod
	width    int
	height   int

	// NCC only
	integral *integralImage
	sumN     float64
	sumNN    float64
	count    float64
}

func newScorer(haystack, needle *image.RGBA, method MatchMethod, area image.Rectangle) *scorer {
	nb := needle.Bounds()
	s := &scorer{
		haystack: haystack,
		needle:   needle,
		method:   method,
		width:    nb.Dx(),
		height:   nb.Dy(),
	}

	if method == MatchMethodNCC {
		covered := image.Rect(area.Min.X, area.Min.Y, area.Max.X-1+s.width, area.Max.Y-1+s.height)
		s.integral = newIntegralImage(haystack, covered)
		s.sumN, s.sumNN = channelSums(needle)
		s.count = float64(s.width * s.height * 3)
	}

	return s
}

func (s *scorer) score(x, y int) float64 {
	switch s.method {
	case MatchMethodSAD:
		return matchSAD(s.haystack, s.needle, x, y, s.width, s.height)
	case MatchMethodNCC:
		return s.ncc(x, y)
	default:
		return matchSSD(s.haystack, s.needle, x, y, s.width, s.height)
	}
}

func (s *scorer) best(area image.Rectangle, threshold float64) *MatchResult {
	bestScore := 0.0
	bestLocation := area.Min
	found := false

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			score := s.score(x, y)
			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{X: x, Y: y}
				if score >= threshold {
					found = true
				}
			}
		}
	}

	return &MatchResult{
		Found:      found,
		Location:   bestLocation,
		Confidence: bestScore,
	}
}

func (s *scorer) all(area image.Rectangle, threshold float64, maxMatches int) []MatchResult {
	var results []MatchResult

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			score := s.score(x, y)
			if score < threshold || score <= 0 {
				continue
			}

			results = append(results, MatchResult{
				Found:      true,
				Location:   image.Point{X: x, Y: y},
				Confidence: score,
			})

			if maxMatches > 0 && len(results) >= maxMatches {
				return results
			}
		}
	}

	return results
}

// ncc is the correlation coefficient of the window at (x, y), clamped to [0, 1]
func (s *scorer) ncc(x, y int) float64 {
	sumH, sumHH := s.integral.window(x, y, s.width, s.height)

	var sumHN float64
	row := s.width * 4
	for ny := 0; ny < s.height; ny++ {
		hOff := s.haystack.PixOffset(x, y+ny)
		nOff := s.needle.PixOffset(s.needle.Rect.Min.X, s.needle.Rect.Min.Y+ny)
		h := s.haystack.Pix[hOff : hOff+row]
		n := s.needle.Pix[nOff : nOff+row]
		for i := 0; i < row; i += 4 {
			sumHN += float64(h[i])*float64(n[i]) +
				float64(h[i+1])*float64(n[i+1]) +
				float64(h[i+2])*float64(n[i+2])
		}
	}

	return correlation(sumH, sumHH, s.sumN, s.sumNN, sumHN, s.count)
}

func correlation(sumH, sumHH, sumN, sumNN, sumHN, count float64) float64 {
	varH := sumHH - (sumH * sumH / count)
	varN := sumNN - (sumN * sumN / count)

	// Flat windows carry no structure to correlate against
	if varH <= 1e-6*count || varN <= 1e-6*count {
		return 0
	}

	c := (sumHN - (sumH * sumN / count)) / math.Sqrt(varH*varN)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// integralImage holds summed-area tables of per-pixel RGB sums and squared sums
type integralImage struct {
	origin image.Point
	stride int
	sum    []float64
	sq     []float64
}

func newIntegralImage(img *image.RGBA, rect image.Rectangle) *integralImage {
	rect = rect.Intersect(img.Bounds())
	w, h := rect.Dx(), rect.Dy()

	ii := &integralImage{
		origin: rect.Min,
		stride: w + 1,
		sum:    make([]float64, (w+1)*(h+1)),
		sq:     make([]float64, (w+1)*(h+1)),
	}

	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		off := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		for x := 0; x < w; x++ {
			p := off + x*4
			r, g, b := float64(img.Pix[p]), float64(img.Pix[p+1]), float64(img.Pix[p+2])
			rowSum += r + g + b
			rowSq += r*r + g*g + b*b

			idx := (y+1)*ii.stride + x + 1
			ii.sum[idx] = ii.sum[idx-ii.stride] + rowSum
			ii.sq[idx] = ii.sq[idx-ii.stride] + rowSq
		}
	}

	return ii
}

// window returns the channel sum and squared sum of the w*h window at (x, y)
func (ii *integralImage) window(x, y, w, h int) (sum, sq float64) {
	x0 := x - ii.origin.X
	y0 := y - ii.origin.Y

	a := y0*ii.stride + x0
	b := a + w
	c := (y0+h)*ii.stride + x0
	d := c + w

	sum = ii.sum[d] - ii.sum[b] - ii.sum[c] + ii.sum[a]
	sq = ii.sq[d] - ii.sq[b] - ii.sq[c] + ii.sq[a]
	return sum, sq
}

func channelSums(img *image.RGBA) (sum, sq float64) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			p := off + x*4
			for c := 0; c < 3; c++ {
				v := float64(img.Pix[p+c])
				sum += v
				sq += v * v
			}
		}
	}
	return sum, sq
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func matchSAD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64

	for ny := 0; ny < height; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y+ny)
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4

			sad += uint64(abs(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(abs(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(abs(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

// matchSSD - Sum of Squared Differences (balanced)
func matchSSD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64

	for ny := 0; ny < height; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y+ny)
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4

			dr := int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])
			dg := int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])

			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
