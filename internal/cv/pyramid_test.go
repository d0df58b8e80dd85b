package cv

import (
	"image"
	"math"
	"testing"
	"time"
)

func TestUseCoarse(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		downscale float64
		want      bool
	}{
		{"disabled", 48, 0, false},
		{"full scale", 48, 1, false},
		{"half scale", 48, 0.5, true},
		{"small needle searched at a larger scale", 12, 0.5, true},
		{"needle at minimum side", 8, 0.5, false},
		{"exactly minimum", 16, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needle := image.NewRGBA(image.Rect(0, 0, tt.size, tt.size))
			got := useCoarse(needle, &MatchConfig{Downscale: tt.downscale})
			if got != tt.want {
				t.Errorf("useCoarse(%d, %.2f) = %v, want %v", tt.size, tt.downscale, got, tt.want)
			}
		})
	}
}

func TestCoarseScale(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		downscale float64
		want      float64
		wantOK    bool
	}{
		{"configured scale", 96, 128, 0.25, 0.25, true},
		{"short side lifted", 90, 24, 0.25, 1.0 / 3, true},
		{"tiny needle", 6, 40, 0.25, 0, false},
		{"disabled", 96, 96, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needle := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got, ok := coarseScale(needle, &MatchConfig{Downscale: tt.downscale})
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("coarseScale(%dx%d, %.2f) = %.4f, %v; want %.4f, %v",
					tt.w, tt.h, tt.downscale, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindTemplateCoarseSmallNeedle(t *testing.T) {
	frame := blockFrame(192, 144, 12, 25)
	needle := crop(frame, image.Rect(48, 36, 72, 60))

	result := FindTemplate(frame, needle, &MatchConfig{Method: MatchMethodNCC, Threshold: 0.9, Downscale: 0.25})
	if !result.Found {
		t.Fatalf("Expected small needle to match through the lifted pass, got %+v", result)
	}
	if result.Location != (image.Point{X: 48, Y: 36}) {
		t.Errorf("Expected location (48,36), got %v", result.Location)
	}
}

// A full HD frame must be scanned well inside the early-detection poll budget
func TestFindDetectionsFullHDLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("full-frame scan")
	}
	frame := blockFrame(1920, 1080, 16, 26)
	spell := crop(frame, image.Rect(1200, 880, 1296, 1008))
	refs := []Reference{ref("tempest", CardSpell, spell)}

	start := time.Now()
	detections := FindDetections(frame, refs, 0.8, WithDownscale(0.25))
	elapsed := time.Since(start)

	if len(detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d: %v", len(detections), detections)
	}
	if detections[0].X != 1200 || detections[0].Y != 880 {
		t.Errorf("Expected detection at (1200,880), got (%d,%d)", detections[0].X, detections[0].Y)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Full HD scan took %v", elapsed)
	}
}

func BenchmarkFindDetectionsFullHD(b *testing.B) {
	frame := blockFrame(1920, 1080, 16, 26)
	refs := []Reference{ref("tempest", CardSpell, crop(frame, image.Rect(1200, 880, 1296, 1008)))}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindDetections(frame, refs, 0.8, WithDownscale(0.25))
	}
}

func TestFindTemplateCoarse(t *testing.T) {
	frame := blockFrame(192, 144, 8, 21)
	needle := crop(frame, image.Rect(48, 32, 96, 80))

	config := &MatchConfig{Method: MatchMethodNCC, Threshold: 0.95, Downscale: 0.5}
	result := FindTemplate(frame, needle, config)
	if !result.Found {
		t.Fatalf("Expected coarse-to-fine match, got %+v", result)
	}
	if result.Location != (image.Point{X: 48, Y: 32}) {
		t.Errorf("Expected location (48,32), got %v", result.Location)
	}
	if result.Confidence < 0.999 {
		t.Errorf("Refined confidence should be exact, got %.4f", result.Confidence)
	}
}

func TestFindTemplateCoarseMissing(t *testing.T) {
	frame := blockFrame(192, 144, 8, 22)
	needle := crop(blockFrame(64, 64, 8, 23), image.Rect(0, 0, 48, 48))

	result := FindTemplate(frame, needle, &MatchConfig{Method: MatchMethodNCC, Threshold: 0.95, Downscale: 0.5})
	if result.Found {
		t.Errorf("Expected no match for foreign needle, got %+v", result)
	}
}

func TestFindTemplateAllCoarse(t *testing.T) {
	frame := blockFrame(192, 144, 8, 24)
	needle := crop(frame, image.Rect(48, 32, 96, 80))
	paste(frame, needle, image.Point{X: 120, Y: 88})

	results := FindTemplateAll(frame, needle, &MatchConfig{Method: MatchMethodNCC, Threshold: 0.95, Downscale: 0.5})
	want := []image.Point{{X: 48, Y: 32}, {X: 120, Y: 88}}
	if len(results) != len(want) {
		t.Fatalf("Expected %d matches, got %d: %+v", len(want), len(results), results)
	}
	for i, p := range want {
		if results[i].Location != p {
			t.Errorf("Match %d: expected %v, got %v", i, p, results[i].Location)
		}
	}
}

func TestRefineAreaClipped(t *testing.T) {
	pass := &coarsePass{
		scale:    0.5,
		origin:   image.Point{X: 10, Y: 10},
		haystack: image.NewRGBA(image.Rect(0, 0, 20, 20)),
	}
	full := image.Rect(10, 10, 40, 40)

	area := pass.refineArea(image.Point{X: 0, Y: 0}, full)
	if area.Min != (image.Point{X: 10, Y: 10}) {
		t.Errorf("Expected area clipped to full search area, got %v", area)
	}
	if !area.In(full) {
		t.Errorf("Refine area %v escapes %v", area, full)
	}

	area = pass.refineArea(image.Point{X: 5, Y: 5}, full)
	want := image.Rect(17, 17, 24, 24)
	if area != want {
		t.Errorf("Expected %v, got %v", want, area)
	}
}
