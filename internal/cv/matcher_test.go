package cv

import (
	"errors"
	"image"
	"testing"
)

func TestMatcherDetectOffsetsToScreen(t *testing.T) {
	frame := noiseFrame(160, 100, 61)
	spell := noiseFrame(16, 16, 62)
	paste(frame, spell, image.Point{X: 40, Y: 30})

	refs := refMap{
		"tempest":     ref("tempest", CardSpell, spell),
		"still_there": ref("still_there", CardUnknown, noiseFrame(16, 16, 63)),
	}
	capturer := &staticCapturer{frame: frame, origin: image.Point{X: 300, Y: 200}}
	matcher := NewMatcher(capturer, refs, 0.8)

	inFrame, err := matcher.DetectIn(frame)
	if err != nil {
		t.Fatalf("DetectIn failed: %v", err)
	}
	if len(inFrame) != 1 || inFrame[0].X != 40 || inFrame[0].Y != 30 {
		t.Fatalf("Unexpected frame detections: %v", inFrame)
	}

	onScreen, err := matcher.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(onScreen) != 1 || onScreen[0].X != 340 || onScreen[0].Y != 230 {
		t.Fatalf("Expected detection offset by window origin, got %v", onScreen)
	}
}

func TestMatcherLocate(t *testing.T) {
	frame := noiseFrame(160, 100, 64)
	prompt := crop(frame, image.Rect(80, 60, 112, 76))
	refs := refMap{"still_there": ref("still_there", CardUnknown, prompt)}
	matcher := NewMatcher(&staticCapturer{frame: frame}, refs, 0.8)

	d, ok, err := matcher.Locate("still_there")
	if err != nil || !ok {
		t.Fatalf("Locate failed: ok=%v err=%v", ok, err)
	}
	if d.Center() != (image.Point{X: 96, Y: 68}) {
		t.Errorf("Unexpected prompt center %v", d.Center())
	}

	visible, err := matcher.IsVisible("still_there")
	if err != nil || !visible {
		t.Errorf("IsVisible = %v, %v", visible, err)
	}

	if _, _, err := matcher.Locate("unknown"); err == nil {
		t.Error("Expected error for unregistered reference")
	}
}

func TestMatcherCaptureError(t *testing.T) {
	matcher := NewMatcher(&staticCapturer{err: errors.New("no display")}, refMap{}, 0.8)
	if _, err := matcher.Detect(); err == nil {
		t.Error("Expected capture error from Detect")
	}
	if _, _, err := matcher.Locate("x"); err == nil {
		t.Error("Expected capture error from Locate")
	}
}

func TestMatcherThreshold(t *testing.T) {
	matcher := NewMatcher(&staticCapturer{}, refMap{}, 0.8).WithDownscale(0.5)
	matcher.SetThreshold(0.9)
	if matcher.Threshold() != 0.9 {
		t.Errorf("Threshold() = %v, want 0.9", matcher.Threshold())
	}
	if len(matcher.options()) != 1 {
		t.Errorf("Expected downscale option to be set")
	}
}
