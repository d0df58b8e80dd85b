package cv

import (
	"errors"
	"image"
	"testing"
)

// manaScene builds a frame plus references that either appear in it or not
type manaScene struct {
	frame *image.RGBA
	seed  int64
}

func newManaScene() *manaScene {
	return &manaScene{frame: noiseFrame(200, 120, 51), seed: 100}
}

// present returns a reference cropped from the frame at (x, y)
func (s *manaScene) present(name string, x, y int) Reference {
	return ref(name, CardUnknown, crop(s.frame, image.Rect(x, y, x+16, y+16)))
}

// absent returns a reference that does not occur in the frame
func (s *manaScene) absent(name string) Reference {
	s.seed++
	return ref(name, CardUnknown, noiseFrame(16, 16, s.seed))
}

func TestResourceCascade(t *testing.T) {
	scene := newManaScene()

	tests := []struct {
		name     string
		refs     func() refMap
		wantZero bool
		wantLow  bool
		wantConf float64
	}{
		{
			name: "zero",
			refs: func() refMap {
				return refMap{
					RefManaZero:     scene.present(RefManaZero, 150, 90),
					RefManaOrbEmpty: scene.present(RefManaOrbEmpty, 10, 10),
				}
			},
			wantZero: true,
			wantLow:  true,
		},
		{
			name: "empty orb",
			refs: func() refMap {
				return refMap{
					RefManaZero:     scene.absent(RefManaZero),
					RefManaOrbEmpty: scene.present(RefManaOrbEmpty, 10, 10),
				}
			},
			wantLow: true,
		},
		{
			name: "low digit",
			refs: func() refMap {
				return refMap{
					RefManaZero:     scene.absent(RefManaZero),
					RefManaOrbEmpty: scene.absent(RefManaOrbEmpty),
					"mana_digit_3":  scene.present("mana_digit_3", 60, 40),
				}
			},
			wantLow:  true,
			wantConf: digitStageConfidence,
		},
		{
			name: "high digit ignored",
			refs: func() refMap {
				return refMap{
					"mana_digit_7": scene.present("mana_digit_7", 60, 40),
				}
			},
		},
		{
			name: "full orb only",
			refs: func() refMap {
				return refMap{
					RefManaOrbEmpty: scene.absent(RefManaOrbEmpty),
					RefManaOrbFull:  scene.present(RefManaOrbFull, 100, 20),
				}
			},
		},
		{
			name: "no references",
			refs: func() refMap { return refMap{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewResourceDetector(&staticCapturer{frame: scene.frame}, tt.refs(), DefaultResourceThresholds())
			status, err := detector.CheckStatus()
			if err != nil {
				t.Fatalf("CheckStatus failed: %v", err)
			}

			if status.Zero != tt.wantZero || status.Low != tt.wantLow {
				t.Fatalf("Expected zero=%v low=%v, got %+v", tt.wantZero, tt.wantLow, status)
			}
			if status.Zero && !status.Low {
				t.Error("Zero must imply low")
			}
			if tt.wantConf > 0 && status.Confidence != tt.wantConf {
				t.Errorf("Expected confidence %.2f, got %.2f", tt.wantConf, status.Confidence)
			}
		})
	}
}

func TestResourceZeroRegion(t *testing.T) {
	scene := newManaScene()
	refs := refMap{RefManaZero: scene.present(RefManaZero, 150, 90)}
	detector := NewResourceDetector(&staticCapturer{frame: scene.frame}, refs, DefaultResourceThresholds())

	if _, ok := detector.LastRegion(); ok {
		t.Fatal("LastRegion should be empty before a zero reading")
	}

	status := detector.Check(scene.frame)
	if status.Region == nil || *status.Region != RegionFromBox(150, 90, 16, 16) {
		t.Fatalf("Unexpected region: %+v", status.Region)
	}
	if status.String() != "zero" {
		t.Errorf("Expected zero status, got %s", status)
	}

	region, ok := detector.LastRegion()
	if !ok || region != RegionFromBox(150, 90, 16, 16) {
		t.Errorf("LastRegion = %v, %v", region, ok)
	}
}

func TestResourceFullness(t *testing.T) {
	scene := newManaScene()

	tests := []struct {
		name   string
		refs   refMap
		want   float64
		wantOK bool
	}{
		{
			name: "both present",
			refs: refMap{
				RefManaOrbFull:  scene.present(RefManaOrbFull, 100, 20),
				RefManaOrbEmpty: scene.present(RefManaOrbEmpty, 10, 10),
			},
			want:   0.5,
			wantOK: true,
		},
		{
			name: "only full",
			refs: refMap{
				RefManaOrbFull:  scene.present(RefManaOrbFull, 100, 20),
				RefManaOrbEmpty: scene.absent(RefManaOrbEmpty),
			},
			want:   onlyFullFullness,
			wantOK: true,
		},
		{
			name: "only empty",
			refs: refMap{
				RefManaOrbFull:  scene.absent(RefManaOrbFull),
				RefManaOrbEmpty: scene.present(RefManaOrbEmpty, 10, 10),
			},
			want:   onlyEmptyFullness,
			wantOK: true,
		},
		{
			name: "neither",
			refs: refMap{
				RefManaOrbFull:  scene.absent(RefManaOrbFull),
				RefManaOrbEmpty: scene.absent(RefManaOrbEmpty),
			},
		},
		{
			name: "full reference missing",
			refs: refMap{
				RefManaOrbEmpty: scene.present(RefManaOrbEmpty, 10, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewResourceDetector(&staticCapturer{frame: scene.frame}, tt.refs, DefaultResourceThresholds())
			got, ok := detector.Fullness(scene.frame)
			if ok != tt.wantOK {
				t.Fatalf("Fullness ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got < tt.want-0.001 || got > tt.want+0.001) {
				t.Errorf("Fullness = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}

func TestResourceCaptureError(t *testing.T) {
	detector := NewResourceDetector(&staticCapturer{err: errors.New("no display")}, refMap{}, DefaultResourceThresholds())
	if _, err := detector.CheckStatus(); err == nil {
		t.Error("Expected capture error to propagate")
	}
}

func TestResourceDownscaledFullHD(t *testing.T) {
	if testing.Short() {
		t.Skip("full-frame scan")
	}
	frame := blockFrame(1920, 1080, 12, 52)
	refs := refMap{
		RefManaZero:     ref(RefManaZero, CardUnknown, crop(frame, image.Rect(480, 96, 528, 144))),
		RefManaOrbEmpty: ref(RefManaOrbEmpty, CardUnknown, blockFrame(48, 48, 12, 53)),
	}
	detector := NewResourceDetector(&staticCapturer{frame: frame}, refs, DefaultResourceThresholds()).
		WithDownscale(0.25)

	status, err := detector.CheckStatus()
	if err != nil {
		t.Fatalf("Failed to check status: %v", err)
	}
	if !status.Zero || !status.Low {
		t.Fatalf("Expected zero resource, got %+v", status)
	}
	region, ok := detector.LastRegion()
	if !ok || region.X1 != 480 || region.Y1 != 96 {
		t.Errorf("Expected zero indicator at (480,96), got %+v (ok=%v)", region, ok)
	}
}
