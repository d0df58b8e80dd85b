package input

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
)

// ScreenCapturer grabs the whole primary display with robotgo
type ScreenCapturer struct{}

// NewScreenCapturer creates a full-screen capturer
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{}
}

// CaptureFrame implements cv.Capturer
func (s *ScreenCapturer) CaptureFrame() (*image.RGBA, error) {
	bit := robotgo.CaptureScreen()
	if bit == nil {
		return nil, fmt.Errorf("screen capture returned no bitmap")
	}
	defer robotgo.FreeBitmap(bit)

	img := robotgo.ToImage(bit)
	if img == nil {
		return nil, fmt.Errorf("failed to convert screen bitmap")
	}
	return cv.ToRGBA(img), nil
}

// GetDimensions implements cv.Capturer
func (s *ScreenCapturer) GetDimensions() (width, height int) {
	return robotgo.GetScreenSize()
}

var _ cv.Capturer = (*ScreenCapturer)(nil)
