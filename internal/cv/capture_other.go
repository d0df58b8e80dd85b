//go:build !windows

package cv

import "image"

// WindowCapture is only available on Windows
type WindowCapture struct{}

// FindWindow is only available on Windows
func FindWindow(title string) (uintptr, error) {
	return 0, ErrUnsupported
}

// NewWindowCaptureByTitle is only available on Windows
func NewWindowCaptureByTitle(title string) (*WindowCapture, error) {
	return nil, ErrUnsupported
}

// NewWindowCapture is only available on Windows
func NewWindowCapture(hwnd uintptr) (*WindowCapture, error) {
	return nil, ErrUnsupported
}

func (wc *WindowCapture) Origin() image.Point { return image.Point{} }

func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) { return nil, ErrUnsupported }

func (wc *WindowCapture) GetDimensions() (width, height int) { return 0, 0 }

func (wc *WindowCapture) UpdateDimensions() error { return ErrUnsupported }
