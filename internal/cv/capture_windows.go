//go:build windows

package cv

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procFindWindowW            = user32.NewProc("FindWindowW")
	procGetDC                  = user32.NewProc("GetDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procGetClientRect          = user32.NewProc("GetClientRect")
	procClientToScreen         = user32.NewProc("ClientToScreen")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// WindowCapture grabs the client area of one game window through GDI
type WindowCapture struct {
	hwnd   uintptr
	width  int
	height int
	mu     sync.Mutex
}

// FindWindow looks up a top-level window by its exact title
func FindWindow(title string) (uintptr, error) {
	ptr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, fmt.Errorf("invalid window title: %w", err)
	}
	hwnd, _, callErr := procFindWindowW.Call(0, uintptr(unsafe.Pointer(ptr)))
	if hwnd == 0 {
		return 0, fmt.Errorf("window %q not found: %v", title, callErr)
	}
	return hwnd, nil
}

// NewWindowCaptureByTitle finds the window titled title and captures it
func NewWindowCaptureByTitle(title string) (*WindowCapture, error) {
	hwnd, err := FindWindow(title)
	if err != nil {
		return nil, err
	}
	return NewWindowCapture(hwnd)
}

// NewWindowCapture creates a new window capture handler
func NewWindowCapture(hwnd uintptr) (*WindowCapture, error) {
	if hwnd == 0 {
		return nil, fmt.Errorf("invalid window handle")
	}

	wc := &WindowCapture{hwnd: hwnd}
	if err := wc.UpdateDimensions(); err != nil {
		return nil, err
	}
	return wc, nil
}

// Origin returns the screen position of the client area's top-left corner.
// Detections are relative to the client area, clicks are in screen space.
func (wc *WindowCapture) Origin() image.Point {
	var p point
	procClientToScreen.Call(wc.hwnd, uintptr(unsafe.Pointer(&p)))
	return image.Point{X: int(p.X), Y: int(p.Y)}
}

// CaptureFrame captures the current window frame as an image
func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	hdcWindow, _, err := procGetDC.Call(wc.hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("failed to get window DC: %v", err)
	}
	defer procReleaseDC.Call(wc.hwnd, hdcWindow)

	hdcMem, _, err := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("failed to create compatible DC: %v", err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(wc.width), uintptr(wc.height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("failed to create compatible bitmap: %v", err)
	}
	defer procDeleteObject.Call(hBitmap)

	procSelectObject.Call(hdcMem, hBitmap)

	ret, _, err := procBitBlt.Call(
		hdcMem,
		0, 0,
		uintptr(wc.width), uintptr(wc.height),
		hdcWindow,
		0, 0,
		srcCopy,
	)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed: %v", err)
	}

	var bi bitmapInfo
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.Width = int32(wc.width)
	bi.Header.Height = -int32(wc.height) // top-down
	bi.Header.Planes = 1
	bi.Header.BitCount = 32
	bi.Header.Compression = biRGB

	img := image.NewRGBA(image.Rect(0, 0, wc.width, wc.height))
	ret, _, err = procGetDIBits.Call(
		hdcMem,
		hBitmap,
		0,
		uintptr(wc.height),
		uintptr(unsafe.Pointer(&img.Pix[0])),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed: %v", err)
	}

	// BGRA -> RGBA in place
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xff
	}

	return img, nil
}

// GetDimensions returns the window dimensions
func (wc *WindowCapture) GetDimensions() (width, height int) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.width, wc.height
}

// UpdateDimensions refreshes window dimensions after a resize
func (wc *WindowCapture) UpdateDimensions() error {
	var r rect
	ret, _, err := procGetClientRect.Call(wc.hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return fmt.Errorf("failed to get client rect: %v", err)
	}

	width := int(r.Right - r.Left)
	height := int(r.Bottom - r.Top)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid window dimensions: %dx%d", width, height)
	}

	wc.mu.Lock()
	wc.width, wc.height = width, height
	wc.mu.Unlock()
	return nil
}
