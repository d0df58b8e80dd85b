//go:build !windows

package controller

// ViGEmDevice is only available on Windows
type ViGEmDevice struct{}

// NewViGEmDevice is only available on Windows
func NewViGEmDevice() *ViGEmDevice {
	return &ViGEmDevice{}
}

func (d *ViGEmDevice) Connect() error { return ErrUnsupported }

func (d *ViGEmDevice) Disconnect() error { return nil }

func (d *ViGEmDevice) Update(State) error { return ErrUnsupported }
