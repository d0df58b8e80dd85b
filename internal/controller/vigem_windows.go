//go:build windows

package controller

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ViGEmClient.dll ships with the ViGEmBus driver
var (
	vigemClient          = windows.NewLazyDLL("ViGEmClient.dll")
	procVigemAlloc       = vigemClient.NewProc("vigem_alloc")
	procVigemFree        = vigemClient.NewProc("vigem_free")
	procVigemConnect     = vigemClient.NewProc("vigem_connect")
	procVigemDisconnect  = vigemClient.NewProc("vigem_disconnect")
	procTargetX360Alloc  = vigemClient.NewProc("vigem_target_x360_alloc")
	procTargetFree       = vigemClient.NewProc("vigem_target_free")
	procTargetAdd        = vigemClient.NewProc("vigem_target_add")
	procTargetRemove     = vigemClient.NewProc("vigem_target_remove")
	procTargetX360Update = vigemClient.NewProc("vigem_target_x360_update")
)

const vigemErrorNone = 0x20000000

// xusbReport mirrors XUSB_REPORT
type xusbReport struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// ViGEmDevice is an emulated Xbox 360 pad on the ViGEmBus driver
type ViGEmDevice struct {
	client uintptr
	target uintptr
	mu     sync.Mutex
}

// NewViGEmDevice creates an unconnected device
func NewViGEmDevice() *ViGEmDevice {
	return &ViGEmDevice{}
}

// Connect plugs a virtual pad into the bus; connecting twice is a no-op
func (d *ViGEmDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target != 0 {
		return nil
	}

	if err := vigemClient.Load(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	client, _, _ := procVigemAlloc.Call()
	if client == 0 {
		return fmt.Errorf("vigem_alloc failed")
	}

	if ret, _, _ := procVigemConnect.Call(client); ret != vigemErrorNone {
		procVigemFree.Call(client)
		return fmt.Errorf("failed to connect to ViGEmBus: 0x%08X", ret)
	}

	target, _, _ := procTargetX360Alloc.Call()
	if target == 0 {
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return fmt.Errorf("vigem_target_x360_alloc failed")
	}

	if ret, _, _ := procTargetAdd.Call(client, target); ret != vigemErrorNone {
		procTargetFree.Call(target)
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return fmt.Errorf("failed to add virtual pad: 0x%08X", ret)
	}

	d.client, d.target = client, target
	return nil
}

// Disconnect unplugs the pad; disconnecting twice is a no-op
func (d *ViGEmDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target == 0 {
		return nil
	}

	procTargetRemove.Call(d.client, d.target)
	procTargetFree.Call(d.target)
	procVigemDisconnect.Call(d.client)
	procVigemFree.Call(d.client)
	d.client, d.target = 0, 0
	return nil
}

// Update sends a full state report
func (d *ViGEmDevice) Update(s State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target == 0 {
		return ErrNotConnected
	}

	report := xusbReport{
		Buttons:      uint16(s.Buttons),
		LeftTrigger:  s.LeftTrigger,
		RightTrigger: s.RightTrigger,
		ThumbLX:      s.LeftStick.X,
		ThumbLY:      s.LeftStick.Y,
		ThumbRX:      s.RightStick.X,
		ThumbRY:      s.RightStick.Y,
	}

	// The 12-byte report is passed by value, which the x64 ABI lowers to a pointer
	ret, _, _ := procTargetX360Update.Call(d.client, d.target, uintptr(unsafe.Pointer(&report)))
	if ret != vigemErrorNone {
		return fmt.Errorf("failed to update virtual pad: 0x%08X", ret)
	}
	return nil
}
