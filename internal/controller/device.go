package controller

import "errors"

var (
	// ErrUnsupported is returned when no virtual gamepad driver is available
	ErrUnsupported = errors.New("virtual gamepad not supported on this platform")
	// ErrNotConnected is returned when state is applied to a disconnected device
	ErrNotConnected = errors.New("controller not connected")
)

// Device is a virtual gamepad that accepts whole state snapshots
type Device interface {
	Connect() error
	Disconnect() error
	Update(State) error
}
