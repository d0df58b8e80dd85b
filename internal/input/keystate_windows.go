//go:build windows

package input

import "golang.org/x/sys/windows"

var procGetAsyncKeyState = windows.NewLazySystemDLL("user32.dll").NewProc("GetAsyncKeyState")

type asyncKeyState struct{}

// NewKeyState reads key state with GetAsyncKeyState
func NewKeyState() KeyState {
	return asyncKeyState{}
}

func (asyncKeyState) IsKeyPressed(name string) bool {
	k, ok := lookup(name)
	if !ok {
		return false
	}
	r, _, _ := procGetAsyncKeyState.Call(uintptr(k.vk))
	return r&0x8000 != 0
}
