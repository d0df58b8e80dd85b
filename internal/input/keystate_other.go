//go:build !windows

package input

type noKeyState struct{}

// NewKeyState reports every key as released; physical key state is only
// readable on Windows
func NewKeyState() KeyState {
	return noKeyState{}
}

func (noKeyState) IsKeyPressed(string) bool { return false }
