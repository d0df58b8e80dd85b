// Package input injects keyboard and mouse events and reads physical key
// state. Keys are addressed by logical, case-insensitive names such as
// "space", "lctrl", "numpad1" or "mouse_left".
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Mouse button names accepted wherever a key name is
const (
	MouseLeft  = "mouse_left"
	MouseRight = "mouse_right"
)

// KeyState reports whether a physical key is currently held
type KeyState interface {
	IsKeyPressed(name string) bool
}

// keyInfo maps a logical key to the backend name and the Windows virtual-key code
type keyInfo struct {
	robot string
	vk    uint16
	mouse bool
}

var keyTable = buildKeyTable()

func buildKeyTable() map[string]keyInfo {
	t := make(map[string]keyInfo)

	for c := 'a'; c <= 'z'; c++ {
		t[string(c)] = keyInfo{robot: string(c), vk: uint16(0x41 + c - 'a')}
	}
	for d := 0; d <= 9; d++ {
		name := fmt.Sprint(d)
		t[name] = keyInfo{robot: name, vk: uint16(0x30 + d)}
		t["numpad"+name] = keyInfo{robot: "num" + name, vk: uint16(0x60 + d)}
	}
	for f := 1; f <= 12; f++ {
		name := fmt.Sprintf("f%d", f)
		t[name] = keyInfo{robot: name, vk: uint16(0x6F + f)}
	}

	named := map[string]keyInfo{
		"space":     {robot: "space", vk: 0x20},
		"enter":     {robot: "enter", vk: 0x0D},
		"escape":    {robot: "esc", vk: 0x1B},
		"tab":       {robot: "tab", vk: 0x09},
		"backspace": {robot: "backspace", vk: 0x08},
		"capslock":  {robot: "capslock", vk: 0x14},
		"shift":     {robot: "shift", vk: 0x10},
		"lshift":    {robot: "lshift", vk: 0xA0},
		"rshift":    {robot: "rshift", vk: 0xA1},
		"ctrl":      {robot: "ctrl", vk: 0x11},
		"lctrl":     {robot: "lctrl", vk: 0xA2},
		"rctrl":     {robot: "rctrl", vk: 0xA3},
		"alt":       {robot: "alt", vk: 0x12},
		"lalt":      {robot: "lalt", vk: 0xA4},
		"ralt":      {robot: "ralt", vk: 0xA5},
		"tilde":     {robot: "`", vk: 0xC0},
		"up":        {robot: "up", vk: 0x26},
		"down":      {robot: "down", vk: 0x28},
		"left":      {robot: "left", vk: 0x25},
		"right":     {robot: "right", vk: 0x27},
		MouseLeft:   {robot: "left", vk: 0x01, mouse: true},
		MouseRight:  {robot: "right", vk: 0x02, mouse: true},
	}
	for name, k := range named {
		t[name] = k
	}

	aliases := map[string]string{
		"return": "enter",
		"esc":    "escape",
		"`":      "tilde",
	}
	for alias, name := range aliases {
		t[alias] = t[name]
	}
	return t
}

func lookup(name string) (keyInfo, bool) {
	k, ok := keyTable[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// IsKnownKey reports whether name is a recognised key or mouse button
func IsKnownKey(name string) bool {
	_, ok := lookup(name)
	return ok
}

// KeyNames lists every recognised name, sorted
func KeyNames() []string {
	names := make([]string, 0, len(keyTable))
	for name := range keyTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
