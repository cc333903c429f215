package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// Mouse trigger tokens accepted by the capture_hotkey grammar.
const (
	MouseMiddle = "middle"
	MouseBack   = "mouse4"
	MouseFwd    = "mouse5"
)

var ErrEmptyBinding = errors.New("empty hotkey binding")

// Binding is a normalized capture trigger: zero or more modifiers plus a
// trigger that is either a keyboard key or a mouse button token. A combo of
// bare modifiers ("ctrl+shift") is legal; the last modifier doubles as the
// trigger key.
type Binding struct {
	Ctrl    bool
	Alt     bool
	Shift   bool
	Trigger string
}

// Parse parses the capture_hotkey grammar: '+'-joined, case-insensitive,
// modifiers in any order, e.g. "ctrl+shift", "alt+q", "ctrl+mouse4".
func Parse(raw string) (Binding, error) {
	parts := strings.Split(strings.ToLower(raw), "+")

	var names []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	if len(names) == 0 {
		return Binding{}, ErrEmptyBinding
	}

	var b Binding
	for i, name := range names {
		last := i == len(names)-1
		switch name {
		case "ctrl", "control":
			if last && b.Trigger == "" && (b.Ctrl || b.Alt || b.Shift) {
				b.Trigger = "ctrl"
			} else {
				b.Ctrl = true
			}
		case "alt":
			if last && b.Trigger == "" && (b.Ctrl || b.Alt || b.Shift) {
				b.Trigger = "alt"
			} else {
				b.Alt = true
			}
		case "shift":
			if last && b.Trigger == "" && (b.Ctrl || b.Alt || b.Shift) {
				b.Trigger = "shift"
			} else {
				b.Shift = true
			}
		default:
			if !last {
				return Binding{}, fmt.Errorf("unknown modifier %q in %q", name, raw)
			}
			b.Trigger = name
		}
	}

	if b.Trigger == "" {
		// A single bare modifier ("shift") triggers on that key alone.
		switch {
		case b.Shift:
			b.Shift = false
			b.Trigger = "shift"
		case b.Alt:
			b.Alt = false
			b.Trigger = "alt"
		case b.Ctrl:
			b.Ctrl = false
			b.Trigger = "ctrl"
		}
	}

	if !b.IsMouse() && len(keyRawcodes(b.Trigger)) == 0 {
		return Binding{}, fmt.Errorf("unknown trigger key %q in %q", b.Trigger, raw)
	}

	return b, nil
}

// String renders the canonical form: ctrl, alt, shift in fixed order, then
// the trigger, lowercase and '+'-joined. Parse(b.String()) is stable.
func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "ctrl")
	}
	if b.Alt {
		parts = append(parts, "alt")
	}
	if b.Shift {
		parts = append(parts, "shift")
	}
	parts = append(parts, b.Trigger)
	return strings.Join(parts, "+")
}

// IsMouse reports whether the trigger is a mouse button token.
func (b Binding) IsMouse() bool {
	switch b.Trigger {
	case MouseMiddle, MouseBack, MouseFwd:
		return true
	}
	return false
}

// MouseButton returns the hook button number for a mouse trigger, 0 otherwise.
func (b Binding) MouseButton() uint16 {
	switch b.Trigger {
	case MouseMiddle:
		return 3
	case MouseBack:
		return 4
	case MouseFwd:
		return 5
	}
	return 0
}

// modifierRawcodes lists the rawcode groups the binding's modifiers require;
// for keyboard triggers the trigger's own rawcodes are appended by the
// listener.
func (b Binding) modifierRawcodes() [][]uint16 {
	var groups [][]uint16
	if b.Ctrl {
		groups = append(groups, keyRawcodes("ctrl"))
	}
	if b.Alt {
		groups = append(groups, keyRawcodes("alt"))
	}
	if b.Shift {
		groups = append(groups, keyRawcodes("shift"))
	}
	return groups
}

// keyRawcodes maps a key name to its Windows virtual-key rawcodes. Modifier
// keys return both left and right variants. Unknown names return nil.
func keyRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))

	if codes, ok := rawcodeTable[name]; ok {
		return codes
	}

	// Single letters and digits map directly onto their VK codes.
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 0x41}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 0x30}
		}
	}

	// Function keys f1..f24 occupy VK 0x70..0x87.
	if strings.HasPrefix(name, "f") {
		var n int
		if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(n-1) + 0x70}
		}
	}

	return nil
}

var rawcodeTable = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}
