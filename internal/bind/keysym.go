package bind

import (
	"fmt"
	"strings"
)

// Keysym values from xkbcommon-keysyms.h.
var keysyms = map[string]uint32{
	"space":     0x0020,
	"return":    0xff0d,
	"enter":     0xff0d,
	"escape":    0xff1b,
	"tab":       0xff09,
	"backspace": 0xff08,
	"delete":    0xffff,
	"home":      0xff50,
	"left":      0xff51,
	"up":        0xff52,
	"right":     0xff53,
	"down":      0xff54,
	"end":       0xff57,
	"print":     0xff61,
	"minus":     0x002d,
	"equal":     0x003d,
	"comma":     0x002c,
	"period":    0x002e,
}

// Keysym converts a key name, such as "q", "Return" or "F5", into a
// keysym. Names are not case sensitive. It is the fallback for
// Options.Keysym and covers letters, digits, function keys and the
// names in keysyms. Anything else needs a real xkb lookup.
func Keysym(name string) (uint32, error) {
	lower := strings.ToLower(name)
	if sym, ok := keysyms[lower]; ok {
		return sym, nil
	}

	if len(lower) == 1 {
		switch c := lower[0]; {
		case (c >= 'a') && (c <= 'z'), (c >= '0') && (c <= '9'):
			return uint32(c), nil
		}
	}

	var n int
	if _, err := fmt.Sscanf(lower, "f%d", &n); (err == nil) && (n >= 1) && (n <= 24) {
		return 0xffbe + uint32(n-1), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// normalize maps upper-case letters to lower-case so that bindings
// match regardless of shift.
func normalize(sym uint32) uint32 {
	if (sym >= 'A') && (sym <= 'Z') {
		return sym + ('a' - 'A')
	}
	return sym
}
