package compositor

import "strings"

// Modifiers is a mask of keyboard modifiers, laid out the same way as
// wlroots' keyboard modifier mask.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModCaps
	ModCtrl
	ModAlt
	Mod2
	Mod3
	ModLogo
	Mod5
)

var modifierNames = map[string]Modifiers{
	"SHIFT":   ModShift,
	"CAPS":    ModCaps,
	"CTRL":    ModCtrl,
	"CONTROL": ModCtrl,
	"ALT":     ModAlt,
	"MOD1":    ModAlt,
	"MOD2":    Mod2,
	"MOD3":    Mod3,
	"SUPER":   ModLogo,
	"WIN":     ModLogo,
	"LOGO":    ModLogo,
	"MOD4":    ModLogo,
	"MOD5":    Mod5,
}

// ParseModifiers converts modifier names, such as "SUPER" or "shift",
// into a mask. Unknown names are ignored.
func ParseModifiers(names []string) Modifiers {
	var mods Modifiers
	for _, name := range names {
		mods |= modifierNames[strings.ToUpper(name)]
	}
	return mods
}
