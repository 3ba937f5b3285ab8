package main

import "image/color"

// WindowBorder is the width of the border drawn around tiled and
// floating windows.
const WindowBorder = 2

// cursorSize is the size of the xcursor theme at scale 1.
const cursorSize = 24

var (
	ColorActiveBorder   = color.NRGBA{0x50, 0xA1, 0xAD, 0xFF}
	ColorInactiveBorder = color.NRGBA{0x44, 0x44, 0x44, 0xFF}
)
