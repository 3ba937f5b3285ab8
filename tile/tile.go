// Package tile lays out the windows of a workspace in tiles and moves
// floating windows that are being dragged.
package tile

import "deedles.dev/ximage/geom"

// split splits a rectangle in two around the provided point. The
// results are undefined if both the X and Y coordinates of the point
// are non-zero.
func split(r geom.Rect[float64], half geom.Point[float64]) (first, second geom.Rect[float64]) {
	first = geom.Rect[float64]{Min: r.Min, Max: r.Max.Sub(half)}
	second = geom.Rect[float64]{Min: r.Min.Add(half), Max: r.Max}
	return
}

// vsplit splits a rectangle in half vertically.
func vsplit(r geom.Rect[float64]) (left, right geom.Rect[float64]) {
	half := geom.Pt(r.Dx()/2, 0)
	return split(r, half)
}

// hsplit splits a rectangle in half horizontally.
func hsplit(r geom.Rect[float64]) (top, bottom geom.Rect[float64]) {
	half := geom.Pt(0, r.Dy()/2)
	return split(r, half)
}

// An Arranger produces n rectangles inside of r.
type Arranger func(r geom.Rect[float64], n int) []geom.Rect[float64]

// RightThenDown produces a series of n rectangles the union of which
// recomposes r. The rectangles are produced by splitting the
// right-most and then the bottom-most rectangles in half recursively.
// In other words,
//
//	RightThenDown(r, 4)
//
// will produce
//
//	------------
//	|    |     |
//	|    -------
//	|    |  |  |
//	------------
func RightThenDown(r geom.Rect[float64], n int) []geom.Rect[float64] {
	if n <= 0 {
		return nil
	}

	tiles := make([]geom.Rect[float64], n)
	tiles[0] = r

	split, next := vsplit, hsplit
	for i := 1; i < len(tiles); i++ {
		tiles[i-1], tiles[i] = split(tiles[i-1])
		split, next = next, split
	}

	return tiles
}

// TwoThirdsSidebar produces a layout where the first rectangle is
// two-thirds the width of r and the rest are stacked evenly in the
// remaining space.
func TwoThirdsSidebar(r geom.Rect[float64], n int) []geom.Rect[float64] {
	if n <= 1 {
		return RightThenDown(r, n)
	}

	w := 2 * r.Dx() / 3
	tiles := make([]geom.Rect[float64], n)
	tiles[0] = geom.Rect[float64]{Min: r.Min, Max: geom.Pt(r.Min.X+w, r.Max.Y)}
	rest := geom.Rect[float64]{Min: geom.Pt(r.Min.X+w, r.Min.Y), Max: r.Max}
	copy(tiles[1:], EvenVertically(rest, n-1))
	return tiles
}

// EvenVertically splits r into n rectangles stacked vertically, each
// with the full width of r.
func EvenVertically(r geom.Rect[float64], n int) []geom.Rect[float64] {
	if n <= 0 {
		return nil
	}

	tiles := make([]geom.Rect[float64], n)
	step := geom.Pt(0, r.Dy()/float64(n))
	c := geom.Rect[float64]{Min: r.Min, Max: geom.Pt(r.Max.X, r.Min.Y+step.Y)}
	for i := range tiles {
		tiles[i] = c
		c = c.Add(step)
	}
	tiles[n-1].Max.Y = r.Max.Y

	return tiles
}

// Arrangers maps the names accepted by the general.layout config key
// to arrangers.
var Arrangers = map[string]Arranger{
	"rightthendown": RightThenDown,
	"sidebar":       TwoThirdsSidebar,
	"stack":         EvenVertically,
}
