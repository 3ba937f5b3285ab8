package region

import "deedles.dev/ximage/geom"

// Transform is an output transform, numbered the same way as
// wl_output.transform.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	if (t&Transform90 != 0) && (t&TransformFlipped == 0) {
		return t ^ Transform180
	}
	return t
}

// Rotated reports whether t swaps the width and height of whatever it
// is applied to.
func (t Transform) Rotated() bool {
	return t&Transform90 != 0
}

// TransformRect applies t to r, where r is inside of a w by h area.
func TransformRect(r geom.Rect[int], t Transform, w, h int) geom.Rect[int] {
	x, y := r.Min.X, r.Min.Y
	bw, bh := r.Dx(), r.Dy()

	switch t {
	case TransformNormal:
		return r
	case Transform90:
		x, y = h-r.Min.Y-bh, r.Min.X
	case Transform180:
		x, y = w-r.Min.X-bw, h-r.Min.Y-bh
	case Transform270:
		x, y = r.Min.Y, w-r.Min.X-bw
	case TransformFlipped:
		x, y = w-r.Min.X-bw, r.Min.Y
	case TransformFlipped90:
		x, y = r.Min.Y, r.Min.X
	case TransformFlipped180:
		x, y = r.Min.X, h-r.Min.Y-bh
	case TransformFlipped270:
		x, y = h-r.Min.Y-bh, w-r.Min.X-bw
	}

	if t.Rotated() {
		bw, bh = bh, bw
	}
	return geom.Rt(x, y, x+bw, y+bh)
}

// Transform returns the region with t applied to every rectangle,
// where the region is inside of a w by h area.
func (r Region) Transform(t Transform, w, h int) Region {
	var out Region
	for _, rect := range r.rects {
		out.Add(TransformRect(rect, t, w, h))
	}
	return out
}
