// Package region provides sets of integer rectangles used for damage
// tracking, input regions and pointer confinement.
package region

import "deedles.dev/ximage/geom"

// Region is a set of rectangles. The rectangles may overlap. The zero
// Region is empty.
type Region struct {
	rects []geom.Rect[int]
}

// Rect returns a region containing only r.
func Rect(r geom.Rect[int]) Region {
	var reg Region
	reg.Add(r)
	return reg
}

// Rects returns the rectangles that make up the region. The returned
// slice must not be modified.
func (r Region) Rects() []geom.Rect[int] {
	return r.rects
}

// Empty reports whether the region contains no points.
func (r Region) Empty() bool {
	return len(r.rects) == 0
}

// Add unions rect into the region.
func (r *Region) Add(rect geom.Rect[int]) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}

	for _, c := range r.rects {
		if rect.In(c) {
			return
		}
	}

	rects := make([]geom.Rect[int], 0, len(r.rects)+1)
	for _, c := range r.rects {
		if !c.In(rect) {
			rects = append(rects, c)
		}
	}
	r.rects = append(rects, rect)
}

// AddRegion unions every rectangle of o into the region.
func (r *Region) AddRegion(o Region) {
	for _, rect := range o.rects {
		r.Add(rect)
	}
}

// Clear empties the region.
func (r *Region) Clear() {
	r.rects = nil
}

// Copy returns a region that does not share storage with r.
func (r Region) Copy() Region {
	if r.Empty() {
		return Region{}
	}
	return Region{rects: append([]geom.Rect[int](nil), r.rects...)}
}

// Intersect returns the points that are in both r and o.
func (r Region) Intersect(o Region) Region {
	var out Region
	for _, a := range r.rects {
		for _, b := range o.rects {
			out.Add(a.Intersect(b))
		}
	}
	return out
}

// IntersectRect returns the points of r that are inside of rect.
func (r Region) IntersectRect(rect geom.Rect[int]) Region {
	return r.Intersect(Rect(rect))
}

// Contains reports whether p is inside of the region.
func (r Region) Contains(p geom.Point[int]) bool {
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Extents returns the smallest rectangle that contains the entire
// region.
func (r Region) Extents() (ext geom.Rect[int]) {
	for _, rect := range r.rects {
		ext = ext.Union(rect)
	}
	return ext
}

// Translate returns the region moved by p.
func (r Region) Translate(p geom.Point[int]) Region {
	out := Region{rects: make([]geom.Rect[int], 0, len(r.rects))}
	for _, rect := range r.rects {
		out.rects = append(out.rects, rect.Add(p))
	}
	return out
}

// Scale returns the region with every coordinate multiplied by s. The
// result is rounded outwards so that it covers at least the scaled
// area.
func (r Region) Scale(s float64) Region {
	if s == 1 {
		return r.Copy()
	}

	var out Region
	for _, rect := range r.rects {
		f := geom.RConv[float64](rect)
		out.Add(geom.Rt(
			floor(f.Min.X*s),
			floor(f.Min.Y*s),
			ceil(f.Max.X*s),
			ceil(f.Max.Y*s),
		))
	}
	return out
}

func floor(v float64) int {
	i := int(v)
	if float64(i) > v {
		i--
	}
	return i
}

func ceil(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}
