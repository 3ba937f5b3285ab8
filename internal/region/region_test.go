package region

import (
	"testing"

	"deedles.dev/ximage/geom"
)

func TestAddMerges(t *testing.T) {
	var r Region
	r.Add(geom.Rt(0, 0, 10, 10))
	r.Add(geom.Rt(2, 2, 5, 5))
	if len(r.Rects()) != 1 {
		t.Fatalf("contained rect was added: %v", r.Rects())
	}

	r.Add(geom.Rt(-5, -5, 20, 20))
	if len(r.Rects()) != 1 {
		t.Fatalf("containing rect did not replace: %v", r.Rects())
	}

	r.Add(geom.Rt(5, 5, 5, 20))
	if len(r.Rects()) != 1 {
		t.Fatalf("empty rect was added: %v", r.Rects())
	}
}

func TestContains(t *testing.T) {
	var r Region
	r.Add(geom.Rt(0, 0, 10, 10))
	r.Add(geom.Rt(20, 0, 30, 10))

	tests := []struct {
		p    geom.Point[int]
		want bool
	}{
		{geom.Pt(0, 0), true},
		{geom.Pt(9, 9), true},
		{geom.Pt(10, 5), false},
		{geom.Pt(15, 5), false},
		{geom.Pt(25, 5), true},
	}
	for _, test := range tests {
		if got := r.Contains(test.p); got != test.want {
			t.Errorf("Contains(%v) = %v, want %v", test.p, got, test.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	a := Rect(geom.Rt(0, 0, 10, 10))
	b := Rect(geom.Rt(5, 5, 15, 15))

	i := a.Intersect(b)
	if ext := i.Extents(); ext != geom.Rt(5, 5, 10, 10) {
		t.Fatalf("got %v", ext)
	}

	if !a.Intersect(Region{}).Empty() {
		t.Fatal("intersection with empty region is not empty")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	a := Rect(geom.Rt(0, 0, 10, 10))
	b := a.Copy()
	b.Clear()
	if a.Empty() {
		t.Fatal("clearing copy cleared original")
	}
}

func TestScale(t *testing.T) {
	r := Rect(geom.Rt(1, 1, 3, 3)).Scale(1.5)
	if ext := r.Extents(); ext != geom.Rt(1, 1, 5, 5) {
		t.Fatalf("got %v", ext)
	}
}

func TestTransformRect(t *testing.T) {
	box := geom.Rt(0, 0, 10, 20)
	tests := []struct {
		t    Transform
		want geom.Rect[int]
	}{
		{TransformNormal, geom.Rt(0, 0, 10, 20)},
		{Transform90, geom.Rt(180, 0, 200, 10)},
		{Transform180, geom.Rt(90, 180, 100, 200)},
		{Transform270, geom.Rt(0, 90, 20, 100)},
		{TransformFlipped, geom.Rt(90, 0, 100, 20)},
		{TransformFlipped180, geom.Rt(0, 180, 10, 200)},
	}
	for _, test := range tests {
		if got := TransformRect(box, test.t, 100, 200); got != test.want {
			t.Errorf("transform %v: got %v, want %v", test.t, got, test.want)
		}
	}
}

func TestInvert(t *testing.T) {
	tests := map[Transform]Transform{
		TransformNormal:     TransformNormal,
		Transform90:         Transform270,
		Transform180:        Transform180,
		Transform270:        Transform90,
		TransformFlipped90:  TransformFlipped90,
		TransformFlipped270: TransformFlipped270,
	}
	for in, want := range tests {
		if got := in.Invert(); got != want {
			t.Errorf("%v.Invert() = %v, want %v", in, got, want)
		}
	}
}
