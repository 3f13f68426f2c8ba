package view

import (
	"math"
	"testing"

	"warehouse-viz/internal/common"
)

const eps = 1e-9

func TestTopDownDropsHeight(t *testing.T) {
	p := NewTopDownProjector()
	got := p.Project(common.NewVector(3, 7, 4))
	if got != (Point{3, 4}) {
		t.Fatalf("Project = %+v", got)
	}
}

func TestIsoProjection(t *testing.T) {
	p := NewIsoProjector()
	c := math.Cos(math.Pi / 6)

	cases := []struct {
		in   common.Vector
		want Point
	}{
		{common.NewVector(0, 0, 0), Point{0, 0}},
		{common.NewVector(1, 0, 0), Point{c, 0.5}},
		{common.NewVector(0, 0, 1), Point{-c, 0.5}},
		{common.NewVector(0, 1, 0), Point{0, -1}},
	}
	for _, tc := range cases {
		got := p.Project(tc.in)
		if math.Abs(got.X-tc.want.X) > eps || math.Abs(got.Y-tc.want.Y) > eps {
			t.Fatalf("Project(%v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestProjectAllMatchesProject(t *testing.T) {
	p := NewIsoProjector()
	vs := []common.Vector{
		common.NewVector(1, 2, 3),
		common.NewVector(-4, 0, 9),
		common.NewVector(10, 1, 10),
	}
	all := p.ProjectAll(vs)
	for i, v := range vs {
		one := p.Project(v)
		if math.Abs(all[i].X-one.X) > eps || math.Abs(all[i].Y-one.Y) > eps {
			t.Fatalf("point %d: ProjectAll %+v, Project %+v", i, all[i], one)
		}
	}
	if p.ProjectAll(nil) != nil {
		t.Fatalf("empty input should give nil")
	}
}

func TestViewportFitsAndCentres(t *testing.T) {
	v := &Viewport{Width: 200, Height: 100, Padding: 10}
	v.Fit([]Point{{0, 0}, {10, 10}})

	if v.Scale() != 8 {
		t.Fatalf("scale = %v, want 8", v.Scale())
	}
	x, y := v.ToScreen(Point{5, 5})
	if x != 100 || y != 50 {
		t.Fatalf("centre maps to (%v, %v)", x, y)
	}
	x0, y0 := v.ToScreen(Point{0, 0})
	x1, y1 := v.ToScreen(Point{10, 10})
	if y0 < 10 || y1 > 90 || x0 < 10 || x1 > 190 {
		t.Fatalf("corners outside padding: (%v,%v) (%v,%v)", x0, y0, x1, y1)
	}
}

func TestViewportDegenerate(t *testing.T) {
	v := &Viewport{Width: 100, Height: 100}
	v.Fit(nil)
	if x, y := v.ToScreen(Point{}); x != 50 || y != 50 {
		t.Fatalf("empty fit: (%v, %v)", x, y)
	}
	v.Fit([]Point{{3, 3}})
	if x, y := v.ToScreen(Point{3, 3}); x != 50 || y != 50 {
		t.Fatalf("single point: (%v, %v)", x, y)
	}
}
