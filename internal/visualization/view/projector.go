// Package view maps world positions onto the 2D screen: a linear projection
// of the 3D world followed by a fit-to-window viewport.
package view

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"warehouse-viz/internal/common"
)

// Point is a projected 2D position.
type Point struct {
	X, Y float64
}

// Projector maps world positions onto a 2D plane.
type Projector interface {
	// Name identifies the projection in the debug overlay.
	Name() string
	// Project maps one world position.
	Project(v common.Vector) Point
	// ProjectAll maps many positions at once.
	ProjectAll(vs []common.Vector) []Point
}

// LinearProjector applies a fixed 2x3 matrix to world positions.
type LinearProjector struct {
	name string
	m    *mat.Dense
}

// NewLinearProjector wraps a 2x3 row-major projection matrix.
func NewLinearProjector(name string, rows [6]float64) *LinearProjector {
	return &LinearProjector{name: name, m: mat.NewDense(2, 3, rows[:])}
}

// NewIsoProjector returns the classic isometric view: the ground plane is
// rotated 45 degrees and tilted so that +Y (up) points up the screen.
func NewIsoProjector() *LinearProjector {
	c := math.Cos(math.Pi / 6)
	s := math.Sin(math.Pi / 6)
	return NewLinearProjector("isometric", [6]float64{
		c, 0, -c,
		s, -1, s,
	})
}

// NewTopDownProjector looks straight down the Y axis; X goes right and Z goes
// down the screen.
func NewTopDownProjector() *LinearProjector {
	return NewLinearProjector("top-down", [6]float64{
		1, 0, 0,
		0, 0, 1,
	})
}

func (p *LinearProjector) Name() string { return p.name }

func (p *LinearProjector) Project(v common.Vector) Point {
	return Point{
		X: p.m.At(0, 0)*v.X + p.m.At(0, 1)*v.Y + p.m.At(0, 2)*v.Z,
		Y: p.m.At(1, 0)*v.X + p.m.At(1, 1)*v.Y + p.m.At(1, 2)*v.Z,
	}
}

// ProjectAll multiplies the stacked positions by the projection matrix.
func (p *LinearProjector) ProjectAll(vs []common.Vector) []Point {
	if len(vs) == 0 {
		return nil
	}
	data := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		data = append(data, v.X, v.Y, v.Z)
	}
	world := mat.NewDense(len(vs), 3, data)
	var screen mat.Dense
	screen.Mul(world, p.m.T())

	out := make([]Point, len(vs))
	for i := range out {
		out[i] = Point{X: screen.At(i, 0), Y: screen.At(i, 1)}
	}
	return out
}

func (p *LinearProjector) String() string {
	return fmt.Sprintf("%s %v", p.name, mat.Formatted(p.m, mat.Squeeze()))
}
