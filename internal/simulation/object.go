package simulation

import (
	"fmt"
	"math"

	"warehouse-viz/internal/snapshot"
)

// Cell is a grid coordinate. Y is the second grid axis; it maps to the world
// Z axis on the wire.
type Cell struct {
	X, Y int
}

// Neighbors returns the von Neumann neighbourhood of c that lies inside a
// width x height grid.
func (c Cell) Neighbors(width, height int) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range [...]Cell{{-1, 0}, {0, -1}, {0, 1}, {1, 0}} {
		n := Cell{c.X + d.X, c.Y + d.Y}
		if n.X >= 0 && n.X < width && n.Y >= 0 && n.Y < height {
			out = append(out, n)
		}
	}
	return out
}

// DistanceTo is the euclidean distance between two cells.
func (c Cell) DistanceTo(o Cell) float64 {
	dx, dy := float64(c.X-o.X), float64(c.Y-o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (c Cell) String() string { return fmt.Sprintf("(%d, %d)", c.X, c.Y) }

// Object is anything that occupies a grid cell.
type Object interface {
	// ID returns the identifier of the object within its tag.
	ID() int
	// Tag returns "robot" or an obstacle kind.
	Tag() string
	// Cell returns the current cell of the object.
	Cell() Cell
}

// Obstacle is a border cell, a shelf or a box. Only boxes ever change: a robot
// picks them up and they leave the grid.
type Obstacle struct {
	id       int
	kind     snapshot.Kind
	cell     Cell
	pickedUp bool
}

// NewObstacle creates an obstacle of the given kind.
func NewObstacle(id int, kind snapshot.Kind, cell Cell) *Obstacle {
	return &Obstacle{id: id, kind: kind, cell: cell}
}

func (o *Obstacle) ID() int { return o.id }
func (o *Obstacle) Tag() string { return string(o.kind) }
func (o *Obstacle) Cell() Cell { return o.cell }
func (o *Obstacle) Kind() snapshot.Kind { return o.kind }
func (o *Obstacle) PickedUp() bool { return o.pickedUp }

func (o *Obstacle) String() string {
	return fmt.Sprintf("Obstacle[%s#%d] Cell: %s PickedUp: %t", o.kind, o.id, o.cell, o.pickedUp)
}
