package simulation

import (
	"fmt"
	"math"

	"warehouse-viz/internal/snapshot"
)

// RobotIDBase is added to the index of every robot to form its identifier.
const RobotIDBase = 1000

// Robot wanders the grid, picks up an adjacent box and carries it back to the
// drop zone.
type Robot struct {
	id     int
	cell   Cell
	hasBox bool
}

// NewRobot creates a robot at cell.
func NewRobot(id int, cell Cell) *Robot {
	return &Robot{id: id, cell: cell}
}

func (r *Robot) ID() int { return r.id }
func (r *Robot) Tag() string { return "robot" }
func (r *Robot) Cell() Cell { return r.cell }
func (r *Robot) HasBox() bool { return r.hasBox }

// Step performs one action: drop a carried box next to the drop zone, pick up
// an adjacent box, or move to a free neighbouring cell. A loaded robot moves
// greedily towards the drop zone; an empty one moves at random. It reports
// whether the robot moved.
func (r *Robot) Step(w *Warehouse) bool {
	neighbors := r.cell.Neighbors(w.width, w.height)

	var box *Obstacle
	dropZoneAdjacent := false
	for _, n := range neighbors {
		if o, ok := w.grid[n].(*Obstacle); ok && o.kind == snapshot.KindBox {
			box = o
		}
		if n == w.dropZone {
			dropZoneAdjacent = true
		}
	}

	switch {
	case r.hasBox && dropZoneAdjacent:
		r.hasBox = false
		w.boxesDropped++
		return false
	case box != nil && !r.hasBox:
		box.pickedUp = true
		delete(w.grid, box.cell)
		r.hasBox = true
		return false
	}

	free := make([]Cell, 0, len(neighbors))
	for _, n := range neighbors {
		if w.grid[n] == nil {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return false
	}

	var target Cell
	if r.hasBox {
		best := math.Inf(1)
		for _, c := range free {
			if d := c.DistanceTo(w.dropZone); d < best {
				best, target = d, c
			}
		}
	} else {
		target = free[w.rng.Intn(len(free))]
	}

	delete(w.grid, r.cell)
	r.cell = target
	w.grid[target] = r
	w.totalMoves++
	return true
}

func (r *Robot) String() string {
	return fmt.Sprintf("Robot[%d] Cell: %s HasBox: %t", r.id, r.cell, r.hasBox)
}
