// Package simulation is a small reference warehouse: robots collect boxes and
// deliver them to a drop zone on a bounded grid. It is served over HTTP by
// Server so the visualizer can be run and tested without the production
// simulation.
package simulation

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"warehouse-viz/internal/snapshot"
)

// minRobots is the smallest fleet the warehouse creates, whatever was asked.
const minRobots = 5

// Warehouse holds the state of one simulation run.
type Warehouse struct {
	width, height int
	maxSteps      int // 0 means no step cap
	rng           *rand.Rand

	grid      map[Cell]Object
	robots    []*Robot
	obstacles []*Obstacle
	dropZone  Cell

	numBoxes     int
	boxesDropped int
	steps        int
	totalMoves   int
}

// NewWarehouse lays out a warehouse for cfg: a border ring, a random number of
// shelves below cfg.MaxShelves, cfg.Boxes boxes and max(5, cfg.Agents) robots,
// all on distinct interior cells.
func NewWarehouse(cfg snapshot.SimulationConfig, rng *rand.Rand) (*Warehouse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Warehouse{
		width:    cfg.Width,
		height:   cfg.Height,
		maxSteps: cfg.MaxSteps,
		rng:      rng,
		grid:     make(map[Cell]Object),
		numBoxes: cfg.Boxes,
	}
	shelves := 0
	if cfg.MaxShelves > 0 {
		shelves = rng.Intn(cfg.MaxShelves)
	}
	robots := max(minRobots, cfg.Agents)
	interior := (cfg.Width - 2) * (cfg.Height - 2)
	if need := shelves + cfg.Boxes + robots; need > interior {
		return nil, fmt.Errorf("grid %dx%d has %d interior cells, need %d", cfg.Width, cfg.Height, interior, need)
	}
	w.dropZone = w.randomInterior()

	id := 0
	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			if x == 0 || y == 0 || x == w.width-1 || y == w.height-1 {
				w.place(NewObstacle(id, snapshot.KindBorder, Cell{x, y}))
				id++
			}
		}
	}
	for i := 0; i < shelves; i++ {
		w.place(NewObstacle(i, snapshot.KindShelf, w.freeInterior()))
	}
	for i := 0; i < cfg.Boxes; i++ {
		w.place(NewObstacle(i, snapshot.KindBox, w.freeInterior()))
	}
	for i := 0; i < robots; i++ {
		r := NewRobot(RobotIDBase+i, w.freeInterior())
		w.robots = append(w.robots, r)
		w.grid[r.cell] = r
	}
	return w, nil
}

func (w *Warehouse) place(o *Obstacle) {
	w.obstacles = append(w.obstacles, o)
	w.grid[o.cell] = o
}

func (w *Warehouse) randomInterior() Cell {
	return Cell{1 + w.rng.Intn(w.width-2), 1 + w.rng.Intn(w.height-2)}
}

func (w *Warehouse) freeInterior() Cell {
	for {
		c := w.randomInterior()
		if w.grid[c] == nil {
			return c
		}
	}
}

// Running reports whether Step still advances the model.
func (w *Warehouse) Running() bool {
	if w.boxesDropped >= w.numBoxes {
		return false
	}
	return w.maxSteps == 0 || w.steps < w.maxSteps
}

// Step lets every robot act once, in creation order. It does nothing once the
// run is over.
func (w *Warehouse) Step() {
	if !w.Running() {
		return
	}
	for _, r := range w.robots {
		r.Step(w)
	}
	w.steps++
}

// DropZone returns the delivery cell.
func (w *Warehouse) DropZone() Cell { return w.dropZone }

// Steps returns the number of steps the model has advanced.
func (w *Warehouse) Steps() int { return w.steps }

// BoxesDropped returns the number of delivered boxes.
func (w *Warehouse) BoxesDropped() int { return w.boxesDropped }

// TotalMoves returns the number of cell changes made by all robots.
func (w *Warehouse) TotalMoves() int { return w.totalMoves }

// Robots returns the robots ordered by identifier.
func (w *Warehouse) Robots() []*Robot {
	out := append([]*Robot(nil), w.robots...)
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Obstacles returns every obstacle, picked-up boxes included, ordered by
// identifier and then kind.
func (w *Warehouse) Obstacles() []*Obstacle {
	out := append([]*Obstacle(nil), w.obstacles...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].id != out[j].id {
			return out[i].id < out[j].id
		}
		return out[i].kind < out[j].kind
	})
	return out
}

// At returns the object occupying c, if any.
func (w *Warehouse) At(c Cell) (Object, bool) {
	o, ok := w.grid[c]
	return o, ok
}

// String renders the grid, one row per line: '#' border, 'S' shelf, 'b' box,
// 'R' empty robot, 'L' loaded robot, 'D' drop zone.
func (w *Warehouse) String() string {
	var b strings.Builder
	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			c := Cell{x, y}
			ch := byte('.')
			switch o := w.grid[c].(type) {
			case *Obstacle:
				switch o.kind {
				case snapshot.KindBorder:
					ch = '#'
				case snapshot.KindShelf:
					ch = 'S'
				case snapshot.KindBox:
					ch = 'b'
				}
			case *Robot:
				ch = 'R'
				if o.hasBox {
					ch = 'L'
				}
			default:
				if c == w.dropZone {
					ch = 'D'
				}
			}
			b.WriteByte(ch)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
