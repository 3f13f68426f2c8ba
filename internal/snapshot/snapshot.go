// Package snapshot holds the immutable values describing one instant of the
// remote warehouse simulation.
package snapshot

import (
	"fmt"
	"time"

	"warehouse-viz/internal/common"
)

// SimulationConfig is sent once at session start and never mutated.
type SimulationConfig struct {
	Agents     int `yaml:"agents" json:"agents"`
	Boxes      int `yaml:"boxes" json:"boxes"`
	Width      int `yaml:"width" json:"width"`
	Height     int `yaml:"height" json:"height"`
	MaxShelves int `yaml:"max_shelves" json:"max_shelves"`
	MaxSteps   int `yaml:"max_steps" json:"max_steps"` // 0 means no step cap
}

// Validate checks the configuration before it is sent to the simulation.
func (c SimulationConfig) Validate() error {
	if c.Agents <= 0 {
		return fmt.Errorf("agent count must be positive, got %d", c.Agents)
	}
	if c.Boxes < 0 {
		return fmt.Errorf("box count must not be negative, got %d", c.Boxes)
	}
	if c.Width < 3 || c.Height < 3 {
		return fmt.Errorf("grid must be at least 3x3, got %dx%d", c.Width, c.Height)
	}
	if c.MaxShelves < 0 || c.MaxSteps < 0 {
		return fmt.Errorf("shelf and step caps must not be negative")
	}
	return nil
}

// InGrid reports whether a ground-plane coordinate lies in [0,width) x [0,height).
func (c SimulationConfig) InGrid(x, z float64) bool {
	return x >= 0 && x < float64(c.Width) && z >= 0 && z < float64(c.Height)
}

// Kind is the obstacle tag reported by the simulation.
type Kind string

const (
	KindBox    Kind = "box"
	KindShelf  Kind = "shelf"
	KindBorder Kind = "border"
)

// Valid reports whether k is one of the known obstacle kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBox, KindShelf, KindBorder:
		return true
	}
	return false
}

// Mutable reports whether obstacles of this kind can appear or disappear after
// the initial fetch.
func (k Kind) Mutable() bool { return k == KindBox }

// AgentSnapshot is one robot at one instant.
type AgentSnapshot struct {
	ID       int           `json:"id"`
	Position common.Vector `json:"position"`
	Carrying bool          `json:"carrying"`
}

// ObstacleKey identifies an obstacle. The simulation numbers each kind
// independently, so the id alone is not unique.
type ObstacleKey struct {
	Kind Kind `json:"kind"`
	ID   int  `json:"id"`
}

func (k ObstacleKey) String() string { return fmt.Sprintf("%s#%d", k.Kind, k.ID) }

// ObstacleSnapshot is one box, shelf or border cell at one instant.
type ObstacleSnapshot struct {
	ID       int           `json:"id"`
	Kind     Kind          `json:"kind"`
	Position common.Vector `json:"position"`
	PickedUp bool          `json:"picked_up,omitempty"`
}

// Key returns the registry key of the obstacle.
func (o ObstacleSnapshot) Key() ObstacleKey { return ObstacleKey{Kind: o.Kind, ID: o.ID} }

// DropZone is the fixed delivery cell on the ground plane.
type DropZone struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorldPosition maps the drop zone onto the world ground plane.
func (d DropZone) WorldPosition() common.Vector {
	return common.NewVector(d.X, 0, d.Y)
}

// ModelStatus is used only to detect run completion.
type ModelStatus struct {
	CurrentStep  int `json:"current_step"`
	DroppedBoxes int `json:"dropped_boxes"`
}

// Complete reports whether the run has reached its step cap or delivered every
// box.
func (s ModelStatus) Complete(cfg SimulationConfig) bool {
	if cfg.MaxSteps > 0 && s.CurrentStep >= cfg.MaxSteps {
		return true
	}
	return s.DroppedBoxes >= cfg.Boxes
}

// Frame is one applied fetch cycle. DropZone is set on the first recorded
// frame of a session; Status is nil when the simulation does not expose
// it or the cycle seeded the session.
type Frame struct {
	Cycle     int                `json:"cycle"`
	At        time.Time          `json:"at"`
	DropZone  *DropZone          `json:"drop_zone,omitempty"`
	Status    *ModelStatus       `json:"status,omitempty"`
	Agents    []AgentSnapshot    `json:"agents"`
	Obstacles []ObstacleSnapshot `json:"obstacles"`
}
