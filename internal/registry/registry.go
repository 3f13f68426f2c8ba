// Package registry owns the renderable instances mirrored from the
// simulation and maps stable simulation identifiers onto them.
package registry

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"warehouse-viz/internal/common"
	"warehouse-viz/internal/snapshot"
)

// AgentInstance is the renderable state of one robot.
type AgentInstance struct {
	Handle   uuid.UUID
	Slot     int
	Pose     common.Pose
	Carrying bool
}

// ObstacleInstance is the renderable state of one box, shelf or border cell.
type ObstacleInstance struct {
	Handle   uuid.UUID
	Key      snapshot.ObstacleKey
	Position common.Vector
}

// Registry holds a fixed number of agent slots and a growable obstacle set.
// It is mutated by the reconciliation engine only and is not safe for
// concurrent use.
type Registry struct {
	agents    []*AgentInstance
	obstacles map[snapshot.ObstacleKey]*ObstacleInstance
	logger    *log.Logger
}

// New creates a registry with room for agentCount agents.
func New(agentCount int, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		agents:    make([]*AgentInstance, agentCount),
		obstacles: make(map[snapshot.ObstacleKey]*ObstacleInstance),
		logger:    logger,
	}
}

// AgentSlots returns the fixed number of agent slots.
func (r *Registry) AgentSlots() int { return len(r.agents) }

func (r *Registry) agent(slot int) (*AgentInstance, error) {
	if slot < 0 || slot >= len(r.agents) {
		return nil, fmt.Errorf("agent slot %d out of range [0,%d)", slot, len(r.agents))
	}
	a := r.agents[slot]
	if a == nil {
		return nil, fmt.Errorf("agent slot %d not spawned", slot)
	}
	return a, nil
}

// SpawnAgent creates the instance for an agent slot. Spawning an occupied or
// out-of-range slot is logged and ignored.
func (r *Registry) SpawnAgent(slot int, pose common.Pose) bool {
	if slot < 0 || slot >= len(r.agents) {
		r.logger.Printf("registry: spawn agent: slot %d out of range [0,%d)", slot, len(r.agents))
		return false
	}
	if r.agents[slot] != nil {
		r.logger.Printf("registry: spawn agent: slot %d already spawned", slot)
		return false
	}
	r.agents[slot] = &AgentInstance{Handle: uuid.New(), Slot: slot, Pose: pose}
	return true
}

// SetAgentPose moves a spawned agent.
func (r *Registry) SetAgentPose(slot int, pose common.Pose) bool {
	a, err := r.agent(slot)
	if err != nil {
		r.logger.Printf("registry: set agent pose: %v", err)
		return false
	}
	a.Pose = pose
	return true
}

// SetAgentCarrying toggles the carried-box marker of a spawned agent.
func (r *Registry) SetAgentCarrying(slot int, carrying bool) bool {
	a, err := r.agent(slot)
	if err != nil {
		r.logger.Printf("registry: set agent carrying: %v", err)
		return false
	}
	a.Carrying = carrying
	return true
}

// Agent returns a copy of the agent in slot.
func (r *Registry) Agent(slot int) (AgentInstance, bool) {
	a, err := r.agent(slot)
	if err != nil {
		return AgentInstance{}, false
	}
	return *a, true
}

// Agents returns copies of every spawned agent in slot order.
func (r *Registry) Agents() []AgentInstance {
	out := make([]AgentInstance, 0, len(r.agents))
	for _, a := range r.agents {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}

// SpawnObstacle creates an obstacle instance. A duplicate key is logged and
// ignored.
func (r *Registry) SpawnObstacle(key snapshot.ObstacleKey, pos common.Vector) bool {
	if _, ok := r.obstacles[key]; ok {
		r.logger.Printf("registry: spawn obstacle: %s already present", key)
		return false
	}
	r.obstacles[key] = &ObstacleInstance{Handle: uuid.New(), Key: key, Position: pos}
	return true
}

// DespawnObstacle destroys an obstacle instance. An unknown key is logged and
// ignored.
func (r *Registry) DespawnObstacle(key snapshot.ObstacleKey) bool {
	if _, ok := r.obstacles[key]; !ok {
		r.logger.Printf("registry: despawn obstacle: %s not present", key)
		return false
	}
	delete(r.obstacles, key)
	return true
}

// HasObstacle reports whether key is registered.
func (r *Registry) HasObstacle(key snapshot.ObstacleKey) bool {
	_, ok := r.obstacles[key]
	return ok
}

// ObstacleKeys returns the registered keys of the given kind, or of every kind
// when kind is empty.
func (r *Registry) ObstacleKeys(kind snapshot.Kind) []snapshot.ObstacleKey {
	keys := make([]snapshot.ObstacleKey, 0, len(r.obstacles))
	for k := range r.obstacles {
		if kind == "" || k.Kind == kind {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// Obstacles returns copies of every obstacle ordered by key.
func (r *Registry) Obstacles() []ObstacleInstance {
	out := make([]ObstacleInstance, 0, len(r.obstacles))
	for _, k := range r.ObstacleKeys("") {
		out = append(out, *r.obstacles[k])
	}
	return out
}

// ObstacleCount returns the number of registered obstacles.
func (r *Registry) ObstacleCount() int { return len(r.obstacles) }

func sortKeys(keys []snapshot.ObstacleKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
}
