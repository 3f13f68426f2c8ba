// Package reconcile turns consecutive snapshots into the minimal set of
// registry mutations and feeds agent motion to the interpolator.
package reconcile

import (
	"fmt"
	"log"
	"sort"

	"warehouse-viz/internal/common"
	"warehouse-viz/internal/interp"
	"warehouse-viz/internal/registry"
	"warehouse-viz/internal/snapshot"
)

// OpKind names a registry mutation.
type OpKind int

const (
	OpSpawnAgent OpKind = iota + 1
	OpSetCarrying
	OpSpawnObstacle
	OpDespawnObstacle
)

func (k OpKind) String() string {
	switch k {
	case OpSpawnAgent:
		return "spawn-agent"
	case OpSetCarrying:
		return "set-carrying"
	case OpSpawnObstacle:
		return "spawn-obstacle"
	case OpDespawnObstacle:
		return "despawn-obstacle"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is one registry mutation.
type Op struct {
	Kind     OpKind
	Slot     int
	Key      snapshot.ObstacleKey
	Position common.Vector
	Carrying bool
}

// Engine owns the identifier bookkeeping that survives between snapshots.
type Engine struct {
	cfg    snapshot.SimulationConfig
	reg    *registry.Registry
	ip     *interp.Interpolator
	logger *log.Logger

	slots           map[int]int // agent id -> dense slot
	carrying        []bool
	retired         map[snapshot.ObstacleKey]struct{}
	obstaclesSeeded bool
}

// NewEngine creates an engine driving reg and ip. Both must be sized for
// cfg.Agents.
func NewEngine(cfg snapshot.SimulationConfig, reg *registry.Registry, ip *interp.Interpolator, logger *log.Logger) (*Engine, error) {
	if reg.AgentSlots() != cfg.Agents || ip.Len() != cfg.Agents {
		return nil, fmt.Errorf("registry (%d) and interpolator (%d) must be sized for %d agents", reg.AgentSlots(), ip.Len(), cfg.Agents)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:      cfg,
		reg:      reg,
		ip:       ip,
		logger:   logger,
		carrying: make([]bool, cfg.Agents),
		retired:  make(map[snapshot.ObstacleKey]struct{}),
	}, nil
}

// Seeded reports whether both the initial agent and obstacle lists have been
// applied.
func (e *Engine) Seeded() bool { return e.slots != nil && e.obstaclesSeeded }

// Complete reports whether status marks the end of the run.
func (e *Engine) Complete(status snapshot.ModelStatus) bool { return status.Complete(e.cfg) }

// ReconcileAgents applies an agent list. The first list assigns slots in
// ascending identifier order and spawns every agent; later lists are matched
// by identifier. An error means nothing was applied.
func (e *Engine) ReconcileAgents(agents []snapshot.AgentSnapshot) ([]Op, error) {
	if e.slots == nil {
		return e.seedAgents(agents)
	}

	byID := make(map[int]snapshot.AgentSnapshot, len(agents))
	for _, a := range agents {
		if _, ok := e.slots[a.ID]; !ok {
			e.logger.Printf("reconcile: ignoring unknown agent %d", a.ID)
			continue
		}
		byID[a.ID] = a
	}

	var ops []Op
	for id, slot := range e.slots {
		a, ok := byID[id]
		if !ok {
			// Missing from this snapshot: stand still at the last target.
			e.ip.Push(slot, e.ip.Target(slot))
			continue
		}
		e.ip.Push(slot, a.Position)
		if a.Carrying != e.carrying[slot] {
			ops = append(ops, Op{Kind: OpSetCarrying, Slot: slot, Carrying: a.Carrying})
		}
	}
	sortOps(ops)
	e.apply(ops)
	return ops, nil
}

func (e *Engine) seedAgents(agents []snapshot.AgentSnapshot) ([]Op, error) {
	sorted := append([]snapshot.AgentSnapshot(nil), agents...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	slots := make(map[int]int, e.cfg.Agents)
	chosen := make([]snapshot.AgentSnapshot, 0, e.cfg.Agents)
	for _, a := range sorted {
		if _, dup := slots[a.ID]; dup {
			continue
		}
		if len(chosen) == e.cfg.Agents {
			e.logger.Printf("reconcile: ignoring agent %d beyond configured count %d", a.ID, e.cfg.Agents)
			continue
		}
		slots[a.ID] = len(chosen)
		chosen = append(chosen, a)
	}
	if len(chosen) < e.cfg.Agents {
		return nil, fmt.Errorf("initial agent list has %d distinct agents, configured %d", len(chosen), e.cfg.Agents)
	}

	ops := make([]Op, 0, len(chosen))
	for slot, a := range chosen {
		if !e.cfg.InGrid(a.Position.X, a.Position.Z) {
			e.logger.Printf("reconcile: agent %d spawned outside the grid at %s", a.ID, a.Position)
		}
		ops = append(ops, Op{Kind: OpSpawnAgent, Slot: slot, Position: a.Position, Carrying: a.Carrying})
		e.ip.Seed(slot, a.Position)
	}
	e.slots = slots
	e.apply(ops)
	return ops, nil
}

// DiffObstacles computes the obstacle mutations for list without applying
// them. Before the initial list has been applied every kind is considered;
// afterwards only boxes are.
func (e *Engine) DiffObstacles(list []snapshot.ObstacleSnapshot) (ops []Op, retire []snapshot.ObstacleKey) {
	seen := make(map[snapshot.ObstacleKey]struct{}, len(list))
	for _, o := range list {
		if e.obstaclesSeeded && !o.Kind.Mutable() {
			continue
		}
		key := o.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		if o.PickedUp && o.Kind == snapshot.KindBox {
			if _, done := e.retired[key]; !done {
				retire = append(retire, key)
			}
			continue
		}
		if _, done := e.retired[key]; done {
			continue
		}
		seen[key] = struct{}{}
		if !e.reg.HasObstacle(key) {
			ops = append(ops, Op{Kind: OpSpawnObstacle, Key: key, Position: o.Position})
		}
	}

	kind := snapshot.KindBox
	if !e.obstaclesSeeded {
		kind = ""
	}
	for _, key := range e.reg.ObstacleKeys(kind) {
		if _, ok := seen[key]; !ok {
			ops = append(ops, Op{Kind: OpDespawnObstacle, Key: key})
		}
	}
	sortOps(ops)
	return ops, retire
}

// ReconcileObstacles diffs list against the registry and applies the result.
func (e *Engine) ReconcileObstacles(list []snapshot.ObstacleSnapshot) []Op {
	ops, retire := e.DiffObstacles(list)
	for _, key := range retire {
		e.retired[key] = struct{}{}
	}
	e.apply(ops)
	e.obstaclesSeeded = true
	return ops
}

// SyncPoses copies the interpolator's current poses into the registry.
func (e *Engine) SyncPoses() {
	for _, slot := range e.slots {
		e.reg.SetAgentPose(slot, e.ip.Pose(slot))
	}
}

func (e *Engine) apply(ops []Op) {
	for _, op := range ops {
		switch op.Kind {
		case OpSpawnAgent:
			e.reg.SpawnAgent(op.Slot, common.Pose{Position: op.Position, Facing: common.DefaultFacing})
			e.reg.SetAgentCarrying(op.Slot, op.Carrying)
			e.carrying[op.Slot] = op.Carrying
		case OpSetCarrying:
			e.reg.SetAgentCarrying(op.Slot, op.Carrying)
			e.carrying[op.Slot] = op.Carrying
		case OpSpawnObstacle:
			e.reg.SpawnObstacle(op.Key, op.Position)
		case OpDespawnObstacle:
			e.reg.DespawnObstacle(op.Key)
		}
	}
}

func sortOps(ops []Op) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.Key.Kind != b.Key.Kind {
			return a.Key.Kind < b.Key.Kind
		}
		return a.Key.ID < b.Key.ID
	})
}
