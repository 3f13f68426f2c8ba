package reconcile

import (
	"io"
	"log"
	"testing"

	"warehouse-viz/internal/common"
	"warehouse-viz/internal/interp"
	"warehouse-viz/internal/registry"
	"warehouse-viz/internal/snapshot"
)

type fixture struct {
	cfg snapshot.SimulationConfig
	reg *registry.Registry
	ip  *interp.Interpolator
	e   *Engine
}

func newFixture(t *testing.T, agents int) *fixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cfg := snapshot.SimulationConfig{Agents: agents, Boxes: 1, Width: 10, Height: 10, MaxSteps: 100}
	reg := registry.New(agents, logger)
	ip := interp.New(agents)
	e, err := NewEngine(cfg, reg, ip, logger)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &fixture{cfg: cfg, reg: reg, ip: ip, e: e}
}

func box(id int, x, z float64) snapshot.ObstacleSnapshot {
	return snapshot.ObstacleSnapshot{ID: id, Kind: snapshot.KindBox, Position: common.NewVector(x, 0, z)}
}

func countKind(ops []Op, k OpKind) int {
	n := 0
	for _, op := range ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

func TestFirstAgentFetchSpawnsConfiguredAgents(t *testing.T) {
	f := newFixture(t, 2)
	ops, err := f.e.ReconcileAgents([]snapshot.AgentSnapshot{
		{ID: 0, Position: common.NewVector(0, 0, 0)},
		{ID: 1, Position: common.NewVector(1, 0, 0)},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if countKind(ops, OpSpawnAgent) != 2 || len(f.reg.Agents()) != 2 {
		t.Fatalf("ops = %v agents = %v", ops, f.reg.Agents())
	}
	a1, _ := f.reg.Agent(1)
	if a1.Pose.Position != common.NewVector(1, 0, 0) || a1.Pose.Facing != common.DefaultFacing {
		t.Fatalf("agent 1 pose = %+v", a1.Pose)
	}
	if f.ip.Len() != f.cfg.Agents {
		t.Fatalf("tracked poses = %d, want %d", f.ip.Len(), f.cfg.Agents)
	}
}

func TestFirstAgentFetchWithTooFewAgentsAppliesNothing(t *testing.T) {
	f := newFixture(t, 3)
	_, err := f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 1}, {ID: 1}, {ID: 2}})
	if err == nil {
		t.Fatalf("expected error for 2 distinct agents with 3 configured")
	}
	if len(f.reg.Agents()) != 0 {
		t.Fatalf("registry mutated on failed reconcile")
	}
	// The next list can still seed the session.
	if _, err := f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 1}, {ID: 2}, {ID: 3}}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestExtraAgentsAreIgnored(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 1004}, {ID: 1000}, {ID: 1002}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(f.reg.Agents()) != 2 || f.ip.Len() != 2 {
		t.Fatalf("agent count changed")
	}
}

func TestAgentsMatchedByIdentifier(t *testing.T) {
	f := newFixture(t, 2)
	_, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{
		{ID: 1000, Position: common.NewVector(1, 0, 1)},
		{ID: 1001, Position: common.NewVector(5, 0, 5)},
	})

	// Reversed order, agent 1001 now carries a box.
	ops, err := f.e.ReconcileAgents([]snapshot.AgentSnapshot{
		{ID: 1001, Position: common.NewVector(5, 0, 6), Carrying: true},
		{ID: 1000, Position: common.NewVector(2, 0, 1)},
		{ID: 4242, Position: common.NewVector(9, 0, 9)},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(ops) != 1 || ops[0].Kind != OpSetCarrying || ops[0].Slot != 1 || !ops[0].Carrying {
		t.Fatalf("ops = %+v", ops)
	}
	a1, _ := f.reg.Agent(1)
	if !a1.Carrying {
		t.Fatalf("carrying flag not pushed to registry")
	}
	if f.ip.Target(0) != common.NewVector(2, 0, 1) || f.ip.Target(1) != common.NewVector(5, 0, 6) {
		t.Fatalf("targets = %s %s", f.ip.Target(0), f.ip.Target(1))
	}

	f.ip.Sample(0)
	if got := f.ip.Pose(0).Position; got != common.NewVector(1, 0, 1) {
		t.Fatalf("old pose = %s, want previous target", got)
	}

	// Same carrying state again: nothing to do.
	ops, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{
		{ID: 1000, Position: common.NewVector(2, 0, 1)},
		{ID: 1001, Position: common.NewVector(5, 0, 6), Carrying: true},
	})
	if len(ops) != 0 {
		t.Fatalf("expected no ops, got %+v", ops)
	}
}

func TestMissingAgentStandsStill(t *testing.T) {
	f := newFixture(t, 2)
	_, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{
		{ID: 0, Position: common.NewVector(1, 0, 1)},
		{ID: 1, Position: common.NewVector(2, 0, 2)},
	})
	_, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 0, Position: common.NewVector(1, 0, 2)}})
	f.ip.Sample(0.5)
	if got := f.ip.Pose(1).Position; got != common.NewVector(2, 0, 2) {
		t.Fatalf("missing agent moved to %s", got)
	}
}

func TestObstacleDisappearanceDespawns(t *testing.T) {
	f := newFixture(t, 1)
	ops := f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{box(5, 2, 2)})
	if len(ops) != 1 || ops[0].Kind != OpSpawnObstacle {
		t.Fatalf("first ops = %+v", ops)
	}
	ops = f.e.ReconcileObstacles(nil)
	if len(ops) != 1 || ops[0].Kind != OpDespawnObstacle || ops[0].Key.ID != 5 {
		t.Fatalf("second ops = %+v", ops)
	}
	if f.reg.ObstacleCount() != 0 {
		t.Fatalf("box still registered")
	}
}

func TestObstacleReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	list := []snapshot.ObstacleSnapshot{
		box(1, 2, 2), box(2, 3, 3),
		{ID: 0, Kind: snapshot.KindShelf, Position: common.NewVector(4, 0, 4)},
		{ID: 0, Kind: snapshot.KindBorder, Position: common.NewVector(0, 0, 0)},
	}
	first := f.e.ReconcileObstacles(list)
	if countKind(first, OpSpawnObstacle) != 4 {
		t.Fatalf("first ops = %+v", first)
	}
	if second := f.e.ReconcileObstacles(list); len(second) != 0 {
		t.Fatalf("second pass produced ops: %+v", second)
	}
	if ops, _ := f.e.DiffObstacles(list); len(ops) != 0 {
		t.Fatalf("diff after apply = %+v", ops)
	}
}

func TestPickedUpBoxNeverRespawns(t *testing.T) {
	f := newFixture(t, 1)
	f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{box(3, 1, 1), box(4, 2, 2)})

	picked := box(3, 1, 1)
	picked.PickedUp = true
	ops := f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{picked, box(4, 2, 2)})
	if len(ops) != 1 || ops[0].Kind != OpDespawnObstacle || ops[0].Key.ID != 3 {
		t.Fatalf("ops = %+v", ops)
	}

	// A later snapshot reports the box again without the flag.
	ops = f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{box(3, 1, 1), box(4, 2, 2)})
	if len(ops) != 0 {
		t.Fatalf("picked-up box respawned: %+v", ops)
	}
	if f.reg.HasObstacle(picked.Key()) {
		t.Fatalf("picked-up box registered")
	}
}

func TestStaticObstaclesOnlyProcessedInitially(t *testing.T) {
	f := newFixture(t, 1)
	shelf := snapshot.ObstacleSnapshot{ID: 1, Kind: snapshot.KindShelf, Position: common.NewVector(3, 0, 3)}
	f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{shelf})

	lateShelf := snapshot.ObstacleSnapshot{ID: 2, Kind: snapshot.KindShelf, Position: common.NewVector(4, 0, 4)}
	ops := f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{lateShelf})
	if len(ops) != 0 {
		t.Fatalf("shelves must be ignored after the initial fetch, got %+v", ops)
	}
	if !f.reg.HasObstacle(shelf.Key()) || f.reg.HasObstacle(lateShelf.Key()) {
		t.Fatalf("shelf set changed: %v", f.reg.ObstacleKeys(""))
	}
}

func TestNewBoxSpawnsAfterInitialFetch(t *testing.T) {
	f := newFixture(t, 1)
	f.e.ReconcileObstacles(nil)
	ops := f.e.ReconcileObstacles([]snapshot.ObstacleSnapshot{box(9, 4, 4)})
	if len(ops) != 1 || ops[0].Kind != OpSpawnObstacle {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestSeededAndSyncPoses(t *testing.T) {
	f := newFixture(t, 1)
	if f.e.Seeded() {
		t.Fatalf("fresh engine reports seeded")
	}
	_, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 7, Position: common.NewVector(0, 0, 0)}})
	if f.e.Seeded() {
		t.Fatalf("seeded before obstacles")
	}
	f.e.ReconcileObstacles(nil)
	if !f.e.Seeded() {
		t.Fatalf("expected seeded")
	}

	_, _ = f.e.ReconcileAgents([]snapshot.AgentSnapshot{{ID: 7, Position: common.NewVector(2, 0, 0)}})
	f.ip.Sample(0.5)
	f.e.SyncPoses()
	a, _ := f.reg.Agent(0)
	if a.Pose.Position != common.NewVector(1, 0, 0) || a.Pose.Facing != common.NewVector(1, 0, 0) {
		t.Fatalf("synced pose = %+v", a.Pose)
	}

	if !f.e.Complete(snapshot.ModelStatus{CurrentStep: 100}) {
		t.Fatalf("step cap not detected")
	}
}

func TestNewEngineRejectsMismatchedSizes(t *testing.T) {
	cfg := snapshot.SimulationConfig{Agents: 2}
	if _, err := NewEngine(cfg, registry.New(1, nil), interp.New(2), nil); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
