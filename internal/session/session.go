// Package session holds the explicit state of one visualization session and
// advances it once per rendered frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"warehouse-viz/internal/interp"
	"warehouse-viz/internal/reconcile"
	"warehouse-viz/internal/registry"
	"warehouse-viz/internal/scheduler"
	"warehouse-viz/internal/snapshot"
	"warehouse-viz/internal/transport"
)

// Source is where snapshots come from: the live simulation or a recording.
type Source interface {
	Configure(ctx context.Context, cfg snapshot.SimulationConfig) (snapshot.DropZone, error)
	FetchStatus(ctx context.Context) (snapshot.ModelStatus, error)
	FetchAgents(ctx context.Context) ([]snapshot.AgentSnapshot, error)
	FetchObstacles(ctx context.Context) ([]snapshot.ObstacleSnapshot, error)
}

// Recorder receives every applied frame.
type Recorder interface {
	Record(f snapshot.Frame) error
}

// RunIndex keeps a summary of each session.
type RunIndex interface {
	StartRun(run uuid.UUID, cfg snapshot.SimulationConfig, source string) error
	RecordCycle(run uuid.UUID, cycle int, status *snapshot.ModelStatus, agents, obstacles int, cycleErr error) error
	FinishRun(run uuid.UUID, status snapshot.ModelStatus) error
}

// Options carries the optional collaborators of a session.
type Options struct {
	// ID names the session; a random one is generated when zero.
	ID       uuid.UUID
	Logger   *log.Logger
	Recorder Recorder
	Index    RunIndex
	// SourceName is stored in the run index.
	SourceName string
}

type plan struct {
	cycle     int
	configure bool
	status    bool
}

type result struct {
	plan              plan
	dropZone          *snapshot.DropZone
	status            *snapshot.ModelStatus
	statusUnavailable bool
	complete          bool
	agents            []snapshot.AgentSnapshot
	obstacles         []snapshot.ObstacleSnapshot
	err               error
}

// Session owns the registry, interpolator, reconciliation engine and
// scheduler of one run. Tick must be called from a single goroutine; fetches
// run on their own goroutine and hand results back through a channel that
// Tick drains.
type Session struct {
	ID uuid.UUID

	cfg      snapshot.SimulationConfig
	src      Source
	reg      *registry.Registry
	ip       *interp.Interpolator
	engine   *reconcile.Engine
	sched    *scheduler.Scheduler
	logger   *log.Logger
	recorder Recorder
	index    RunIndex

	ctx     context.Context
	cancel  context.CancelFunc
	results chan result

	configured        bool
	dropZone          *snapshot.DropZone
	statusUnavailable bool
	status            *snapshot.ModelStatus
	failures          int
	done              bool
	recorded          int
}

// New creates a session. The handshake is issued on the first Tick.
func New(ctx context.Context, cfg snapshot.SimulationConfig, src Source, period time.Duration, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulation config: %w", err)
	}
	sched, err := scheduler.New(period)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := registry.New(cfg.Agents, logger)
	ip := interp.New(cfg.Agents)
	ip.Hold()
	engine, err := reconcile.NewEngine(cfg, reg, ip, logger)
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       id,
		cfg:      cfg,
		src:      src,
		reg:      reg,
		ip:       ip,
		engine:   engine,
		sched:    sched,
		logger:   logger,
		recorder: opts.Recorder,
		index:    opts.Index,
		ctx:      ctx,
		cancel:   cancel,
		results:  make(chan result, 1),
	}
	if s.index != nil {
		if err := s.index.StartRun(s.ID, cfg, opts.SourceName); err != nil {
			s.logger.Printf("session %s: run index: %v", s.ID, err)
		}
	}
	return s, nil
}

// Close abandons any outstanding fetch. It is meant for process shutdown.
func (s *Session) Close() { s.cancel() }

// Tick advances the session by one frame of dt.
func (s *Session) Tick(dt time.Duration) {
	select {
	case res := <-s.results:
		s.finish(res)
	default:
	}

	if s.sched.State() == scheduler.Idle {
		s.sched.Advance(dt)
		if s.ip.Sample(interp.Progress(s.sched.Elapsed(), s.sched.Period())) {
			s.engine.SyncPoses()
		}
	}

	if s.sched.Due() && s.sched.Begin() {
		s.ip.Hold()
		p := plan{
			cycle:     s.sched.Cycles(),
			configure: !s.configured,
			status:    s.configured && s.engine.Seeded() && !s.statusUnavailable,
		}
		go s.fetch(p)
	}
}

func (s *Session) fetch(p plan) {
	res := result{plan: p}
	defer func() { s.results <- res }()

	if p.configure {
		dz, err := s.src.Configure(s.ctx, s.cfg)
		if err != nil {
			res.err = fmt.Errorf("handshake: %w", err)
			return
		}
		res.dropZone = &dz
	}

	if p.status {
		st, err := s.src.FetchStatus(s.ctx)
		switch {
		case errors.Is(err, transport.ErrStatusUnavailable):
			res.statusUnavailable = true
		case err != nil:
			res.err = err
			return
		default:
			res.status = &st
			if s.engine.Complete(st) {
				res.complete = true
				return
			}
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		agents, err := s.src.FetchAgents(s.ctx)
		res.agents = agents
		return err
	})
	g.Go(func() error {
		obstacles, err := s.src.FetchObstacles(s.ctx)
		res.obstacles = obstacles
		return err
	})
	res.err = g.Wait()
}

func (s *Session) finish(res result) {
	s.sched.Complete()

	if res.dropZone != nil {
		s.configured = true
		s.dropZone = res.dropZone
		s.logger.Printf("session %s: drop zone at (%.0f, %.0f)", s.ID, res.dropZone.X, res.dropZone.Y)
	}
	if res.statusUnavailable && !s.statusUnavailable {
		s.statusUnavailable = true
		s.logger.Printf("session %s: simulation has no status endpoint; fetching agents and obstacles every cycle", s.ID)
	}
	if res.status != nil {
		s.status = res.status
	}

	if res.err != nil {
		s.fail(res, res.err)
		return
	}

	if res.complete {
		s.sched.Stop()
		s.done = true
		s.logger.Printf("session %s: simulation complete at step %d with %d/%d boxes dropped",
			s.ID, res.status.CurrentStep, res.status.DroppedBoxes, s.cfg.Boxes)
		s.indexCycle(res, nil)
		if s.index != nil {
			if err := s.index.FinishRun(s.ID, *res.status); err != nil {
				s.logger.Printf("session %s: run index: %v", s.ID, err)
			}
		}
		return
	}

	if _, err := s.engine.ReconcileAgents(res.agents); err != nil {
		s.fail(res, &transport.ProtocolError{Op: "reconcile agents", Reason: err.Error()})
		return
	}
	ops := s.engine.ReconcileObstacles(res.obstacles)
	if len(ops) > 0 {
		s.logger.Printf("session %s: cycle %d: %d obstacle change(s)", s.ID, res.plan.cycle, len(ops))
	}
	s.failures = 0
	s.ip.Release()

	if s.recorder != nil {
		frame := snapshot.Frame{
			Cycle:     res.plan.cycle,
			At:        time.Now().UTC(),
			Status:    res.status,
			Agents:    res.agents,
			Obstacles: res.obstacles,
		}
		if s.recorded == 0 {
			frame.DropZone = s.dropZone
		}
		if err := s.recorder.Record(frame); err != nil {
			s.logger.Printf("session %s: record cycle %d: %v", s.ID, res.plan.cycle, err)
		} else {
			s.recorded++
		}
	}
	s.indexCycle(res, nil)
}

// fail abandons the cycle. The interpolator stays held on the last pose pair
// until a later cycle succeeds.
func (s *Session) fail(res result, err error) {
	s.failures++
	s.logger.Printf("session %s: cycle %d failed (%d in a row): %v", s.ID, res.plan.cycle, s.failures, err)
	s.indexCycle(res, err)
}

func (s *Session) indexCycle(res result, cycleErr error) {
	if s.index == nil {
		return
	}
	if err := s.index.RecordCycle(s.ID, res.plan.cycle, res.status, len(res.agents), len(res.obstacles), cycleErr); err != nil {
		s.logger.Printf("session %s: run index: %v", s.ID, err)
	}
}

// Config returns the simulation configuration of the session.
func (s *Session) Config() snapshot.SimulationConfig { return s.cfg }

// Registry exposes the renderable instances for drawing.
func (s *Session) Registry() *registry.Registry { return s.reg }

// DropZone returns the drop zone once the handshake has completed.
func (s *Session) DropZone() (snapshot.DropZone, bool) {
	if s.dropZone == nil {
		return snapshot.DropZone{}, false
	}
	return *s.dropZone, true
}

// Status returns the last status reported by the simulation.
func (s *Session) Status() (snapshot.ModelStatus, bool) {
	if s.status == nil {
		return snapshot.ModelStatus{}, false
	}
	return *s.status, true
}

// State returns the scheduler state.
func (s *Session) State() scheduler.State { return s.sched.State() }

// Held reports whether agent motion is frozen.
func (s *Session) Held() bool { return s.ip.Held() }

// Failures returns the number of consecutive failed cycles.
func (s *Session) Failures() int { return s.failures }

// Done reports whether the run has completed.
func (s *Session) Done() bool { return s.done }

// Seeded reports whether the initial agent and obstacle lists were applied.
func (s *Session) Seeded() bool { return s.engine.Seeded() }

// TrackedAgents returns the number of agent poses being interpolated.
func (s *Session) TrackedAgents() int { return s.ip.Len() }
