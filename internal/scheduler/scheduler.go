// Package scheduler paces snapshot fetches independently of the frame rate.
package scheduler

import (
	"fmt"
	"time"
)

// State of the fetch cycle.
type State int

const (
	Idle State = iota
	Fetching
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Scheduler is a frame-driven timer with an Idle → Fetching → Idle cycle.
// Stopped is terminal. It is driven from the render loop only.
type Scheduler struct {
	period  time.Duration
	elapsed time.Duration
	state   State
	cycles  int
}

// New creates a scheduler whose first fetch is due on the first Tick.
func New(period time.Duration) (*Scheduler, error) {
	if period <= 0 {
		return nil, fmt.Errorf("update period must be positive, got %s", period)
	}
	return &Scheduler{period: period, elapsed: period}, nil
}

// Period returns the update interval.
func (s *Scheduler) Period() time.Duration { return s.period }

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Elapsed returns the time accumulated since the last fetch started.
func (s *Scheduler) Elapsed() time.Duration { return s.elapsed }

// Cycles returns the number of fetches started.
func (s *Scheduler) Cycles() int { return s.cycles }

// Advance adds one frame's worth of time. It does nothing unless Idle.
func (s *Scheduler) Advance(dt time.Duration) {
	if s.state != Idle || dt <= 0 {
		return
	}
	s.elapsed += dt
}

// Due reports whether a fetch should start now.
func (s *Scheduler) Due() bool {
	return s.state == Idle && s.elapsed >= s.period
}

// Begin moves Idle → Fetching and resets the timer. It returns false when a
// fetch is outstanding or the scheduler is stopped.
func (s *Scheduler) Begin() bool {
	if s.state != Idle {
		return false
	}
	s.state = Fetching
	s.elapsed = 0
	s.cycles++
	return true
}

// Complete moves Fetching → Idle once a fetch chain finishes, whether it
// succeeded or not.
func (s *Scheduler) Complete() {
	if s.state == Fetching {
		s.state = Idle
	}
}

// Stop enters the terminal state. No further fetches begin.
func (s *Scheduler) Stop() { s.state = Stopped }
