// Package interp smooths agent motion between two consecutive snapshots.
package interp

import (
	"time"

	"warehouse-viz/internal/common"
)

// Smoothstep eases t in and out: t²(3-2t), with t clamped to [0,1].
func Smoothstep(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return t * t * (3 - 2*t)
}

// Progress returns elapsed/period clamped to [0,1]. A non-positive period is
// always complete.
func Progress(elapsed, period time.Duration) float64 {
	if period <= 0 || elapsed >= period {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(period)
}

type track struct {
	from, to common.Vector
	current  common.Pose
}

// Interpolator buffers an old and a new position per agent and produces the
// pose for the current frame.
type Interpolator struct {
	tracks []track
	held   bool
}

// New creates an interpolator for a fixed number of agents. Every agent starts
// at the origin facing common.DefaultFacing.
func New(agentCount int) *Interpolator {
	ip := &Interpolator{tracks: make([]track, agentCount)}
	for i := range ip.tracks {
		ip.tracks[i].current.Facing = common.DefaultFacing
	}
	return ip
}

// Len returns the number of tracked agents.
func (ip *Interpolator) Len() int { return len(ip.tracks) }

// Seed places agent i at pos with no pending motion.
func (ip *Interpolator) Seed(i int, pos common.Vector) {
	tr := &ip.tracks[i]
	tr.from, tr.to = pos, pos
	tr.current.Position = pos
}

// Push makes the previous target the start of the next motion and pos its end.
func (ip *Interpolator) Push(i int, pos common.Vector) {
	tr := &ip.tracks[i]
	tr.from, tr.to = tr.to, pos
}

// Target returns the position agent i is moving towards.
func (ip *Interpolator) Target(i int) common.Vector { return ip.tracks[i].to }

// Hold freezes every pose until Release.
func (ip *Interpolator) Hold() { ip.held = true }

// Release lets Sample move agents again.
func (ip *Interpolator) Release() { ip.held = false }

// Held reports whether the interpolator is frozen.
func (ip *Interpolator) Held() bool { return ip.held }

// Sample computes every agent's pose at the given progress through the update
// period and reports whether anything was recomputed. While held, the last
// poses are kept.
func (ip *Interpolator) Sample(progress float64) bool {
	if ip.held {
		return false
	}
	f := Smoothstep(progress)
	for i := range ip.tracks {
		tr := &ip.tracks[i]
		tr.current.Position = common.Lerp(tr.from, tr.to, f)
		if dir, ok := tr.to.Subtract(tr.from).Unit(); ok {
			tr.current.Facing = dir
		}
	}
	return true
}

// Pose returns the last computed pose of agent i.
func (ip *Interpolator) Pose(i int) common.Pose { return ip.tracks[i].current }
