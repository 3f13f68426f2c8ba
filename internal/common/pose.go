package common

// DefaultFacing is the heading of a freshly spawned agent.
var DefaultFacing = NewVector(0, 0, 1)

// Pose is a position plus a unit facing direction.
type Pose struct {
	Position Vector
	Facing   Vector
}
