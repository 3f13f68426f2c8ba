package recorder

import (
	"context"
	"sync"

	"warehouse-viz/internal/snapshot"
	"warehouse-viz/internal/transport"
)

// Player serves a recording through the same calls as the live transport
// client. Each status fetch moves to the next recorded frame; once the
// recording is exhausted the run is reported as complete.
type Player struct {
	hdr    Header
	frames []snapshot.Frame

	mu  sync.Mutex
	pos int
}

// Open loads the recording at path.
func Open(path string) (*Player, error) {
	hdr, frames, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewPlayer(hdr, frames), nil
}

// NewPlayer replays frames recorded under hdr.
func NewPlayer(hdr Header, frames []snapshot.Frame) *Player {
	return &Player{hdr: hdr, frames: frames}
}

// Header returns the recording header, including the configuration the
// session was recorded with.
func (p *Player) Header() Header { return p.hdr }

// Configure rewinds to the first frame and returns its drop zone.
func (p *Player) Configure(ctx context.Context, _ snapshot.SimulationConfig) (snapshot.DropZone, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 || p.frames[0].DropZone == nil {
		return snapshot.DropZone{}, &transport.ProtocolError{Op: "replay configure", Reason: "recording has no handshake frame"}
	}
	p.pos = 0
	return *p.frames[0].DropZone, nil
}

// FetchStatus advances to the next frame.
func (p *Player) FetchStatus(ctx context.Context) (snapshot.ModelStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos+1 >= len(p.frames) {
		last := snapshot.ModelStatus{}
		if n := len(p.frames); n > 0 && p.frames[n-1].Status != nil {
			last = *p.frames[n-1].Status
		}
		last.DroppedBoxes = max(last.DroppedBoxes, p.hdr.Config.Boxes)
		return last, nil
	}
	p.pos++
	if st := p.frames[p.pos].Status; st != nil {
		return *st, nil
	}
	return snapshot.ModelStatus{CurrentStep: p.pos}, nil
}

// FetchAgents returns the agents of the current frame.
func (p *Player) FetchAgents(ctx context.Context) ([]snapshot.AgentSnapshot, error) {
	f, err := p.current("replay agents")
	if err != nil {
		return nil, err
	}
	return f.Agents, nil
}

// FetchObstacles returns the obstacles of the current frame.
func (p *Player) FetchObstacles(ctx context.Context) ([]snapshot.ObstacleSnapshot, error) {
	f, err := p.current("replay obstacles")
	if err != nil {
		return nil, err
	}
	return f.Obstacles, nil
}

func (p *Player) current(op string) (snapshot.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos >= len(p.frames) {
		return snapshot.Frame{}, &transport.ProtocolError{Op: op, Reason: "recording is empty"}
	}
	return p.frames[p.pos], nil
}
