package simulation

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"warehouse-viz/internal/snapshot"
)

// Server exposes one Warehouse over the visualizer's HTTP protocol. POST /init
// replaces the model; every other endpoint needs one to exist.
type Server struct {
	logger        *log.Logger
	seed          int64
	disableStatus bool

	mu          sync.Mutex
	model       *Warehouse
	currentStep int
	runs        int64
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Logger *log.Logger
	// Seed makes layouts and random moves reproducible. Zero seeds from the
	// clock.
	Seed int64
	// DisableStatus leaves /update unrouted, as older simulations do.
	DisableStatus bool
}

// NewServer creates a server with no model.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Server{logger: logger, seed: seed, disableStatus: opts.DisableStatus}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /init", s.handleInit)
	mux.HandleFunc("GET /init", s.handleDropZone)
	mux.HandleFunc("GET /getRobotAgents", s.handleRobots)
	mux.HandleFunc("GET /getObstacles", s.handleObstacles)
	if !s.disableStatus {
		mux.HandleFunc("GET /update", s.handleUpdate)
	}
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok\n"))
	})
	return mux
}

// Model returns the current warehouse, if one was initialised.
func (s *Server) Model() (*Warehouse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model, s.model != nil
}

func (s *Server) handleInit(rw http.ResponseWriter, r *http.Request) {
	cfg, err := parseInitForm(r)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rng := rand.New(rand.NewSource(s.seed + s.runs))
	w, err := NewWarehouse(cfg, rng)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	s.runs++
	s.model = w
	s.currentStep = 0
	s.logger.Printf("model initialised: %dx%d grid, %d robots, %d boxes, drop zone %s",
		cfg.Width, cfg.Height, len(w.robots), cfg.Boxes, w.dropZone)
	writeJSON(rw, map[string]string{"message": "Parameters received, model initiated."})
}

func parseInitForm(r *http.Request) (snapshot.SimulationConfig, error) {
	var cfg snapshot.SimulationConfig
	if err := r.ParseForm(); err != nil {
		return cfg, err
	}
	fields := []struct {
		name     string
		dst      *int
		optional bool
	}{
		{"NAgents", &cfg.Agents, false},
		{"NBoxes", &cfg.Boxes, false},
		{"width", &cfg.Width, false},
		{"height", &cfg.Height, false},
		{"maxShelves", &cfg.MaxShelves, false},
		{"maxSteps", &cfg.MaxSteps, true},
	}
	for _, f := range fields {
		raw := r.PostForm.Get(f.name)
		if raw == "" {
			if f.optional {
				continue
			}
			return cfg, fmt.Errorf("missing form field %s", f.name)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("form field %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return cfg, nil
}

// withModel runs fn under the lock, or answers 409 when no model exists.
func (s *Server) withModel(rw http.ResponseWriter, fn func(w *Warehouse) any) {
	s.mu.Lock()
	if s.model == nil {
		s.mu.Unlock()
		http.Error(rw, "model not initialised; POST /init first", http.StatusConflict)
		return
	}
	body := fn(s.model)
	s.mu.Unlock()
	writeJSON(rw, body)
}

func (s *Server) handleDropZone(rw http.ResponseWriter, r *http.Request) {
	s.withModel(rw, func(w *Warehouse) any {
		return map[string]any{
			"drop_zone_pos": []map[string]int{{"x": w.dropZone.X, "y": w.dropZone.Y}},
		}
	})
}

type robotJSON struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Z        int  `json:"z"`
	HasBox   bool `json:"has_box"`
	UniqueID int  `json:"unique_id"`
}

func (s *Server) handleRobots(rw http.ResponseWriter, r *http.Request) {
	s.withModel(rw, func(w *Warehouse) any {
		robots := w.Robots()
		out := make([]robotJSON, 0, len(robots))
		for _, rb := range robots {
			out = append(out, robotJSON{X: rb.cell.X, Y: 1, Z: rb.cell.Y, HasBox: rb.hasBox, UniqueID: rb.id})
		}
		return map[string]any{"robots_attributes": out}
	})
}

type obstacleJSON struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Tag      string `json:"tag"`
	PickedUp bool   `json:"picked_up"`
	UniqueID int    `json:"unique_id"`
}

func (s *Server) handleObstacles(rw http.ResponseWriter, r *http.Request) {
	s.withModel(rw, func(w *Warehouse) any {
		obstacles := w.Obstacles()
		out := make([]obstacleJSON, 0, len(obstacles))
		for _, o := range obstacles {
			out = append(out, obstacleJSON{X: o.cell.X, Y: 1, Z: o.cell.Y, Tag: string(o.kind), PickedUp: o.pickedUp, UniqueID: o.id})
		}
		return map[string]any{"obstacles_attributes": out}
	})
}

func (s *Server) handleUpdate(rw http.ResponseWriter, r *http.Request) {
	s.withModel(rw, func(w *Warehouse) any {
		running := w.Running()
		w.Step()
		s.currentStep++
		if running && !w.Running() {
			s.logger.Printf("model finished: %d steps, %d moves, %d/%d boxes dropped",
				w.steps, w.totalMoves, w.boxesDropped, w.numBoxes)
		}
		return map[string]int{"currentStep": s.currentStep, "droppedBoxes": w.boxesDropped}
	})
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}
