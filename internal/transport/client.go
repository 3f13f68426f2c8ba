// Package transport speaks the simulation's HTTP protocol and converts its
// responses into snapshot values.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"warehouse-viz/internal/common"
	"warehouse-viz/internal/snapshot"
)

// Endpoint paths served by the simulation.
const (
	PathInit      = "/init"
	PathUpdate    = "/update"
	PathAgents    = "/getRobotAgents"
	PathObstacles = "/getObstacles"
)

const maxPayloadBytes = 32 << 20

// Client issues one request per call. It never retries; the caller owns the
// retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each exchange. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewClient creates a client for the simulation served at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}, nil
}

// Configure uploads the simulation parameters and then fetches the drop zone
// of the freshly initialised model.
func (c *Client) Configure(ctx context.Context, cfg snapshot.SimulationConfig) (snapshot.DropZone, error) {
	form := url.Values{}
	form.Set("NAgents", strconv.Itoa(cfg.Agents))
	form.Set("NBoxes", strconv.Itoa(cfg.Boxes))
	form.Set("width", strconv.Itoa(cfg.Width))
	form.Set("height", strconv.Itoa(cfg.Height))
	form.Set("maxShelves", strconv.Itoa(cfg.MaxShelves))
	if cfg.MaxSteps > 0 {
		form.Set("maxSteps", strconv.Itoa(cfg.MaxSteps))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathInit, strings.NewReader(form.Encode()))
	if err != nil {
		return snapshot.DropZone{}, &TransportError{Op: "configure", URL: c.baseURL + PathInit, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if _, err := c.do("configure", req); err != nil {
		return snapshot.DropZone{}, err
	}
	c.logger.Printf("simulation configured: agents=%d boxes=%d grid=%dx%d", cfg.Agents, cfg.Boxes, cfg.Width, cfg.Height)

	var payload struct {
		DropZonePos []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"drop_zone_pos"`
	}
	if err := c.getJSON(ctx, "fetch drop zone", PathInit, dropZoneValidator, &payload); err != nil {
		return snapshot.DropZone{}, err
	}
	if len(payload.DropZonePos) == 0 {
		return snapshot.DropZone{}, &ProtocolError{Op: "fetch drop zone", Reason: "drop_zone_pos is empty"}
	}
	dz := payload.DropZonePos[0]
	return snapshot.DropZone{X: dz.X, Y: dz.Y}, nil
}

// FetchStatus advances the simulation by one step and returns its status.
// A simulation without the endpoint yields an error wrapping
// ErrStatusUnavailable.
func (c *Client) FetchStatus(ctx context.Context) (snapshot.ModelStatus, error) {
	var payload struct {
		CurrentStep  int `json:"currentStep"`
		DroppedBoxes int `json:"droppedBoxes"`
	}
	if err := c.getJSON(ctx, "fetch status", PathUpdate, statusValidator, &payload); err != nil {
		return snapshot.ModelStatus{}, err
	}
	return snapshot.ModelStatus{CurrentStep: payload.CurrentStep, DroppedBoxes: payload.DroppedBoxes}, nil
}

// FetchAgents returns the robots in the order the simulation reported them.
func (c *Client) FetchAgents(ctx context.Context) ([]snapshot.AgentSnapshot, error) {
	var payload struct {
		Robots []struct {
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			Z        float64 `json:"z"`
			HasBox   bool    `json:"has_box"`
			UniqueID int     `json:"unique_id"`
		} `json:"robots_attributes"`
	}
	if err := c.getJSON(ctx, "fetch agents", PathAgents, robotsValidator, &payload); err != nil {
		return nil, err
	}
	agents := make([]snapshot.AgentSnapshot, 0, len(payload.Robots))
	for _, r := range payload.Robots {
		agents = append(agents, snapshot.AgentSnapshot{
			ID:       r.UniqueID,
			Position: common.NewVector(r.X, r.Y, r.Z),
			Carrying: r.HasBox,
		})
	}
	return agents, nil
}

// FetchObstacles returns every obstacle currently on the grid.
func (c *Client) FetchObstacles(ctx context.Context) ([]snapshot.ObstacleSnapshot, error) {
	var payload struct {
		Obstacles []struct {
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			Z        float64 `json:"z"`
			Tag      string  `json:"tag"`
			PickedUp bool    `json:"picked_up"`
			UniqueID int     `json:"unique_id"`
		} `json:"obstacles_attributes"`
	}
	if err := c.getJSON(ctx, "fetch obstacles", PathObstacles, obstaclesValidator, &payload); err != nil {
		return nil, err
	}
	obstacles := make([]snapshot.ObstacleSnapshot, 0, len(payload.Obstacles))
	for _, o := range payload.Obstacles {
		obstacles = append(obstacles, snapshot.ObstacleSnapshot{
			ID:       o.UniqueID,
			Kind:     snapshot.Kind(o.Tag),
			Position: common.NewVector(o.X, o.Y, o.Z),
			PickedUp: o.PickedUp,
		})
	}
	return obstacles, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, schema *jsonschema.Schema, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: op, URL: c.baseURL + path, Err: err}
	}
	body, err := c.do(op, req)
	if err != nil {
		return err
	}
	return decode(op, body, schema, out)
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	target := req.URL.String()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case strings.HasSuffix(req.URL.Path, PathUpdate) && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed):
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: ErrStatusUnavailable}
	default:
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
}

func decode(op string, body []byte, schema *jsonschema.Schema, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
