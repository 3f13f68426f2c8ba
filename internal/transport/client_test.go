package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"warehouse-viz/internal/snapshot"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestConfigureSendsFormAndReturnsDropZone(t *testing.T) {
	var form map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc(PathInit, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("content type = %q", ct)
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			form = map[string]string{}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
			_, _ = io.WriteString(w, `{"message":"ok"}`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"drop_zone_pos":[{"x":3,"y":4}]}`)
		}
	})
	c := newTestClient(t, mux)

	dz, err := c.Configure(context.Background(), snapshot.SimulationConfig{Agents: 2, Boxes: 1, Width: 10, Height: 10, MaxShelves: 3})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if dz != (snapshot.DropZone{X: 3, Y: 4}) {
		t.Fatalf("drop zone = %+v", dz)
	}
	want := map[string]string{"NAgents": "2", "NBoxes": "1", "width": "10", "height": "10", "maxShelves": "3"}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
	if _, ok := form["maxSteps"]; ok {
		t.Errorf("maxSteps must be omitted when uncapped")
	}
}

func TestConfigureEmptyDropZoneIsProtocolError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"drop_zone_pos":[]}`)
		}
	}))
	_, err := c.Configure(context.Background(), snapshot.SimulationConfig{Agents: 1, Width: 5, Height: 5})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestFetchAgentsAndObstacles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathAgents, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"robots_attributes":[
			{"x":0,"y":0,"z":0,"has_box":false,"unique_id":0},
			{"x":1,"y":0,"z":0,"has_box":true,"unique_id":1}]}`)
	})
	mux.HandleFunc(PathObstacles, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"obstacles_attributes":[
			{"x":2,"y":0,"z":2,"tag":"box","picked_up":false,"unique_id":5},
			{"x":0,"y":1,"z":0,"tag":"border","unique_id":5}]}`)
	})
	c := newTestClient(t, mux)

	agents, err := c.FetchAgents(context.Background())
	if err != nil {
		t.Fatalf("fetch agents: %v", err)
	}
	if len(agents) != 2 || agents[1].ID != 1 || !agents[1].Carrying || agents[1].Position.X != 1 {
		t.Fatalf("agents = %+v", agents)
	}

	obstacles, err := c.FetchObstacles(context.Background())
	if err != nil {
		t.Fatalf("fetch obstacles: %v", err)
	}
	if len(obstacles) != 2 {
		t.Fatalf("obstacles = %+v", obstacles)
	}
	if obstacles[0].Key() == obstacles[1].Key() {
		t.Fatalf("obstacles of different kinds must not share a key")
	}
	if obstacles[1].PickedUp {
		t.Fatalf("missing picked_up must decode as false")
	}
}

func TestFetchErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, "", func(err error) bool {
			var te *TransportError
			return errors.As(err, &te) && te.StatusCode == http.StatusInternalServerError
		}},
		{"malformed json", http.StatusOK, `{"robots_attributes":[`, func(err error) bool {
			var pe *ParseError
			return errors.As(err, &pe)
		}},
		{"schema mismatch", http.StatusOK, `{"robots_attributes":[{"x":"a","y":0,"z":0,"has_box":false,"unique_id":1}]}`, func(err error) bool {
			var pe *ParseError
			return errors.As(err, &pe)
		}},
		{"missing list", http.StatusOK, `{}`, func(err error) bool {
			var pe *ParseError
			return errors.As(err, &pe)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			_, err := c.FetchAgents(context.Background())
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFetchObstaclesRejectsUnknownTag(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"obstacles_attributes":[{"x":1,"y":1,"z":1,"tag":"door","unique_id":1}]}`)
	}))
	_, err := c.FetchObstacles(context.Background())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFetchStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathUpdate, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"currentStep":100,"droppedBoxes":1}`)
	})
	c := newTestClient(t, mux)
	st, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if st != (snapshot.ModelStatus{CurrentStep: 100, DroppedBoxes: 1}) {
		t.Fatalf("status = %+v", st)
	}
}

func TestFetchStatusUnavailable(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.FetchStatus(context.Background())
	if !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("expected ErrStatusUnavailable, got %v", err)
	}

	// Other endpoints report a plain transport failure for 404.
	_, err = c.FetchAgents(context.Background())
	if err == nil || errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("unexpected agents error: %v", err)
	}
}

func TestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(addr, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.FetchObstacles(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("expected connection TransportError, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("localhost:8585", Options{}); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}
