// Package config loads the visualizer configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"warehouse-viz/internal/snapshot"
)

// Config is the visualizer configuration file.
type Config struct {
	ServerURL      string                    `yaml:"server_url"`
	UpdateInterval time.Duration             `yaml:"update_interval"`
	RequestTimeout time.Duration             `yaml:"request_timeout"` // 0 means no timeout
	Simulation     snapshot.SimulationConfig `yaml:"simulation"`
	Window         Window                    `yaml:"window"`
	RecordDir      string                    `yaml:"record_dir"` // empty disables recording
	IndexDB        string                    `yaml:"index_db"`   // empty disables the run index
}

// Window configures the render window.
type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ServerURL:      "http://localhost:8585",
		UpdateInterval: 5 * time.Second,
		Simulation: snapshot.SimulationConfig{
			Agents:     5,
			Boxes:      20,
			Width:      20,
			Height:     20,
			MaxShelves: 5,
			MaxSteps:   500,
		},
		Window: Window{Width: 1280, Height: 800, Title: "Warehouse"},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the values that cannot be corrected at runtime.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url %q must be an http(s) URL", c.ServerURL)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive, got %s", c.UpdateInterval)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
