// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the camproc YAML configuration.
//
// A minimal file:
//
//	backend: auto
//	grid: {rows: 2, columns: 2}
//	pipelines:
//	  - name: Fast
//	  - name: Sharp edges
//	    debayer: malvar
//	    post_filter: edge-detect
//	  - name: Levels
//	    output: histogram
//
// Missing keys take the values from Default.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/camproc/debayer"
	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/pipeline"
)

// ErrInvalidConfig is returned for configuration that parses but cannot
// be used.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Duration is a time.Duration written as a Go duration string ("50ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Config is the top-level configuration.
type Config struct {
	// Backend is "auto", "software" or "wgpu".
	Backend   string           `yaml:"backend"`
	LogLevel  string           `yaml:"log_level"`
	Store     StoreConfig      `yaml:"store"`
	Software  SoftwareConfig   `yaml:"software"`
	Grid      GridConfig       `yaml:"grid"`
	Render    RenderConfig     `yaml:"render"`
	Sensor    SensorConfig     `yaml:"sensor"`
	Pipelines []PipelineConfig `yaml:"pipelines"`
}

// StoreConfig configures the frame store and decoder.
type StoreConfig struct {
	FirstFrameDelay Duration `yaml:"first_frame_delay"`
	// ByteOrder of raw samples: "little", "big" or "native".
	ByteOrder string `yaml:"byte_order"`
}

// SoftwareConfig configures the software backend.
type SoftwareConfig struct {
	Workers        int   `yaml:"workers"`
	MemoryBudgetMB int64 `yaml:"memory_budget_mb"`
}

// GridConfig is the initial grid shape.
type GridConfig struct {
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`
}

// RenderConfig sets the size of one composed cell.
type RenderConfig struct {
	CellWidth  int `yaml:"cell_width"`
	CellHeight int `yaml:"cell_height"`
}

// SensorConfig describes the simulated sensor.
type SensorConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"`
	// Pattern is the mosaic phase for formats that do not carry one.
	Pattern string `yaml:"pattern"`
}

// PipelineConfig is one initial pipeline.
type PipelineConfig struct {
	Name       string `yaml:"name"`
	Debayer    string `yaml:"debayer"`
	PostFilter string `yaml:"post_filter"`
	Output     string `yaml:"output"`
	AutoLevel  bool   `yaml:"auto_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:  "auto",
		LogLevel: "info",
		Store: StoreConfig{
			FirstFrameDelay: Duration(50 * time.Millisecond),
			ByteOrder:       "little",
		},
		Grid:   GridConfig{Rows: 1, Columns: 2},
		Render: RenderConfig{CellWidth: 320, CellHeight: 240},
		Sensor: SensorConfig{Width: 640, Height: 480, Format: "bayer14"},
		Pipelines: []PipelineConfig{
			{Name: "Bilinear", Debayer: "bilinear"},
			{Name: "Malvar", Debayer: "malvar"},
		},
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and returns all problems found.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Backend {
	case "", "auto", "software", "wgpu":
	default:
		bad("backend %q", c.Backend)
	}
	if _, err := c.Level(); err != nil {
		bad("log_level %q", c.LogLevel)
	}
	if c.Store.FirstFrameDelay < 0 {
		bad("store.first_frame_delay %v is negative", time.Duration(c.Store.FirstFrameDelay))
	}
	if _, err := c.ByteOrder(); err != nil {
		bad("store.byte_order %q", c.Store.ByteOrder)
	}
	if c.Software.Workers < 0 || c.Software.MemoryBudgetMB < 0 {
		bad("software workers %d, budget %d MB", c.Software.Workers, c.Software.MemoryBudgetMB)
	}
	if c.Grid.Rows < 1 || c.Grid.Columns < 1 {
		bad("grid %dx%d", c.Grid.Rows, c.Grid.Columns)
	}
	if c.Render.CellWidth < 1 || c.Render.CellHeight < 1 {
		bad("render cell %dx%d", c.Render.CellWidth, c.Render.CellHeight)
	}
	if _, _, err := c.SensorFormat(); err != nil {
		bad("sensor: %v", err)
	}
	if c.Sensor.Width <= 0 || c.Sensor.Height <= 0 || c.Sensor.Width%2 != 0 || c.Sensor.Height%2 != 0 {
		bad("sensor size %dx%d must be positive and even", c.Sensor.Width, c.Sensor.Height)
	}
	if len(c.Pipelines) == 0 {
		bad("no pipelines")
	}
	if _, err := c.Definitions(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// ByteOrder returns the byte order of raw samples.
func (c *Config) ByteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(c.Store.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	case "native":
		return binary.NativeEndian, nil
	}
	return nil, fmt.Errorf("%w: byte order %q", ErrInvalidConfig, c.Store.ByteOrder)
}

// SensorFormat returns the simulated sensor's pixel format and mosaic phase.
// A pattern given for a format that carries its own phase must agree.
func (c *Config) SensorFormat() (frame.PixelFormat, frame.Pattern, error) {
	f, err := frame.ParsePixelFormat(c.Sensor.Format)
	if err != nil {
		return 0, 0, err
	}
	if !f.Supported() {
		return 0, 0, fmt.Errorf("%w: %s", frame.ErrUnsupportedFormat, f)
	}
	p, fixed := f.Pattern()
	if c.Sensor.Pattern == "" {
		return f, p, nil
	}
	q, err := frame.ParsePattern(c.Sensor.Pattern)
	if err != nil {
		return 0, 0, err
	}
	if fixed && q != p {
		return 0, 0, fmt.Errorf("pattern %s conflicts with format %s (%s)", q, f, p)
	}
	return f, q, nil
}

// Definitions converts Pipelines into registry definitions.
func (c *Config) Definitions() ([]pipeline.Definition, error) {
	defs := make([]pipeline.Definition, 0, len(c.Pipelines))
	for i, p := range c.Pipelines {
		alg, err := debayer.ParseAlgorithm(p.Debayer)
		if err != nil {
			return nil, fmt.Errorf("%w: pipelines[%d]: %w", ErrInvalidConfig, i, err)
		}
		filter, err := debayer.ParseFilter(p.PostFilter)
		if err != nil {
			return nil, fmt.Errorf("%w: pipelines[%d]: %w", ErrInvalidConfig, i, err)
		}
		out, err := pipeline.ParseOutput(p.Output)
		if err != nil {
			return nil, fmt.Errorf("%w: pipelines[%d]: %w", ErrInvalidConfig, i, err)
		}
		defs = append(defs, pipeline.Definition{
			Name:       p.Name,
			Debayer:    alg,
			PostFilter: filter,
			Output:     out,
			AutoLevel:  p.AutoLevel,
		})
	}
	return defs, nil
}
