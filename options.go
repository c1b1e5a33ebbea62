// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package camproc

import (
	"encoding/binary"
	"time"

	"github.com/gogpu/camproc/backend"
	"github.com/gogpu/camproc/config"
	"github.com/gogpu/camproc/framestore"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/pipeline"
)

// Option configures a Core during creation.
//
// Example:
//
//	// Software backend, 2x2 grid, two pipelines
//	core, err := camproc.New(
//	    camproc.WithBackend(backend.BackendSoftware),
//	    camproc.WithGrid(2, 2),
//	    camproc.WithPipelines(
//	        pipeline.Definition{Name: "Fast"},
//	        pipeline.Definition{Name: "Sharp", Debayer: debayer.Malvar},
//	    ),
//	)
type Option func(*options)

type options struct {
	backendName     string
	backendCfg      backend.Config
	device          gpucore.Device
	byteOrder       binary.ByteOrder
	firstFrameDelay time.Duration
	cellWidth       int
	cellHeight      int
	rows, columns   int
	pipelines       []pipeline.Definition
	sensor          Sensor
}

func defaultOptions() options {
	return options{
		backendName:     "auto",
		byteOrder:       binary.LittleEndian,
		firstFrameDelay: framestore.DefaultFirstFrameDelay,
		rows:            1,
		columns:         1,
	}
}

// WithBackend selects the compute backend by name ("auto", "software",
// "wgpu").
func WithBackend(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithBackendConfig sets the configuration passed to the backend factory.
func WithBackendConfig(cfg backend.Config) Option {
	return func(o *options) {
		o.backendCfg = cfg
	}
}

// WithDevice uses dev instead of opening a backend. The Core does not
// close an injected device.
func WithDevice(dev gpucore.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithByteOrder sets the byte order of raw sensor buffers.
// The default is little endian, the native order of supported sensors.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.byteOrder = order
		}
	}
}

// WithFirstFrameDelay sets how long the first frame is held back.
func WithFirstFrameDelay(d time.Duration) Option {
	return func(o *options) {
		o.firstFrameDelay = d
	}
}

// WithCellSize sets the size of one cell in composed images.
func WithCellSize(width, height int) Option {
	return func(o *options) {
		o.cellWidth, o.cellHeight = width, height
	}
}

// WithGrid sets the initial grid shape.
func WithGrid(rows, columns int) Option {
	return func(o *options) {
		o.rows, o.columns = rows, columns
	}
}

// WithPipelines registers initial pipelines in order.
func WithPipelines(defs ...pipeline.Definition) Option {
	return func(o *options) {
		o.pipelines = append(o.pipelines, defs...)
	}
}

// WithSensor sets the sensor Capture triggers.
func WithSensor(s Sensor) Option {
	return func(o *options) {
		o.sensor = s
	}
}

// ConfigOptions translates a validated configuration into options.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	order, _ := cfg.ByteOrder()
	defs, _ := cfg.Definitions()
	return []Option{
		WithBackend(cfg.Backend),
		WithBackendConfig(backend.Config{
			Workers:      cfg.Software.Workers,
			MemoryBudget: cfg.Software.MemoryBudgetMB << 20,
		}),
		WithByteOrder(order),
		WithFirstFrameDelay(time.Duration(cfg.Store.FirstFrameDelay)),
		WithCellSize(cfg.Render.CellWidth, cfg.Render.CellHeight),
		WithGrid(cfg.Grid.Rows, cfg.Grid.Columns),
		WithPipelines(defs...),
	}, nil
}
