// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package camproc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/camproc/backend"
	"github.com/gogpu/camproc/debayer"
	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/framestore"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
	"github.com/gogpu/camproc/pipeline"
	"github.com/gogpu/camproc/viewport"

	// Compute backends.
	_ "github.com/gogpu/camproc/backend/software"
	_ "github.com/gogpu/camproc/backend/wgpu"
)

// ErrNoSensor is returned by Capture when no sensor is attached.
var ErrNoSensor = errors.New("camproc: no sensor attached")

// Sensor is the outbound capture trigger. Captured frames come back
// through Core.OnRawFrame.
type Sensor interface {
	TriggerCapture(ctx context.Context) error
}

// Core wires the frame store, debayer engine, pipeline registry and
// viewport scheduler to one compute device.
//
// OnRawFrame is called from the capture goroutine, RenderFrame from the
// render goroutine; registry and grid edits belong to the control
// goroutine.
type Core struct {
	opts      options
	dev       gpucore.Device
	ownDevice bool

	store *framestore.Store
	eng   *debayer.Engine
	reg   *pipeline.Registry
	sched *viewport.Scheduler
	pres  *viewport.Presenter

	sensorMu sync.RWMutex
	sensor   Sensor

	closeOnce sync.Once
}

// New opens the compute device and builds the pipeline.
func New(opts ...Option) (*Core, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Core{opts: o, dev: o.device, sensor: o.sensor}
	if c.dev == nil {
		dev, err := backend.Open(o.backendName, o.backendCfg)
		if err != nil {
			return nil, err
		}
		c.dev, c.ownDevice = dev, true
	}

	c.store = framestore.New(c.dev, framestore.WithFirstFrameDelay(o.firstFrameDelay))
	c.eng = debayer.New(c.dev)
	if err := c.eng.Warm(); err != nil {
		logging.Logger().Warn("camproc: kernel warm-up failed; cells will report errors", "err", err)
	}
	c.reg = pipeline.New()

	var vopts []viewport.Option
	if o.cellWidth > 0 && o.cellHeight > 0 {
		vopts = append(vopts, viewport.WithCellSize(o.cellWidth, o.cellHeight))
	}
	c.sched = viewport.New(c.reg, c.store, c.eng, vopts...)
	c.pres = viewport.NewPresenter(0, 0)

	for _, def := range o.pipelines {
		if _, err := c.reg.Add(def); err != nil {
			c.Close()
			return nil, err
		}
	}
	if c.reg.Len() > 0 {
		if err := c.sched.Resize(o.rows, o.columns); err != nil {
			c.Close()
			return nil, err
		}
	}

	logging.Logger().Info("camproc: ready", "device", c.dev.Name(), "pipelines", c.reg.Len(),
		"rows", o.rows, "columns", o.columns)
	return c, nil
}

// OnRawFrame decodes a sensor delivery and publishes it. raw.Data is not
// retained. Errors are logged and returned; the previous frame stays
// current.
func (c *Core) OnRawFrame(raw frame.RawFrame) error {
	f, err := frame.DecodeRaw(raw, frame.WithByteOrder(c.opts.byteOrder))
	if err != nil {
		logging.Logger().Warn("camproc: frame dropped", "sequence", raw.Sequence, "err", err)
		return err
	}
	gen, err := c.store.Publish(f)
	if err != nil {
		logging.Logger().Warn("camproc: publish failed", "sequence", raw.Sequence, "err", err)
		return err
	}
	logging.Logger().Debug("camproc: frame published", "sequence", raw.Sequence, "generation", gen)
	return nil
}

// AttachSensor sets the sensor Capture triggers.
func (c *Core) AttachSensor(s Sensor) {
	c.sensorMu.Lock()
	c.sensor = s
	c.sensorMu.Unlock()
}

// Capture asks the sensor for one exposure.
func (c *Core) Capture(ctx context.Context) error {
	c.sensorMu.RLock()
	s := c.sensor
	c.sensorMu.RUnlock()
	if s == nil {
		return ErrNoSensor
	}
	if err := s.TriggerCapture(ctx); err != nil {
		return fmt.Errorf("camproc: capture: %w", err)
	}
	return nil
}

// RenderFrame renders every grid cell.
func (c *Core) RenderFrame(ctx context.Context) []viewport.CellResult {
	return c.sched.RenderFrame(ctx)
}

// RenderImage renders every grid cell and composes the results.
func (c *Core) RenderImage(ctx context.Context) (*image.RGBA, []viewport.CellResult) {
	g := c.sched.Grid()
	results := c.sched.RenderFrame(ctx)
	w, h := c.opts.cellWidth, c.opts.cellHeight
	if w <= 0 || h <= 0 {
		w, h = viewport.DefaultCellWidth, viewport.DefaultCellHeight
	}
	return viewport.Compose(results, g.Rows, g.Columns, w, h), results
}

// Present renders the grid and draws it on a host surface at the origin.
// The texture of the previous Present is destroyed once the new one is
// drawn.
func (c *Core) Present(ctx context.Context, dc gpucontext.TextureDrawer) ([]viewport.CellResult, error) {
	img, results := c.RenderImage(ctx)
	if err := c.pres.Present(dc, img); err != nil {
		return results, fmt.Errorf("camproc: present: %w", err)
	}
	return results, nil
}

// Registry returns the pipeline registry. Call Scheduler().OnRegistryChanged
// after editing it.
func (c *Core) Registry() *pipeline.Registry { return c.reg }

// Scheduler returns the viewport scheduler.
func (c *Core) Scheduler() *viewport.Scheduler { return c.sched }

// Store returns the frame store.
func (c *Core) Store() *framestore.Store { return c.store }

// Engine returns the debayer engine.
func (c *Core) Engine() *debayer.Engine { return c.eng }

// Device returns the compute device.
func (c *Core) Device() gpucore.Device { return c.dev }

// Close releases every GPU resource. The device is closed only if the
// Core opened it.
func (c *Core) Close() {
	c.closeOnce.Do(func() {
		c.pres.Close()
		c.sched.Close()
		c.eng.Close()
		c.store.Close()
		if c.ownDevice {
			c.dev.Close()
		}
	})
}
