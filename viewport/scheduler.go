// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camproc/debayer"
	"github.com/gogpu/camproc/framestore"
	"github.com/gogpu/camproc/internal/logging"
	"github.com/gogpu/camproc/pipeline"
)

// Default cell geometry and idle colour.
const (
	DefaultCellWidth  = 320
	DefaultCellHeight = 240
)

// DefaultIdleColor fills cells that have nothing to show.
var DefaultIdleColor = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}

// ErrUnknownPipeline is reported by a cell whose pipeline was removed
// after the grid was last reconciled.
var ErrUnknownPipeline = errors.New("viewport: cell references unknown pipeline")

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	cellWidth  int
	cellHeight int
	idle       color.RGBA
}

func defaultOptions() options {
	return options{
		cellWidth:  DefaultCellWidth,
		cellHeight: DefaultCellHeight,
		idle:       DefaultIdleColor,
	}
}

// WithCellSize sets the size of idle placeholders and histogram charts.
// Non-positive values are ignored.
func WithCellSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.cellWidth, o.cellHeight = width, height
		}
	}
}

// WithIdleColor sets the placeholder colour.
func WithIdleColor(c color.RGBA) Option {
	return func(o *options) {
		o.idle = c
	}
}

// CellResult is the outcome of rendering one cell.
type CellResult struct {
	Index    int
	Row      int
	Column   int
	Pipeline pipeline.ID
	Label    string

	// Image is the cell image. It is never nil and must not be modified;
	// it may be shared with later results.
	Image *image.RGBA

	// Generation is the frame generation Image was rendered from, 0 when idle.
	Generation uint64

	// Idle is set when Image is the placeholder.
	Idle bool

	// Stale is set when rendering failed and Image is the previous result.
	Stale bool

	Err error
}

// cell is the render state owned by one grid position.
type cell struct {
	surface *debayer.Surface
	last    *image.RGBA
	lastGen uint64
}

// Scheduler owns the grid and renders it.
//
// Resize, Reconcile and OnRegistryChanged belong to the control goroutine.
// RenderFrame may run concurrently with them; it works from a snapshot of
// the grid and the registry taken at the start of the pass.
type Scheduler struct {
	reg   *pipeline.Registry
	store *framestore.Store
	eng   *debayer.Engine
	opts  options

	ctlMu sync.Mutex
	grid  atomic.Pointer[Grid]

	renderMu sync.Mutex
	cells    []*cell
	idle     *image.RGBA
}

// New returns a scheduler with a 1x1 grid whose cell is unassigned and
// renders idle. Call Reconcile or Resize once pipelines are registered.
func New(reg *pipeline.Registry, store *framestore.Store, eng *debayer.Engine, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Scheduler{reg: reg, store: store, eng: eng, opts: o}
	s.grid.Store(&Grid{Rows: 1, Columns: 1, Cells: []pipeline.ID{{}}})
	s.idle = placeholder(o.cellWidth, o.cellHeight, o.idle)
	return s
}

// Grid returns a copy of the current assignment.
func (s *Scheduler) Grid() Grid { return s.grid.Load().clone() }

// Resize changes the grid shape and reconciles it. On error the previous
// grid, including its shape, is kept.
func (s *Scheduler) Resize(rows, cols int) error {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.reconcileLocked(rows, cols)
}

// Reconcile refills stale and missing cells from the registry.
func (s *Scheduler) Reconcile() error {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	g := s.grid.Load()
	return s.reconcileLocked(g.Rows, g.Columns)
}

// OnRegistryChanged is called after the registry is edited.
func (s *Scheduler) OnRegistryChanged() error {
	return s.Reconcile()
}

func (s *Scheduler) reconcileLocked(rows, cols int) error {
	prev := s.grid.Load()
	cells, err := reconcile(prev.Cells, rows, cols, s.reg.Snapshot())
	if err != nil {
		logging.Logger().Warn("viewport: grid rejected", "rows", rows, "columns", cols, "err", err)
		return err
	}
	s.grid.Store(&Grid{Rows: rows, Columns: cols, Cells: cells})
	logging.Logger().Debug("viewport: grid reconciled", "rows", rows, "columns", cols)
	return nil
}

// RenderFrame renders every cell of the current grid and returns the
// results in cell order. Cells render concurrently; a failure in one cell
// is reported in its result and does not affect the others.
//
// Calls to RenderFrame are serialized.
func (s *Scheduler) RenderFrame(ctx context.Context) []CellResult {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	g := s.grid.Load()
	snap := s.reg.Snapshot()
	s.resizeCells(len(g.Cells))

	results := make([]CellResult, len(g.Cells))
	var wg sync.WaitGroup
	for i, id := range g.Cells {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.renderCell(ctx, s.cells[i], i, id, snap)
			results[i].Row, results[i].Column = i/g.Columns, i%g.Columns
		}()
	}
	wg.Wait()
	return results
}

func (s *Scheduler) resizeCells(n int) {
	for i := n; i < len(s.cells); i++ {
		s.cells[i].surface.Release()
	}
	if n < len(s.cells) {
		clear(s.cells[n:])
		s.cells = s.cells[:n]
	}
	for len(s.cells) < n {
		s.cells = append(s.cells, &cell{surface: debayer.NewSurface(s.eng.Device())})
	}
}

func (s *Scheduler) renderCell(ctx context.Context, c *cell, index int, id pipeline.ID, snap *pipeline.Snapshot) CellResult {
	res := CellResult{Index: index, Pipeline: id}
	if id == (pipeline.ID{}) {
		res.Image, res.Idle = s.idle, true
		return res
	}

	def, ok := snap.Get(id)
	if !ok {
		return s.fail(c, res, fmt.Errorf("%w: %s", ErrUnknownPipeline, id))
	}
	res.Label = def.Name

	if err := ctx.Err(); err != nil {
		return s.fail(c, res, err)
	}

	lease, ok := s.store.Current()
	if !ok {
		res.Image, res.Idle = s.idle, true
		return res
	}
	defer lease.Release()
	f := lease.Frame()

	if err := s.eng.Debayer(f, def.Debayer, c.surface); err != nil {
		return s.fail(c, res, err)
	}
	if err := s.eng.ApplyFilter(def.PostFilter, c.surface); err != nil {
		return s.fail(c, res, err)
	}
	rgb, err := c.surface.Read()
	if err != nil {
		return s.fail(c, res, fmt.Errorf("%w: read back: %w", debayer.ErrComputeDispatchFailed, err))
	}

	var img *image.RGBA
	switch def.Output {
	case pipeline.OutputHistogram:
		img = ComputeHistogram(rgb, f.BitDepth()).Render(s.opts.cellWidth, s.opts.cellHeight)
	default:
		img = ToDisplay(rgb, f.BitDepth(), def.AutoLevel)
	}

	c.last, c.lastGen = img, lease.Generation()
	res.Image, res.Generation = img, c.lastGen
	logging.Logger().Debug("viewport: cell rendered",
		"cell", index, "pipeline", def.Name, "generation", res.Generation)
	return res
}

// fail fills res with the cell's previous image, or the placeholder.
func (s *Scheduler) fail(c *cell, res CellResult, err error) CellResult {
	res.Err = err
	if c.last != nil {
		res.Image, res.Generation, res.Stale = c.last, c.lastGen, true
	} else {
		res.Image, res.Idle = s.idle, true
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logging.Logger().Warn("viewport: cell failed", "cell", res.Index, "pipeline", res.Label, "err", err)
	}
	return res
}

// Close releases the per-cell surfaces.
func (s *Scheduler) Close() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.resizeCells(0)
}

func placeholder(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}
