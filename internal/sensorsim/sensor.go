// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package sensorsim simulates a Bayer sensor. Each capture renders a
// colour chart, samples it through the mosaic and delivers the raw buffer
// to a callback on its own goroutine, the way a camera driver does.
package sensorsim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/internal/logging"
)

// ErrClosed is returned by TriggerCapture after Close.
var ErrClosed = errors.New("sensorsim: sensor closed")

// rowAlign is the row alignment of delivered buffers, in bytes.
const rowAlign = 64

// Config describes the simulated sensor.
type Config struct {
	Width, Height int
	Format        frame.PixelFormat

	// Pattern is the mosaic phase for formats without one.
	Pattern frame.Pattern

	// ByteOrder of delivered samples. Nil means little endian.
	ByteOrder binary.ByteOrder

	// Noise is the peak amplitude of per-sample noise, in sample units.
	Noise int
}

// Sensor delivers synthetic raw frames.
type Sensor struct {
	cfg     Config
	deliver func(frame.RawFrame)
	scene   []rgb
	seq     atomic.Uint64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a sensor delivering to fn. The scene is rendered once.
func New(cfg Config, fn func(frame.RawFrame)) (*Sensor, error) {
	if !cfg.Format.Supported() {
		return nil, fmt.Errorf("sensorsim: %w: %s", frame.ErrUnsupportedFormat, cfg.Format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return nil, fmt.Errorf("sensorsim: %w: size %dx%d", frame.ErrMalformedBuffer, cfg.Width, cfg.Height)
	}
	if p, ok := cfg.Format.Pattern(); ok {
		cfg.Pattern = p
	}
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = binary.LittleEndian
	}
	if fn == nil {
		return nil, errors.New("sensorsim: nil delivery callback")
	}
	return &Sensor{
		cfg:     cfg,
		deliver: fn,
		scene:   renderChart(cfg.Width, cfg.Height, maxSample(cfg.Format.BitDepth())),
	}, nil
}

// BytesPerRow returns the row pitch of delivered buffers.
func (s *Sensor) BytesPerRow() int {
	return (s.cfg.Width*2 + rowAlign - 1) / rowAlign * rowAlign
}

// TriggerCapture starts one exposure. The frame is delivered
// asynchronously; TriggerCapture only fails if the sensor is closed or
// ctx is already done.
func (s *Sensor) TriggerCapture(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	seq := s.seq.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		raw := s.expose(seq)
		logging.Logger().Debug("sensorsim: frame delivered", "sequence", seq, "bytes", len(raw.Data))
		s.deliver(raw)
	}()
	return nil
}

// Capture exposes one frame synchronously and returns it.
func (s *Sensor) Capture() frame.RawFrame {
	return s.expose(s.seq.Add(1))
}

// expose samples the scene through the mosaic into a padded buffer.
func (s *Sensor) expose(seq uint64) frame.RawFrame {
	w, h := s.cfg.Width, s.cfg.Height
	pitch := s.BytesPerRow()
	data := make([]byte, pitch*h)
	limit := int32(maxSample(s.cfg.Format.BitDepth()))
	noise := newLCG(seq)

	for y := range h {
		row := data[y*pitch:]
		for x := range w {
			px := s.scene[y*w+x]
			v := int32(px[s.cfg.Pattern.ColorAt(x, y)])
			if s.cfg.Noise > 0 {
				v += noise.next(s.cfg.Noise)
			}
			v = min(max(v, 0), limit)
			s.cfg.ByteOrder.PutUint16(row[x*2:], uint16(v))
		}
	}

	return frame.RawFrame{
		Data:        data,
		Width:       w,
		Height:      h,
		BytesPerRow: pitch,
		Format:      s.cfg.Format,
		Pattern:     s.cfg.Pattern,
		Sequence:    seq,
		CapturedAt:  time.Now(),
	}
}

// Close stops accepting triggers and waits for pending deliveries.
func (s *Sensor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func maxSample(bitDepth int) uint16 {
	return uint16(1<<uint(bitDepth) - 1)
}

// lcg is a small deterministic noise source; frames with the same sequence
// number are identical.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed*0x9E3779B97F4A7C15 + 1} }

// next returns a value in [-amp, amp].
func (l *lcg) next(amp int) int32 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return int32((l.state>>33)%uint64(2*amp+1)) - int32(amp)
}
