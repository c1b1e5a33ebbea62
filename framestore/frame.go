// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framestore

import (
	"sync/atomic"
	"time"

	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/gpucore"
)

// GpuFrame is an immutable mosaic frame resident on a compute device.
// The texture is a tightly packed TextureFormatR16Uint image.
type GpuFrame struct {
	dev        gpucore.Device
	tex        gpucore.TextureID
	width      int
	height     int
	pattern    frame.Pattern
	bitDepth   int
	generation uint64
	sequence   uint64
	capturedAt time.Time

	refs atomic.Int64
}

// Texture returns the device texture holding the samples.
func (f *GpuFrame) Texture() gpucore.TextureID { return f.tex }

// Width returns the frame width in pixels.
func (f *GpuFrame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *GpuFrame) Height() int { return f.height }

// Pattern returns the mosaic pattern.
func (f *GpuFrame) Pattern() frame.Pattern { return f.pattern }

// BitDepth returns the significant bits per sample (14 or 16).
func (f *GpuFrame) BitDepth() int { return f.bitDepth }

// Generation returns the store generation assigned when the frame was published.
func (f *GpuFrame) Generation() uint64 { return f.generation }

// Sequence returns the sensor sequence number of the capture.
func (f *GpuFrame) Sequence() uint64 { return f.sequence }

// CapturedAt returns the capture timestamp, if the sensor provided one.
func (f *GpuFrame) CapturedAt() time.Time { return f.capturedAt }

// tryAcquire takes a reference unless the frame has already been released
// by its last holder.
func (f *GpuFrame) tryAcquire() bool {
	for {
		n := f.refs.Load()
		if n <= 0 {
			return false
		}
		if f.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (f *GpuFrame) release() {
	switch n := f.refs.Add(-1); {
	case n == 0:
		f.dev.DestroyTexture(f.tex)
	case n < 0:
		panic("framestore: GpuFrame released more times than acquired")
	}
}

// Lease is a read-only borrow of a GpuFrame for the duration of one render
// pass. Release must be called exactly when the pass is done with the
// frame; further calls are no-ops.
type Lease struct {
	frame    *GpuFrame
	released atomic.Bool
}

// Frame returns the leased frame. It must not be used after Release.
func (l *Lease) Frame() *GpuFrame { return l.frame }

// Generation is a shorthand for Frame().Generation().
func (l *Lease) Generation() uint64 { return l.frame.generation }

// Release returns the borrow.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.frame.release()
	}
}
