// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"errors"
	"fmt"
	"time"
)

// Decode errors.
var (
	// ErrUnsupportedFormat is returned when the pixel format tag is not a
	// supported single-channel mosaic format. The frame is dropped.
	ErrUnsupportedFormat = errors.New("frame: unsupported pixel format")

	// ErrMalformedBuffer is returned when the buffer geometry is inconsistent
	// with the reported dimensions. The frame is dropped.
	ErrMalformedBuffer = errors.New("frame: malformed buffer")
)

// MosaicFrame is an immutable single-channel Bayer frame.
//
// Invariants:
//   - len(samples) == stride * height
//   - width <= stride
//   - width and height are even and positive
type MosaicFrame struct {
	width   int
	height  int
	stride  int
	samples []uint16
	pattern Pattern
	format  PixelFormat
	seq     uint64
	at      time.Time
}

// NewMosaicFrame builds a frame from samples the caller hands over.
// The slice is owned by the frame afterwards and must not be modified.
func NewMosaicFrame(width, height, stride int, samples []uint16, pattern Pattern, format PixelFormat) (*MosaicFrame, error) {
	if err := checkGeometry(width, height, stride); err != nil {
		return nil, err
	}
	if !pattern.Valid() {
		return nil, fmt.Errorf("frame: invalid pattern %d", pattern)
	}
	if !format.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if len(samples) != stride*height {
		return nil, fmt.Errorf("%w: %d samples, want %d (stride %d x height %d)",
			ErrMalformedBuffer, len(samples), stride*height, stride, height)
	}
	return &MosaicFrame{
		width:   width,
		height:  height,
		stride:  stride,
		samples: samples,
		pattern: pattern,
		format:  format,
	}, nil
}

func checkGeometry(width, height, stride int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: non-positive size %dx%d", ErrMalformedBuffer, width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("%w: size %dx%d is not a whole number of 2x2 tiles", ErrMalformedBuffer, width, height)
	}
	if stride < width {
		return fmt.Errorf("%w: row stride %d samples is less than width %d", ErrMalformedBuffer, stride, width)
	}
	return nil
}

// Width returns the frame width in pixels.
func (f *MosaicFrame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *MosaicFrame) Height() int { return f.height }

// Stride returns the number of samples per row, including padding.
func (f *MosaicFrame) Stride() int { return f.stride }

// Pattern returns the mosaic phase.
func (f *MosaicFrame) Pattern() Pattern { return f.pattern }

// Format returns the pixel format the frame was decoded from.
func (f *MosaicFrame) Format() PixelFormat { return f.format }

// BitDepth returns the number of significant bits per sample.
func (f *MosaicFrame) BitDepth() int { return f.format.BitDepth() }

// Sequence returns the sensor sequence number, if the sensor supplied one.
func (f *MosaicFrame) Sequence() uint64 { return f.seq }

// CapturedAt returns the capture timestamp, if the sensor supplied one.
func (f *MosaicFrame) CapturedAt() time.Time { return f.at }

// Samples returns the backing sample slice, stride*height long.
// The slice is shared; callers must treat it as read-only.
func (f *MosaicFrame) Samples() []uint16 { return f.samples }

// At returns the sample at (x, y). It panics when out of range.
func (f *MosaicFrame) At(x, y int) uint16 {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		panic(fmt.Sprintf("frame: At(%d, %d) outside %dx%d", x, y, f.width, f.height))
	}
	return f.samples[y*f.stride+x]
}

// Row returns the width visible samples of row y, without padding.
func (f *MosaicFrame) Row(y int) []uint16 {
	off := y * f.stride
	return f.samples[off : off+f.width : off+f.width]
}
