// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"encoding/binary"
	"fmt"
	"time"
)

// RawFrame is a capture as delivered by the sensor subsystem.
// Data is only valid for the duration of the delivery callback.
type RawFrame struct {
	Data        []byte
	Width       int
	Height      int
	BytesPerRow int
	Format      PixelFormat

	// Pattern is used for formats whose tag carries no mosaic phase.
	Pattern Pattern

	// Sequence and CapturedAt are optional sensor metadata.
	Sequence   uint64
	CapturedAt time.Time
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	order   binary.ByteOrder
	pattern Pattern
	seq     uint64
	at      time.Time
}

// WithByteOrder sets the byte order of the 16-bit samples in the buffer.
// The default is little-endian.
func WithByteOrder(order binary.ByteOrder) DecodeOption {
	return func(o *decodeOptions) {
		if order != nil {
			o.order = order
		}
	}
}

// WithPattern sets the mosaic phase for formats whose tag does not encode
// one (FormatGray16). Bayer tags always use their own phase.
func WithPattern(p Pattern) DecodeOption {
	return func(o *decodeOptions) {
		o.pattern = p
	}
}

// WithMetadata attaches the sensor sequence number and capture time.
func WithMetadata(seq uint64, capturedAt time.Time) DecodeOption {
	return func(o *decodeOptions) {
		o.seq = seq
		o.at = capturedAt
	}
}

// Decode validates a raw sensor buffer and copies it into a MosaicFrame.
//
// The row stride in samples is bytesPerRow/2. Decode fails with
// ErrUnsupportedFormat when format is not a supported mosaic format, and
// with ErrMalformedBuffer when width or height is odd or non-positive,
// bytesPerRow is odd or shorter than a row, or buf holds fewer than
// stride*height samples. Extra trailing bytes are ignored.
//
// The returned frame does not reference buf.
func Decode(buf []byte, width, height int, format PixelFormat, bytesPerRow int, opts ...DecodeOption) (*MosaicFrame, error) {
	o := decodeOptions{order: binary.LittleEndian, pattern: RGGB}
	for _, opt := range opts {
		opt(&o)
	}

	if !format.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if bytesPerRow <= 0 || bytesPerRow%2 != 0 {
		return nil, fmt.Errorf("%w: bytes per row %d is not a positive whole number of samples", ErrMalformedBuffer, bytesPerRow)
	}
	stride := bytesPerRow / 2
	if err := checkGeometry(width, height, stride); err != nil {
		return nil, err
	}
	need := stride * height * 2
	if len(buf) < need {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrMalformedBuffer, len(buf), need)
	}

	pattern, ok := format.Pattern()
	if !ok {
		pattern = o.pattern
	}
	if !pattern.Valid() {
		return nil, fmt.Errorf("frame: invalid pattern %d", pattern)
	}

	samples := make([]uint16, stride*height)
	for i := range samples {
		samples[i] = o.order.Uint16(buf[2*i:])
	}

	return &MosaicFrame{
		width:   width,
		height:  height,
		stride:  stride,
		samples: samples,
		pattern: pattern,
		format:  format,
		seq:     o.seq,
		at:      o.at,
	}, nil
}

// DecodeRaw decodes a sensor delivery.
func DecodeRaw(raw RawFrame, opts ...DecodeOption) (*MosaicFrame, error) {
	all := make([]DecodeOption, 0, len(opts)+2)
	all = append(all, WithPattern(raw.Pattern), WithMetadata(raw.Sequence, raw.CapturedAt))
	all = append(all, opts...)
	return Decode(raw.Data, raw.Width, raw.Height, raw.Format, raw.BytesPerRow, all...)
}

// Encode writes the visible samples of f into a tightly packed buffer in
// the given byte order, one row after another. It is the inverse of Decode
// for buffers without row padding and is used by simulated sensors.
func Encode(f *MosaicFrame, order binary.ByteOrder) []byte {
	if order == nil {
		order = binary.LittleEndian
	}
	out := make([]byte, f.width*f.height*2)
	i := 0
	for y := 0; y < f.height; y++ {
		for _, s := range f.Row(y) {
			order.PutUint16(out[i:], s)
			i += 2
		}
	}
	return out
}
