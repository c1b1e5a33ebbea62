// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame decodes raw sensor buffers into validated Bayer mosaic frames.
//
// A sensor delivers a byte buffer together with its reported dimensions,
// row pitch and a pixel format tag. [Decode] checks the tag against the
// supported single-channel mosaic formats, validates the geometry and copies
// the bytes into a [MosaicFrame] of 16-bit samples. The source buffer is
// never retained: capture subsystems typically recycle it as soon as the
// delivery callback returns.
//
// # Byte Order
//
// Samples are reinterpreted without any value transformation. The decoder
// assumes little-endian 16-bit samples, which is the native order of every
// capture device this package has been used with. When porting to a sensor
// with a different order pass [WithByteOrder].
//
// # Mosaic Layout
//
// Only the standard repeating 2x2 Bayer tile is supported, in its four
// phases ([RGGB], [BGGR], [GRBG], [GBRG]). Width and height must both be even
// so that every tile is complete.
package frame
