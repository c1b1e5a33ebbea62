// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import (
	"errors"
	"fmt"
)

// Resource IDs
//
// These opaque IDs represent device resources. Each backend maintains a
// mapping between IDs and actual resources. IDs are never reused.

// TextureID is an opaque handle to a device texture.
type TextureID uint64

// KernelID is an opaque handle to a compiled compute kernel.
type KernelID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Device errors.
var (
	// ErrOutOfMemory is returned when a backend cannot allocate a resource.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")

	// ErrUnknownResource is returned for IDs that were never created or
	// have already been destroyed.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrDeviceClosed is returned by every operation after Close.
	ErrDeviceClosed = errors.New("gpucore: device closed")

	// ErrSizeMismatch is returned when texture data does not match the
	// texture dimensions and format.
	ErrSizeMismatch = errors.New("gpucore: data size does not match texture")
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatR16Uint is a single 16-bit unsigned channel (mosaic samples).
	TextureFormatR16Uint TextureFormat = iota + 1

	// TextureFormatRGBA16Uint is four 16-bit unsigned channels (debayered colour).
	TextureFormatRGBA16Uint

	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm
)

// BytesPerPixel returns the packed size of one texel.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR16Uint:
		return 2
	case TextureFormatRGBA16Uint:
		return 8
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR16Uint:
		return "r16uint"
	case TextureFormatRGBA16Uint:
		return "rgba16uint"
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint32(f))
	}
}

// TextureSize returns the number of bytes of a packed texture.
func TextureSize(width, height int, format TextureFormat) int {
	return width * height * format.BytesPerPixel()
}

// TextureDesc describes a live texture.
type TextureDesc struct {
	Width  int
	Height int
	Format TextureFormat
}

// Size returns the packed size of the texture in bytes.
func (d TextureDesc) Size() int {
	return TextureSize(d.Width, d.Height, d.Format)
}
