// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	"fmt"
	"image"

	"github.com/gogpu/camproc/gpucore"
)

// Surface is a caller-owned RGBA16 output texture.
//
// A Surface is reused across frames: Ensure reallocates only when the
// frame size changes. A Surface is not safe for concurrent use; each
// render cell owns its own.
type Surface struct {
	dev      gpucore.Device
	tex      gpucore.TextureID
	scratch  gpucore.TextureID
	width    int
	height   int
	bitDepth int
}

// NewSurface returns an empty surface on dev.
func NewSurface(dev gpucore.Device) *Surface {
	return &Surface{dev: dev}
}

// Texture returns the texture holding the current image.
func (s *Surface) Texture() gpucore.TextureID { return s.tex }

// Width returns the surface width, 0 before the first Ensure.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height, 0 before the first Ensure.
func (s *Surface) Height() int { return s.height }

// BitDepth returns the bit depth of the last image written.
func (s *Surface) BitDepth() int { return s.bitDepth }

// Ensure makes the surface width x height, reallocating if needed.
// Allocation failures wrap ErrComputeDispatchFailed.
func (s *Surface) Ensure(width, height int) error {
	if s.tex != gpucore.InvalidID && s.width == width && s.height == height {
		return nil
	}
	s.Release()

	tex, err := s.dev.CreateTexture(width, height, gpucore.TextureFormatRGBA16Uint)
	if err != nil {
		return fmt.Errorf("%w: allocate %dx%d surface: %w", ErrComputeDispatchFailed, width, height, err)
	}
	s.tex, s.width, s.height = tex, width, height
	return nil
}

// ensureScratch allocates the second texture post filters write into.
func (s *Surface) ensureScratch() error {
	if s.scratch != gpucore.InvalidID {
		return nil
	}
	tex, err := s.dev.CreateTexture(s.width, s.height, gpucore.TextureFormatRGBA16Uint)
	if err != nil {
		return fmt.Errorf("%w: allocate filter scratch: %w", ErrComputeDispatchFailed, err)
	}
	s.scratch = tex
	return nil
}

// swap makes the scratch texture current.
func (s *Surface) swap() {
	s.tex, s.scratch = s.scratch, s.tex
}

// Read copies the surface to the host.
func (s *Surface) Read() (*image.RGBA64, error) {
	if s.tex == gpucore.InvalidID {
		return nil, fmt.Errorf("debayer: read of empty surface")
	}
	data, err := s.dev.ReadTexture(s.tex)
	if err != nil {
		return nil, fmt.Errorf("debayer: read surface: %w", err)
	}
	return toRGBA64(data, s.width, s.height), nil
}

// Release frees the surface textures. The surface may be reused.
func (s *Surface) Release() {
	if s.tex != gpucore.InvalidID {
		s.dev.DestroyTexture(s.tex)
	}
	if s.scratch != gpucore.InvalidID {
		s.dev.DestroyTexture(s.scratch)
	}
	s.tex, s.scratch = gpucore.InvalidID, gpucore.InvalidID
	s.width, s.height = 0, 0
}
