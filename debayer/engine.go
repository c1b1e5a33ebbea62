// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
)

// ErrComputeDispatchFailed is returned when the device cannot compile a
// kernel, allocate an output or run a dispatch. The engine never retries;
// the caller decides whether to try again on the next frame.
var ErrComputeDispatchFailed = errors.New("debayer: compute dispatch failed")

// Source is a mosaic texture to demosaic. *framestore.GpuFrame implements it.
type Source interface {
	Texture() gpucore.TextureID
	Width() int
	Height() int
	Pattern() frame.Pattern
	BitDepth() int
}

// Engine runs the demosaic and filter kernels on a device.
//
// Kernels are created on first use and cached. Engine is safe for
// concurrent use; concurrent calls must use distinct Surfaces.
type Engine struct {
	dev gpucore.Device

	mu      sync.Mutex
	kernels [numKernels]gpucore.KernelID
}

// New returns an engine dispatching to dev.
func New(dev gpucore.Device) *Engine {
	return &Engine{dev: dev}
}

// Device returns the device the engine dispatches to.
func (e *Engine) Device() gpucore.Device { return e.dev }

// kernel returns the cached kernel, creating it if needed. A failed
// creation is not cached.
func (e *Engine) kernel(kind kernelKind) (gpucore.KernelID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id := e.kernels[kind]; id != gpucore.InvalidID {
		return id, nil
	}
	k := kernelFor(kind)
	id, err := e.dev.CreateKernel(k)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: create %s: %w", ErrComputeDispatchFailed, k.Label, err)
	}
	e.kernels[kind] = id
	logging.Logger().Debug("debayer: kernel ready", "kernel", k.Label, "device", e.dev.Name())
	return id, nil
}

// Warm creates every kernel up front so compile errors surface at startup.
func (e *Engine) Warm() error {
	for kind := range numKernels {
		if _, err := e.kernel(kind); err != nil {
			return err
		}
	}
	return nil
}

// Debayer demosaics src with alg into out, resizing out to the frame size.
func (e *Engine) Debayer(src Source, alg Algorithm, out *Surface) error {
	if src == nil || out == nil {
		return fmt.Errorf("%w: nil source or surface", ErrComputeDispatchFailed)
	}
	w, h := src.Width(), src.Height()

	kid, err := e.kernel(alg.kernel())
	if err != nil {
		return err
	}
	if err := out.Ensure(w, h); err != nil {
		return err
	}

	err = e.dev.Dispatch(&gpucore.Dispatch{
		Kernel: kid,
		Params: kernelParams(w, h, src.Pattern(), src.BitDepth()),
		Input:  src.Texture(),
		Output: out.Texture(),
		Width:  w,
		Height: h,
	})
	if err != nil {
		return fmt.Errorf("%w: %s %dx%d: %w", ErrComputeDispatchFailed, alg, w, h, err)
	}
	out.bitDepth = src.BitDepth()
	return nil
}

// ApplyFilter runs f over the image in s, in place.
func (e *Engine) ApplyFilter(f Filter, s *Surface) error {
	if f == FilterNone {
		return nil
	}
	if f != FilterEdgeDetect {
		return fmt.Errorf("%w: unknown filter %v", ErrComputeDispatchFailed, f)
	}
	if s.Texture() == gpucore.InvalidID {
		return fmt.Errorf("%w: filter on empty surface", ErrComputeDispatchFailed)
	}

	kid, err := e.kernel(kernelSobel)
	if err != nil {
		return err
	}
	if err := s.ensureScratch(); err != nil {
		return err
	}

	err = e.dev.Dispatch(&gpucore.Dispatch{
		Kernel: kid,
		Params: kernelParams(s.width, s.height, frame.RGGB, s.bitDepth),
		Input:  s.tex,
		Output: s.scratch,
		Width:  s.width,
		Height: s.height,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrComputeDispatchFailed, f, err)
	}
	s.swap()
	return nil
}

// Close destroys the cached kernels.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, id := range e.kernels {
		if id != gpucore.InvalidID {
			e.dev.DestroyKernel(id)
			e.kernels[i] = gpucore.InvalidID
		}
	}
}
