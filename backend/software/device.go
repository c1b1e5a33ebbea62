// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software provides the host memory compute backend.
//
// Textures live in pooled host buffers. A kernel's WGSL source is compiled
// with naga when the kernel is created, so a kernel that would not build on
// the GPU fails here too; dispatches then run the kernel's CPU body, one
// 16x16 work-group per task on a work-stealing pool.
package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/camproc/backend"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
	"github.com/gogpu/camproc/internal/parallel"
	"github.com/gogpu/camproc/internal/texpool"
)

func init() {
	backend.Register(backend.BackendSoftware, func(cfg backend.Config) (gpucore.Device, error) {
		return New(cfg.Workers, cfg.MemoryBudget), nil
	})
}

// idle buffers retained per texture size
const bucketSize = 8

type texture struct {
	desc gpucore.TextureDesc
	data []byte
}

// Device is a gpucore.Device backed by host memory.
type Device struct {
	mu       sync.RWMutex
	textures map[gpucore.TextureID]*texture
	kernels  map[gpucore.KernelID]*gpucore.Kernel
	nextID   uint64
	closed   bool

	pool *parallel.WorkerPool
	mem  *texpool.Pool
}

var _ gpucore.Device = (*Device)(nil)

// New creates a software device with the given number of workers and
// texture memory budget in bytes. Zero values mean GOMAXPROCS and
// unlimited.
func New(workers int, budget int64) *Device {
	d := &Device{
		textures: make(map[gpucore.TextureID]*texture),
		kernels:  make(map[gpucore.KernelID]*gpucore.Kernel),
		pool:     parallel.NewWorkerPool(workers),
		mem:      texpool.New(bucketSize, budget),
	}
	logging.Logger().Debug("software: device opened", "workers", d.pool.Workers(), "budget", budget)
	return d
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.BackendSoftware }

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 || format.BytesPerPixel() == 0 {
		return gpucore.InvalidID, fmt.Errorf("software: invalid texture %dx%d %v", width, height, format)
	}

	data, err := d.mem.Get(width, height, format)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.mem.Put(width, height, format, data)
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	d.nextID++
	id := gpucore.TextureID(d.nextID)
	d.textures[id] = &texture{
		desc: gpucore.TextureDesc{Width: width, Height: height, Format: format},
		data: data,
	}
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	tex, ok := d.textures[id]
	delete(d.textures, id)
	d.mu.Unlock()

	if ok {
		d.mem.Put(tex.desc.Width, tex.desc.Height, tex.desc.Format, tex.data)
	}
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	tex, err := d.texture(id)
	if err != nil {
		return err
	}
	if len(data) != len(tex.data) {
		return fmt.Errorf("software: write %d bytes into %v texture of %d: %w",
			len(data), tex.desc.Format, len(tex.data), gpucore.ErrSizeMismatch)
	}
	copy(tex.data, data)
	return nil
}

// ReadTexture implements gpucore.Device.
func (d *Device) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	tex, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

// DescribeTexture implements gpucore.Device.
func (d *Device) DescribeTexture(id gpucore.TextureID) (gpucore.TextureDesc, error) {
	tex, err := d.texture(id)
	if err != nil {
		return gpucore.TextureDesc{}, err
	}
	return tex.desc, nil
}

func (d *Device) texture(id gpucore.TextureID) (*texture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("software: texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	return tex, nil
}

// CreateKernel implements gpucore.Device.
func (d *Device) CreateKernel(k *gpucore.Kernel) (gpucore.KernelID, error) {
	if k == nil || k.CPU == nil {
		return gpucore.InvalidID, fmt.Errorf("software: kernel has no host implementation")
	}
	if _, err := gpucore.CompileWGSL(k.Label, k.WGSL); err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	d.nextID++
	id := gpucore.KernelID(d.nextID)
	kc := *k
	d.kernels[id] = &kc
	logging.Logger().Debug("software: kernel created", "label", k.Label, "id", id)
	return id, nil
}

// DestroyKernel implements gpucore.Device.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.kernels, id)
}

// Dispatch implements gpucore.Device.
func (d *Device) Dispatch(desc *gpucore.Dispatch) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return gpucore.ErrDeviceClosed
	}
	k, kok := d.kernels[desc.Kernel]
	in, iok := d.textures[desc.Input]
	out, ook := d.textures[desc.Output]
	d.mu.RUnlock()

	switch {
	case !kok:
		return fmt.Errorf("software: kernel %d: %w", desc.Kernel, gpucore.ErrUnknownResource)
	case !iok:
		return fmt.Errorf("software: input texture %d: %w", desc.Input, gpucore.ErrUnknownResource)
	case !ook:
		return fmt.Errorf("software: output texture %d: %w", desc.Output, gpucore.ErrUnknownResource)
	}
	if desc.Width > out.desc.Width || desc.Height > out.desc.Height {
		return fmt.Errorf("software: domain %dx%d exceeds output %dx%d",
			desc.Width, desc.Height, out.desc.Width, out.desc.Height)
	}

	err := d.pool.ForEachTile(desc.Width, desc.Height, gpucore.WorkgroupSize, func(x0, y0, x1, y1 int) {
		k.CPU(&gpucore.Invocation{
			Params:     desc.Params,
			Input:      in.data,
			InputDesc:  in.desc,
			Output:     out.data,
			OutputDesc: out.desc,
			Width:      desc.Width,
			Height:     desc.Height,
			X0:         x0,
			Y0:         y0,
			X1:         x1,
			Y1:         y1,
		})
	})
	if err != nil {
		return fmt.Errorf("software: dispatch %q: %w", k.Label, err)
	}
	return nil
}

// Stats returns texture memory counters.
func (d *Device) Stats() texpool.Stats {
	return d.mem.Stats()
}

// Close implements gpucore.Device.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	clear(d.textures)
	clear(d.kernels)
	d.mu.Unlock()

	d.pool.Close()
	d.mem.Reset()
}
