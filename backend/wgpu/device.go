// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camproc/backend"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.BackendWGPU, func(cfg backend.Config) (gpucore.Device, error) {
		if cfg.Provider != nil {
			return NewFromProvider(cfg.Provider, cfg.MemoryBudget)
		}
		return New(cfg.MemoryBudget)
	})
}

const (
	// submitTimeout bounds every wait on the GPU.
	submitTimeout = 5 * time.Second

	// pollInterval is the sleep between completion polls.
	pollInterval = 50 * time.Microsecond
)

var (
	errNoAdapter  = errors.New("wgpu: no GPU adapters found")
	errGPUTimeout = errors.New("wgpu: timed out waiting for GPU")
)

type texture struct {
	desc gpucore.TextureDesc
	buf  hal.Buffer
	size uint64
}

type kernel struct {
	label      string
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// Device is a gpucore.Device running kernels as compute shaders.
//
// All queue work is serialized by mu.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	name     string

	textures map[gpucore.TextureID]*texture
	kernels  map[gpucore.KernelID]*kernel
	nextID   uint64
	budget   int64
	live     int64
	closed   bool
}

var _ gpucore.Device = (*Device)(nil)

// New opens the first discrete or integrated Vulkan adapter.
func New(budget int64) (*Device, error) {
	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := newDevice(openDev.Device, openDev.Queue, budget)
	d.instance = instance
	d.name = selected.Info.Name
	logging.Logger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// NewFromProvider uses a shared GPU device. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// The shared device is not destroyed by Close.
func NewFromProvider(provider any, budget int64) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	d := newDevice(device, queue, budget)
	d.external = true
	d.name = "shared"
	logging.Logger().Info("wgpu: using shared device")
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, budget int64) *Device {
	return &Device{
		device:   device,
		queue:    queue,
		textures: make(map[gpucore.TextureID]*texture),
		kernels:  make(map[gpucore.KernelID]*kernel),
		budget:   budget,
	}
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.BackendWGPU }

// AdapterName returns the name of the GPU in use.
func (d *Device) AdapterName() string { return d.name }

// alignedSize rounds a packed texture size up to whole u32 words.
func alignedSize(n int) uint64 {
	return uint64((n + 3) &^ 3) //nolint:gosec // n is a positive texture size
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 || format.BytesPerPixel() == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: invalid texture %dx%d %v", width, height, format)
	}
	size := alignedSize(gpucore.TextureSize(width, height, format))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if d.budget > 0 && d.live+int64(size) > d.budget { //nolint:gosec // size fits int64
		return gpucore.InvalidID, fmt.Errorf("wgpu: %d bytes requested, %d of %d in use: %w",
			size, d.live, d.budget, gpucore.ErrOutOfMemory)
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camproc_texture",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture buffer: %w: %w", gpucore.ErrOutOfMemory, err)
	}

	d.live += int64(size) //nolint:gosec // size fits int64
	d.nextID++
	id := gpucore.TextureID(d.nextID)
	d.textures[id] = &texture{
		desc: gpucore.TextureDesc{Width: width, Height: height, Format: format},
		buf:  buf,
		size: size,
	}
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.live -= int64(tex.size) //nolint:gosec // size fits int64
	if !d.closed {
		d.device.DestroyBuffer(tex.buf)
	}
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.lookupTexture(id)
	if err != nil {
		return err
	}
	if len(data) != tex.desc.Size() {
		return fmt.Errorf("wgpu: write %d bytes into %v texture of %d: %w",
			len(data), tex.desc.Format, tex.desc.Size(), gpucore.ErrSizeMismatch)
	}
	if uint64(len(data)) != tex.size {
		padded := make([]byte, tex.size)
		copy(padded, data)
		data = padded
	}
	if err := d.queue.WriteBuffer(tex.buf, 0, data); err != nil {
		return fmt.Errorf("wgpu: write texture %d: %w", id, err)
	}
	return nil
}

// ReadTexture implements gpucore.Device.
func (d *Device) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.lookupTexture(id)
	if err != nil {
		return nil, err
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camproc_readback",
		Size:  tex.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "camproc_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("camproc_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(tex.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: tex.size},
	})
	if err := d.submitAndWait(encoder); err != nil {
		return nil, err
	}

	mapping, err := d.device.MapBuffer(staging, 0, tex.size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map readback buffer: %w", err)
	}
	out := make([]byte, tex.desc.Size())
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), tex.size)) //nolint:gosec // mapped range is tex.size bytes
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("wgpu: unmap readback buffer: %w", err)
	}
	return out, nil
}

// DescribeTexture implements gpucore.Device.
func (d *Device) DescribeTexture(id gpucore.TextureID) (gpucore.TextureDesc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.lookupTexture(id)
	if err != nil {
		return gpucore.TextureDesc{}, err
	}
	return tex.desc, nil
}

// lookupTexture must be called with mu held.
func (d *Device) lookupTexture(id gpucore.TextureID) (*texture, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("wgpu: texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	return tex, nil
}

// submitAndWait ends encoding, submits and polls until the GPU has
// completed the submission. Must be called with mu held.
func (d *Device) submitAndWait(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return waitSubmission(d.queue, idx, submitTimeout)
}

// waitSubmission blocks until q reports submission idx as completed.
func waitSubmission(q hal.Queue, idx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for q.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("submission %d: %w", idx, errGPUTimeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}
