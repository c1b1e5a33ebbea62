// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
)

// CreateKernel implements gpucore.Device.
// The WGSL source is compiled to SPIR-V with naga.
func (d *Device) CreateKernel(k *gpucore.Kernel) (gpucore.KernelID, error) {
	if k == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil kernel")
	}
	spirv, err := gpucore.CompileWGSL(k.Label, k.WGSL)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	kern := &kernel{label: k.Label}
	if err := d.buildKernel(kern, k, spirv); err != nil {
		d.destroyKernel(kern)
		return gpucore.InvalidID, err
	}

	d.nextID++
	id := gpucore.KernelID(d.nextID)
	d.kernels[id] = kern
	logging.Logger().Debug("wgpu: kernel created", "label", k.Label, "spirv_words", len(spirv))
	return id, nil
}

func (d *Device) buildKernel(kern *kernel, k *gpucore.Kernel, spirv []uint32) error {
	var err error
	kern.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module %q: %w", k.Label, err)
	}

	kern.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: k.Label + "_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout %q: %w", k.Label, err)
	}

	kern.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.Label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{kern.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout %q: %w", k.Label, err)
	}

	entry := k.EntryPoint
	if entry == "" {
		entry = "main"
	}
	kern.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   k.Label,
		Layout:  kern.pipeLayout,
		Compute: hal.ComputeState{Module: kern.shader, EntryPoint: entry},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create compute pipeline %q: %w", k.Label, err)
	}
	return nil
}

// destroyKernel releases whatever part of a kernel was created.
func (d *Device) destroyKernel(kern *kernel) {
	if kern.pipeline != nil {
		d.device.DestroyComputePipeline(kern.pipeline)
	}
	if kern.pipeLayout != nil {
		d.device.DestroyPipelineLayout(kern.pipeLayout)
	}
	if kern.bindLayout != nil {
		d.device.DestroyBindGroupLayout(kern.bindLayout)
	}
	if kern.shader != nil {
		d.device.DestroyShaderModule(kern.shader)
	}
}

// DestroyKernel implements gpucore.Device.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kern, ok := d.kernels[id]
	if !ok {
		return
	}
	delete(d.kernels, id)
	if !d.closed {
		d.destroyKernel(kern)
	}
}

// Dispatch implements gpucore.Device.
func (d *Device) Dispatch(desc *gpucore.Dispatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	kern, ok := d.kernels[desc.Kernel]
	if !ok {
		return fmt.Errorf("wgpu: kernel %d: %w", desc.Kernel, gpucore.ErrUnknownResource)
	}
	in, err := d.lookupTexture(desc.Input)
	if err != nil {
		return err
	}
	out, err := d.lookupTexture(desc.Output)
	if err != nil {
		return err
	}

	params := desc.Params
	if len(params) == 0 {
		params = gpucore.ParamWords(0)
	}
	paramSize := uint64(len(params))

	uniform, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: kern.label + "_params",
		Size:  paramSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform buffer: %w", err)
	}
	defer d.device.DestroyBuffer(uniform)
	if err := d.queue.WriteBuffer(uniform, 0, params); err != nil {
		return fmt.Errorf("wgpu: write params: %w", err)
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  kern.label + "_bg",
		Layout: kern.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: paramSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: in.buf.NativeHandle(), Offset: 0, Size: in.size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: out.buf.NativeHandle(), Offset: 0, Size: out.size}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: kern.label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(kern.label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	wx, wy := gpucore.WorkgroupCount(desc.Width, desc.Height)
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: kern.label})
	pass.SetPipeline(kern.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(wx, wy, 1)
	pass.End()

	if err := d.submitAndWait(encoder); err != nil {
		return fmt.Errorf("wgpu: dispatch %q: %w", kern.label, err)
	}
	return nil
}

// Close implements gpucore.Device.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	for _, kern := range d.kernels {
		d.destroyKernel(kern)
	}
	for _, tex := range d.textures {
		d.device.DestroyBuffer(tex.buf)
	}
	clear(d.kernels)
	clear(d.textures)
	d.live = 0
	d.closed = true

	if !d.external && d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	logging.Logger().Debug("wgpu: device closed")
}
