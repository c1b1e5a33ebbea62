// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpucore defines the compute device contract shared by the frame
// store, the debayer engine and the backends.
//
// A [Device] owns textures and compute kernels and runs dispatches over a
// two-dimensional pixel domain. Two implementations exist:
//
//   - backend/wgpu: a gogpu/wgpu HAL device; textures are storage buffers
//     and kernels are WGSL compiled to SPIR-V with naga
//
//   - backend/software: host memory textures; kernels are validated by
//     compiling their WGSL with naga and then executed by their CPU body,
//     one work-group per task on a worker pool
//
//     +-------------------+
//     |  framestore /     |
//     |  debayer          |
//     +---------+---------+
//     | gpucore.Device
//     +--------------+--------------+
//     |                             |
//     +---------v---------+         +---------v---------+
//     |  backend/wgpu     |         | backend/software  |
//     |  (hal.Device)     |         | (worker pool)     |
//     +-------------------+         +-------------------+
//
// # Resource Management
//
// Resources are referred to by opaque IDs ([TextureID], [KernelID]).
// Textures are immutable from the point of view of readers: the frame
// store never writes a texture that has been published, it allocates a new
// one. Destroying a texture that a dispatch still reads is a caller bug;
// framestore uses reference counting to prevent it.
//
// # Texture Layout
//
// Texture data crossing the Device boundary is tightly packed, row-major,
// little-endian. See [TextureFormat.BytesPerPixel].
package gpucore
