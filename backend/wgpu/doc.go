// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu provides the GPU compute backend using gogpu/wgpu HAL.
//
// Textures are storage buffers holding the packed texel words, so the
// kernels address them as array<u32>. Every dispatch binds a uniform
// parameter block at binding 0, the input buffer at binding 1 and the
// output buffer at binding 2, and waits on a fence before returning.
//
// The backend registers itself as "wgpu" on import. It opens its own
// Vulkan device unless [backend.Config.Provider] shares one.
//
// Build with -tags nogpu to exclude it.
package wgpu
