// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend selects the compute device the pipeline runs on.
//
// Backends register a [Factory] from init() and are opened by name or by
// priority:
//
//	import (
//		_ "github.com/gogpu/camproc/backend/software"
//		_ "github.com/gogpu/camproc/backend/wgpu"
//	)
//
//	dev, err := backend.Open("", backend.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Available Backends
//
//   - "wgpu": compute shaders through gogpu/wgpu HAL (Vulkan). Excluded by
//     the nogpu build tag.
//   - "software": host memory, kernels run on a worker pool (always available)
package backend
