// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package camproc turns raw Bayer sensor captures into a grid of
// differently processed live images.
//
// # Overview
//
// Raw buffers from the sensor are decoded into mosaic frames, uploaded to
// a compute device and published as the latest frame. On every display
// refresh each cell of an R x C grid leases that frame and runs its own
// pipeline: a demosaic algorithm, an optional post filter and an output
// representation.
//
//	sensor ──► OnRawFrame ──► frame.Decode ──► framestore.Publish
//	                                                │ latest
//	UI ──► pipeline.Registry ──► viewport.Scheduler ┴──► debayer.Engine ──► cells
//
// # Quick Start
//
//	core, err := camproc.New(
//	    camproc.WithGrid(1, 2),
//	    camproc.WithPipelines(
//	        pipeline.Definition{Name: "Fast"},
//	        pipeline.Definition{Name: "Sharp", Debayer: debayer.Malvar},
//	    ),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	// Capture goroutine:
//	_ = core.OnRawFrame(raw)
//
//	// Render goroutine:
//	img, _ := core.RenderImage(ctx)
//
// # Backends
//
// Compute runs on a [gpucore.Device]. The wgpu backend dispatches WGSL
// kernels on a Vulkan adapter; the software backend validates the same
// kernels and runs their host bodies on a worker pool. With the default
// "auto" backend the first one that opens is used.
//
// # Concurrency
//
// The latest frame is the only state shared between the capture and
// render goroutines. It is swapped atomically and refcounted, so a render
// pass never sees a partial or destroyed frame. Registry and grid edits
// publish immutable snapshots that the render goroutine reads without
// locking.
//
// # Logging
//
// camproc is silent by default. See [SetLogger].
package camproc
