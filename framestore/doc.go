// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package framestore holds the latest captured frame on the compute device
// and hands it from the capture goroutine to the render goroutines.
//
// The store owns at most one "latest" [GpuFrame]. [Store.Publish] uploads a
// decoded mosaic into a new texture and swaps it in atomically;
// [Store.Current] returns a [Lease] on whatever is latest at that instant.
// A lease keeps its frame alive even if newer frames are published while a
// render pass is still reading it, so a pass must take one lease at its
// start and use it until it ends.
//
// Frames are reference counted. The store holds one reference for the
// latest frame and every lease holds another; the texture is destroyed when
// the last reference is released.
//
// # First Frame
//
// The first frame published to a store becomes visible only after a short
// delay (see [WithFirstFrameDelay]). This gives display surfaces created
// alongside the first capture time to initialise. The delay applies once;
// every later publish is visible immediately.
package framestore
