// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package debayer reconstructs full colour images from Bayer mosaics on a
// compute device.
//
// Each algorithm is a compute kernel written twice: in WGSL for GPU
// backends and in Go for the software backend. Both compute with the same
// integer arithmetic and produce identical output, which is what the tests
// rely on.
//
// # Algorithms
//
//   - [Bilinear]: every missing channel is the rounded mean of the nearest
//     same-colour samples. Border pixels average only the neighbours that
//     lie inside the image.
//   - [Malvar]: the Malvar-He-Cutler gradient-corrected 5x5 kernels,
//     clamped to the sample range. Pixels closer than two samples to a
//     border fall back to Bilinear.
//
// # Post Filters
//
//   - [FilterNone]
//   - [FilterEdgeDetect]: Sobel gradient magnitude of the luma, written as
//     a grey image.
//
// Output is RGBA16 in the sample domain of the mosaic: a 14-bit mosaic
// yields channels in [0, 16383].
package debayer
