// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

// Device abstracts over the compute backends.
//
// Implementations must be safe for concurrent use: the capture goroutine
// creates and uploads textures while render goroutines dispatch kernels.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while a dispatch uses it is undefined behavior
//   - IDs become invalid after destruction
type Device interface {
	// Name returns the backend identifier (e.g. "software", "wgpu").
	Name() string

	// === Texture Management ===

	// CreateTexture allocates an uninitialised texture.
	// Returns an error wrapping ErrOutOfMemory when allocation fails.
	CreateTexture(width, height int, format TextureFormat) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// WriteTexture replaces the whole content of a texture.
	// len(data) must equal the packed texture size.
	WriteTexture(id TextureID, data []byte) error

	// ReadTexture returns a copy of the texture content.
	// This may cause a device-host synchronization stall.
	ReadTexture(id TextureID) ([]byte, error)

	// DescribeTexture returns the dimensions and format of a live texture.
	DescribeTexture(id TextureID) (TextureDesc, error)

	// === Kernels ===

	// CreateKernel compiles a compute kernel.
	// Returns an error when the WGSL source does not compile or the backend
	// cannot create the pipeline.
	CreateKernel(k *Kernel) (KernelID, error)

	// DestroyKernel releases a kernel. Unknown IDs are ignored.
	DestroyKernel(id KernelID)

	// Dispatch runs a kernel over a Width x Height pixel domain and returns
	// once the output texture holds the result.
	Dispatch(d *Dispatch) error

	// Close releases all device resources.
	Close()
}
