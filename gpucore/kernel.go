// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

// WorkgroupSize is the edge length of the square work-group every kernel
// is written for. It matches @workgroup_size(16, 16) in the WGSL sources.
const WorkgroupSize = 16

// Kernel describes a compute kernel in both of its forms.
//
// WGSL must declare, in @group(0):
//
//	@binding(0) var<uniform> params: Params;
//	@binding(1) var<storage, read> src: array<u32>;
//	@binding(2) var<storage, read_write> dst: array<u32>;
//
// CPU is the host implementation of the same kernel. It must produce
// bit-identical output; the software backend runs it after validating the
// WGSL source.
type Kernel struct {
	// Label is a debug label, also used as the cache key by callers.
	Label string

	// WGSL is the kernel source.
	WGSL string

	// EntryPoint is the name of the @compute function.
	EntryPoint string

	// CPU is the host implementation.
	CPU CPUKernel
}

// CPUKernel computes one work-group on the host.
type CPUKernel func(inv *Invocation)

// Invocation is the work-group a CPUKernel computes.
// Input and Output are whole textures; the kernel writes only the pixels
// of its rectangle.
type Invocation struct {
	Params []byte

	Input      []byte
	InputDesc  TextureDesc
	Output     []byte
	OutputDesc TextureDesc

	// Domain size in pixels.
	Width, Height int

	// X0, Y0 inclusive and X1, Y1 exclusive bound the work-group rectangle.
	X0, Y0, X1, Y1 int
}

// Dispatch describes one kernel invocation over a pixel domain.
type Dispatch struct {
	Kernel KernelID

	// Params is the uniform block, a multiple of 16 bytes.
	Params []byte

	Input  TextureID
	Output TextureID

	// Width and Height are the domain in pixels.
	Width, Height int
}

// WorkgroupCount returns the number of work-groups along each axis needed
// to cover a width x height domain.
func WorkgroupCount(width, height int) (x, y uint32) {
	//nolint:gosec // dimensions are validated positive by callers
	return uint32((width + WorkgroupSize - 1) / WorkgroupSize), uint32((height + WorkgroupSize - 1) / WorkgroupSize)
}

// ParamWords packs uint32 values into a uniform block, zero padded to a
// multiple of 16 bytes.
func ParamWords(words ...uint32) []byte {
	n := (len(words) + 3) &^ 3
	buf := make([]byte, n*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// ParamWord returns the i-th uint32 of a uniform block.
func ParamWord(params []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(params[i*4:])
}

// CompileWGSL compiles WGSL source to SPIR-V words.
// This is the common shader compilation step of every backend.
func CompileWGSL(label, wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile kernel %q: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return spirvCode, nil
}
