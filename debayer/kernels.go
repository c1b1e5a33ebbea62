// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	_ "embed"

	"github.com/gogpu/camproc/gpucore"
)

// Embedded WGSL shader sources. Kernels are common + (mosaic) + body.

//go:embed shaders/common.wgsl
var commonShaderSource string

//go:embed shaders/mosaic.wgsl
var mosaicShaderSource string

//go:embed shaders/bilinear.wgsl
var bilinearShaderSource string

//go:embed shaders/malvar.wgsl
var malvarShaderSource string

//go:embed shaders/sobel.wgsl
var sobelShaderSource string

type kernelKind uint8

const (
	kernelBilinear kernelKind = iota
	kernelMalvar
	kernelSobel
	numKernels
)

func kernelFor(kind kernelKind) *gpucore.Kernel {
	switch kind {
	case kernelBilinear:
		return &gpucore.Kernel{
			Label:      "debayer_bilinear",
			WGSL:       commonShaderSource + mosaicShaderSource + bilinearShaderSource,
			EntryPoint: "main",
			CPU:        bilinearCPU,
		}
	case kernelMalvar:
		return &gpucore.Kernel{
			Label:      "debayer_malvar",
			WGSL:       commonShaderSource + mosaicShaderSource + malvarShaderSource,
			EntryPoint: "main",
			CPU:        malvarCPU,
		}
	default:
		return &gpucore.Kernel{
			Label:      "filter_sobel",
			WGSL:       commonShaderSource + sobelShaderSource,
			EntryPoint: "main",
			CPU:        sobelCPU,
		}
	}
}

func (a Algorithm) kernel() kernelKind {
	if a == Malvar {
		return kernelMalvar
	}
	return kernelBilinear
}
