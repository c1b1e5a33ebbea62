// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"

	"github.com/gogpu/camproc/gpucore"
)

// Backend names.
const (
	// BackendWGPU is the gogpu/wgpu HAL backend.
	BackendWGPU = "wgpu"

	// BackendSoftware is the host memory backend.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Config carries the settings a factory may use when opening a device.
type Config struct {
	// Workers is the size of the software worker pool. 0 means GOMAXPROCS.
	Workers int

	// MemoryBudget limits live texture bytes. 0 means unlimited.
	MemoryBudget int64

	// Provider optionally shares an existing GPU device. It must implement
	// HalDevice() any and HalQueue() any. Backends that cannot use it
	// ignore it.
	Provider any
}

// Factory opens a compute device.
type Factory func(cfg Config) (gpucore.Device, error)
