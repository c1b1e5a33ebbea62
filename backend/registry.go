// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Open("") (first device that opens wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a device from the named backend.
//
// An empty name or "auto" selects by priority: wgpu, then software, then
// any other registered backend. A backend whose factory fails is skipped
// with a warning; the error is returned only when nothing opens.
func Open(name string, cfg Config) (gpucore.Device, error) {
	if name != "" && name != "auto" {
		registryMu.RLock()
		factory, ok := factories[name]
		registryMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
		}
		dev, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
		}
		return dev, nil
	}

	var lastErr error
	for _, candidate := range candidates() {
		registryMu.RLock()
		factory := factories[candidate]
		registryMu.RUnlock()
		if factory == nil {
			continue
		}
		dev, err := factory(cfg)
		if err != nil {
			logging.Logger().Warn("backend: unavailable, trying next", "backend", candidate, "err", err)
			lastErr = err
			continue
		}
		logging.Logger().Info("backend: selected", "backend", dev.Name())
		return dev, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, lastErr)
	}
	return nil, ErrBackendNotAvailable
}

// candidates returns registered names in selection order.
func candidates() []string {
	out := slices.Clone(backendPriority)
	for _, name := range Available() {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
