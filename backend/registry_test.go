// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/camproc/gpucore"
)

// fakeDevice satisfies gpucore.Device for registry tests.
type fakeDevice struct {
	gpucore.Device
	name string
}

func (d *fakeDevice) Name() string { return d.name }

func TestRegistry_RegisterUnregister(t *testing.T) {
	Register("fake", func(Config) (gpucore.Device, error) { return &fakeDevice{name: "fake"}, nil })
	defer Unregister("fake")

	if !IsRegistered("fake") {
		t.Fatal("IsRegistered(fake) = false after Register")
	}
	if !slices.Contains(Available(), "fake") {
		t.Errorf("Available() = %v, missing fake", Available())
	}

	Unregister("fake")
	if IsRegistered("fake") {
		t.Error("IsRegistered(fake) = true after Unregister")
	}
}

func TestRegistry_OpenByName(t *testing.T) {
	var got Config
	Register("fake", func(cfg Config) (gpucore.Device, error) {
		got = cfg
		return &fakeDevice{name: "fake"}, nil
	})
	defer Unregister("fake")

	dev, err := Open("fake", Config{Workers: 3, MemoryBudget: 1 << 20})
	if err != nil {
		t.Fatalf("Open(fake) error = %v", err)
	}
	if dev.Name() != "fake" {
		t.Errorf("Name() = %q, want fake", dev.Name())
	}
	if got.Workers != 3 || got.MemoryBudget != 1<<20 {
		t.Errorf("factory Config = %+v", got)
	}
}

func TestRegistry_OpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist", Config{})
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistry_OpenNamedFailure(t *testing.T) {
	errNoGPU := errors.New("no adapters")
	Register("broken", func(Config) (gpucore.Device, error) { return nil, errNoGPU })
	defer Unregister("broken")

	_, err := Open("broken", Config{})
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, errNoGPU) {
		t.Errorf("Open(broken) error = %v, want both sentinel and cause", err)
	}
}

func TestRegistry_OpenAutoFallsBack(t *testing.T) {
	Register("zz-broken", func(Config) (gpucore.Device, error) { return nil, errors.New("no adapters") })
	Register("zz-works", func(Config) (gpucore.Device, error) { return &fakeDevice{name: "zz-works"}, nil })
	defer Unregister("zz-broken")
	defer Unregister("zz-works")

	for _, name := range []string{"", "auto"} {
		dev, err := Open(name, Config{})
		if err != nil {
			t.Fatalf("Open(%q) error = %v", name, err)
		}
		if dev.Name() != "zz-works" {
			t.Errorf("Open(%q).Name() = %q, want zz-works", name, dev.Name())
		}
	}
}

func TestRegistry_OpenAutoNothingWorks(t *testing.T) {
	Register("zz-broken", func(Config) (gpucore.Device, error) { return nil, errors.New("no adapters") })
	defer Unregister("zz-broken")

	if _, err := Open("", Config{}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open() error = %v, want ErrBackendNotAvailable", err)
	}
}
