// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	"encoding/binary"
	"errors"
	"image"
	"sync/atomic"
	"testing"

	"github.com/gogpu/camproc/backend/software"
	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/gpucore"
)

// testSource is a mosaic uploaded straight to a device.
type testSource struct {
	tex      gpucore.TextureID
	width    int
	height   int
	pattern  frame.Pattern
	bitDepth int
}

func (s *testSource) Texture() gpucore.TextureID { return s.tex }
func (s *testSource) Width() int                 { return s.width }
func (s *testSource) Height() int                { return s.height }
func (s *testSource) Pattern() frame.Pattern     { return s.pattern }
func (s *testSource) BitDepth() int              { return s.bitDepth }

func newFrame(t *testing.T, w, h int, p frame.Pattern, format frame.PixelFormat, value func(x, y int) uint16) *frame.MosaicFrame {
	t.Helper()
	samples := make([]uint16, w*h)
	for y := range h {
		for x := range w {
			samples[y*w+x] = value(x, y)
		}
	}
	f, err := frame.NewMosaicFrame(w, h, w, samples, p, format)
	if err != nil {
		t.Fatalf("NewMosaicFrame() error = %v", err)
	}
	return f
}

func upload(t *testing.T, dev gpucore.Device, f *frame.MosaicFrame) *testSource {
	t.Helper()
	tex, err := dev.CreateTexture(f.Width(), f.Height(), gpucore.TextureFormatR16Uint)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	data := make([]byte, f.Width()*f.Height()*2)
	for i, v := range f.Samples() {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	if err := dev.WriteTexture(tex, data); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	return &testSource{tex: tex, width: f.Width(), height: f.Height(), pattern: f.Pattern(), bitDepth: f.BitDepth()}
}

func runDebayer(t *testing.T, dev gpucore.Device, f *frame.MosaicFrame, alg Algorithm) *image.RGBA64 {
	t.Helper()
	eng := New(dev)
	defer eng.Close()

	src := upload(t, dev, f)
	defer dev.DestroyTexture(src.tex)

	out := NewSurface(dev)
	defer out.Release()
	if err := eng.Debayer(src, alg, out); err != nil {
		t.Fatalf("Debayer(%v) error = %v", alg, err)
	}
	img, err := out.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return img
}

func rgbAt(img *image.RGBA64, x, y int) [3]uint16 {
	c := img.RGBA64At(x, y)
	return [3]uint16{c.R, c.G, c.B}
}

var allPatterns = []frame.Pattern{frame.RGGB, frame.BGGR, frame.GRBG, frame.GBRG}

// =============================================================================
// Bilinear
// =============================================================================

func TestBilinear_FlatField(t *testing.T) {
	dev := software.New(2, 0)
	defer dev.Close()

	sizes := [][2]int{{2, 2}, {4, 4}, {6, 8}, {34, 18}}
	for _, p := range allPatterns {
		for _, sz := range sizes {
			for _, alg := range []Algorithm{Bilinear, Malvar} {
				const v = 1234
				f := newFrame(t, sz[0], sz[1], p, frame.FormatGray16, func(int, int) uint16 { return v })
				img := runDebayer(t, dev, f, alg)
				for y := range sz[1] {
					for x := range sz[0] {
						if got := rgbAt(img, x, y); got != [3]uint16{v, v, v} {
							t.Fatalf("%v %v %dx%d: pixel (%d,%d) = %v, want uniform %d", alg, p, sz[0], sz[1], x, y, got, v)
						}
						if a := img.RGBA64At(x, y).A; a != 0xffff {
							t.Fatalf("alpha = %#x, want 0xffff", a)
						}
					}
				}
			}
		}
	}
}

func TestBilinear_ChannelFixture(t *testing.T) {
	dev := software.New(1, 0)
	defer dev.Close()

	// Red sites 100, green 200, blue 50.
	values := map[frame.Channel]uint16{frame.Red: 100, frame.Green: 200, frame.Blue: 50}
	f := newFrame(t, 4, 4, frame.RGGB, frame.FormatBayerRGGB14, func(x, y int) uint16 {
		return values[frame.RGGB.ColorAt(x, y)]
	})
	img := runDebayer(t, dev, f, Bilinear)

	for y := range 4 {
		for x := range 4 {
			if got := rgbAt(img, x, y); got != [3]uint16{100, 200, 50} {
				t.Errorf("pixel (%d,%d) = %v, want [100 200 50]", x, y, got)
			}
		}
	}
}

func TestBilinear_IndexFixture(t *testing.T) {
	dev := software.New(1, 0)
	defer dev.Close()

	// Sample value is its row-major index:
	//   0  1  2  3    R G R G
	//   4  5  6  7    G B G B
	//   8  9 10 11    R G R G
	//  12 13 14 15    G B G B
	f := newFrame(t, 4, 4, frame.RGGB, frame.FormatGray16, func(x, y int) uint16 { return uint16(y*4 + x) })

	tests := []struct {
		x, y int
		want [3]uint16
		desc string
	}{
		{0, 0, [3]uint16{0, 3, 5}, "red corner: G=(1+4)/2 rounded up, B=diag 5"},
		{1, 1, [3]uint16{5, 5, 5}, "interior blue: R=(0+2+8+10)/4, G=(1+4+6+9)/4"},
		{3, 0, [3]uint16{2, 3, 7}, "green on red row, right edge: R=left 2, B=below 7"},
		{0, 3, [3]uint16{8, 12, 13}, "green on blue row, bottom edge: R=above 8, B=right 13"},
		{3, 3, [3]uint16{10, 13, 15}, "blue corner: R=diag 10, G=(11+14)/2 rounded up"},
		{2, 1, [3]uint16{6, 6, 6}, "green on blue row: R=(2+10)/2, B=(5+7)/2"},
	}

	for _, impl := range []struct {
		name string
		img  *image.RGBA64
	}{
		{"device", runDebayer(t, dev, f, Bilinear)},
		{"host", HostDebayer(f, Bilinear)},
	} {
		for _, tt := range tests {
			if got := rgbAt(impl.img, tt.x, tt.y); got != tt.want {
				t.Errorf("%s (%d,%d) = %v, want %v (%s)", impl.name, tt.x, tt.y, got, tt.want, tt.desc)
			}
		}
	}
}

func TestBilinear_PatternPhases(t *testing.T) {
	dev := software.New(1, 0)
	defer dev.Close()

	values := map[frame.Channel]uint16{frame.Red: 1000, frame.Green: 2000, frame.Blue: 3000}
	for _, p := range allPatterns {
		f := newFrame(t, 6, 6, p, frame.FormatGray16, func(x, y int) uint16 { return values[p.ColorAt(x, y)] })
		img := runDebayer(t, dev, f, Bilinear)
		for y := range 6 {
			for x := range 6 {
				if got := rgbAt(img, x, y); got != [3]uint16{1000, 2000, 3000} {
					t.Fatalf("%v pixel (%d,%d) = %v, want [1000 2000 3000]", p, x, y, got)
				}
			}
		}
	}
}

// =============================================================================
// Malvar
// =============================================================================

func TestMalvar_LinearRamp(t *testing.T) {
	dev := software.New(2, 0)
	defer dev.Close()

	// Gradient-corrected kernels reproduce linear ramps exactly away from borders.
	ramps := []struct {
		name  string
		value func(x, y int) uint16
	}{
		{"horizontal", func(x, _ int) uint16 { return uint16(100 + 10*x) }},
		{"vertical", func(_, y int) uint16 { return uint16(300 + 7*y) }},
	}
	for _, ramp := range ramps {
		for _, p := range allPatterns {
			f := newFrame(t, 12, 10, p, frame.FormatGray16, ramp.value)
			img := runDebayer(t, dev, f, Malvar)
			for y := 2; y < 8; y++ {
				for x := 2; x < 10; x++ {
					v := ramp.value(x, y)
					if got := rgbAt(img, x, y); got != [3]uint16{v, v, v} {
						t.Fatalf("%s %v (%d,%d) = %v, want %d", ramp.name, p, x, y, got, v)
					}
				}
			}
		}
	}
}

func TestMalvar_ClampsToBitDepth(t *testing.T) {
	const peak = 16383
	f := newFrame(t, 10, 10, frame.RGGB, frame.FormatBayerRGGB14, func(x, y int) uint16 {
		if x == 4 && y == 4 {
			return peak
		}
		return 0
	})
	img := HostDebayer(f, Malvar)

	for y := range 10 {
		for x := range 10 {
			for _, c := range rgbAt(img, x, y) {
				if c > peak {
					t.Fatalf("(%d,%d) channel %d exceeds 14-bit range", x, y, c)
				}
			}
		}
	}
	// Green at the red site two to the right is pulled negative, then clamped.
	if g := rgbAt(img, 6, 4)[1]; g != 0 {
		t.Errorf("G(6,4) = %d, want 0", g)
	}
	if r := rgbAt(img, 4, 4)[0]; r != peak {
		t.Errorf("R(4,4) = %d, want %d", r, peak)
	}
}

func TestDevice_MatchesHost(t *testing.T) {
	dev := software.New(3, 0)
	defer dev.Close()

	seed := uint32(7)
	noise := func(int, int) uint16 {
		seed = seed*1664525 + 1013904223
		return uint16(seed >> 18) // 14 bits
	}

	for _, p := range allPatterns {
		f := newFrame(t, 38, 22, p, frame.FormatBayerRGGB14, noise)
		for _, alg := range []Algorithm{Bilinear, Malvar} {
			got := runDebayer(t, dev, f, alg)
			want := HostDebayer(f, alg)
			for y := range 22 {
				for x := range 38 {
					if rgbAt(got, x, y) != rgbAt(want, x, y) {
						t.Fatalf("%v %v (%d,%d): device %v, host %v", p, alg, x, y, rgbAt(got, x, y), rgbAt(want, x, y))
					}
				}
			}
		}
	}
}

// =============================================================================
// Edge detect
// =============================================================================

func TestEdgeDetect(t *testing.T) {
	dev := software.New(2, 0)
	defer dev.Close()

	eng := New(dev)
	defer eng.Close()

	// Left half dark, right half bright.
	f := newFrame(t, 20, 8, frame.RGGB, frame.FormatGray16, func(x, _ int) uint16 {
		if x < 10 {
			return 1000
		}
		return 5000
	})
	src := upload(t, dev, f)
	out := NewSurface(dev)
	defer out.Release()

	if err := eng.Debayer(src, Bilinear, out); err != nil {
		t.Fatalf("Debayer() error = %v", err)
	}
	before, _ := out.Read()
	if err := eng.ApplyFilter(FilterEdgeDetect, out); err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}
	got, err := out.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := HostEdgeDetect(before, 16)

	for y := range 8 {
		for x := range 20 {
			if rgbAt(got, x, y) != rgbAt(want, x, y) {
				t.Fatalf("(%d,%d): device %v, host %v", x, y, rgbAt(got, x, y), rgbAt(want, x, y))
			}
		}
	}
	if v := rgbAt(got, 2, 4)[0]; v != 0 {
		t.Errorf("flat region magnitude = %d, want 0", v)
	}
	if v := rgbAt(got, 10, 4)[0]; v == 0 {
		t.Error("edge magnitude = 0, want > 0")
	}
}

func TestApplyFilter_None(t *testing.T) {
	dev := software.New(1, 0)
	defer dev.Close()

	eng := New(dev)
	if err := eng.ApplyFilter(FilterNone, NewSurface(dev)); err != nil {
		t.Errorf("ApplyFilter(None) error = %v", err)
	}
	if err := eng.ApplyFilter(FilterEdgeDetect, NewSurface(dev)); !errors.Is(err, ErrComputeDispatchFailed) {
		t.Errorf("ApplyFilter on empty surface error = %v, want ErrComputeDispatchFailed", err)
	}
}

// =============================================================================
// Failures and caching
// =============================================================================

// flakyDevice counts kernel creation and fails on demand.
type flakyDevice struct {
	gpucore.Device
	kernelsCreated atomic.Int32
	failKernel     atomic.Bool
	failDispatch   atomic.Bool
	failTexture    atomic.Bool
}

func (d *flakyDevice) CreateKernel(k *gpucore.Kernel) (gpucore.KernelID, error) {
	if d.failKernel.Load() {
		return gpucore.InvalidID, errors.New("shader compilation failed")
	}
	d.kernelsCreated.Add(1)
	return d.Device.CreateKernel(k)
}

func (d *flakyDevice) Dispatch(desc *gpucore.Dispatch) error {
	if d.failDispatch.Load() {
		return errors.New("queue submit failed")
	}
	return d.Device.Dispatch(desc)
}

func (d *flakyDevice) CreateTexture(w, h int, f gpucore.TextureFormat) (gpucore.TextureID, error) {
	if d.failTexture.Load() && f == gpucore.TextureFormatRGBA16Uint {
		return gpucore.InvalidID, gpucore.ErrOutOfMemory
	}
	return d.Device.CreateTexture(w, h, f)
}

func TestEngine_Failures(t *testing.T) {
	base := software.New(1, 0)
	defer base.Close()

	f := newFrame(t, 4, 4, frame.RGGB, frame.FormatGray16, func(int, int) uint16 { return 1 })

	tests := []struct {
		name  string
		setup func(d *flakyDevice)
	}{
		{"kernel compile", func(d *flakyDevice) { d.failKernel.Store(true) }},
		{"dispatch", func(d *flakyDevice) { d.failDispatch.Store(true) }},
		{"surface allocation", func(d *flakyDevice) { d.failTexture.Store(true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &flakyDevice{Device: base}
			src := upload(t, dev, f)
			defer dev.DestroyTexture(src.tex)
			tt.setup(dev)

			eng := New(dev)
			defer eng.Close()
			out := NewSurface(dev)
			defer out.Release()

			if err := eng.Debayer(src, Bilinear, out); !errors.Is(err, ErrComputeDispatchFailed) {
				t.Errorf("Debayer() error = %v, want ErrComputeDispatchFailed", err)
			}
		})
	}
}

func TestEngine_KernelCacheAndRetry(t *testing.T) {
	base := software.New(1, 0)
	defer base.Close()
	dev := &flakyDevice{Device: base}

	f := newFrame(t, 4, 4, frame.RGGB, frame.FormatGray16, func(int, int) uint16 { return 1 })
	src := upload(t, dev, f)
	out := NewSurface(dev)
	defer out.Release()

	eng := New(dev)
	defer eng.Close()

	dev.failKernel.Store(true)
	if err := eng.Debayer(src, Bilinear, out); err == nil {
		t.Fatal("Debayer() should fail while kernels cannot compile")
	}

	dev.failKernel.Store(false)
	for range 3 {
		if err := eng.Debayer(src, Bilinear, out); err != nil {
			t.Fatalf("Debayer() error = %v", err)
		}
	}
	if n := dev.kernelsCreated.Load(); n != 1 {
		t.Errorf("kernels created = %d, want 1", n)
	}

	if err := eng.Warm(); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if n := dev.kernelsCreated.Load(); n != int32(numKernels) {
		t.Errorf("kernels created after Warm = %d, want %d", n, numKernels)
	}
}

func TestSurface_Reuse(t *testing.T) {
	dev := software.New(1, 0)
	defer dev.Close()

	s := NewSurface(dev)
	if _, err := s.Read(); err == nil {
		t.Error("Read() of empty surface should fail")
	}
	if err := s.Ensure(4, 4); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	first := s.Texture()
	_ = s.Ensure(4, 4)
	if s.Texture() != first {
		t.Error("Ensure with the same size reallocated")
	}
	_ = s.Ensure(6, 4)
	if s.Width() != 6 || s.Texture() == first {
		t.Errorf("Ensure(6, 4): width %d, texture %d", s.Width(), s.Texture())
	}
	s.Release()
	if s.Texture() != gpucore.InvalidID {
		t.Error("Release left a texture")
	}
}

func TestParse(t *testing.T) {
	for _, s := range []string{"bilinear", "Malvar", "MHC"} {
		if _, err := ParseAlgorithm(s); err != nil {
			t.Errorf("ParseAlgorithm(%q) error = %v", s, err)
		}
	}
	if _, err := ParseAlgorithm("ahd"); err == nil {
		t.Error("ParseAlgorithm(ahd) should fail")
	}
	if f, err := ParseFilter("edge-detect"); err != nil || f != FilterEdgeDetect {
		t.Errorf("ParseFilter(edge-detect) = %v, %v", f, err)
	}
	var a Algorithm
	if err := a.UnmarshalText([]byte("malvar")); err != nil || a != Malvar {
		t.Errorf("UnmarshalText(malvar) = %v, %v", a, err)
	}
}
