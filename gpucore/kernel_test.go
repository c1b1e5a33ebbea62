// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import "testing"

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		w, h   int
		wx, wy uint32
	}{
		{16, 16, 1, 1},
		{17, 16, 2, 1},
		{2, 2, 1, 1},
		{1920, 1080, 120, 68},
		{4096, 3072, 256, 192},
	}
	for _, tt := range tests {
		x, y := WorkgroupCount(tt.w, tt.h)
		if x != tt.wx || y != tt.wy {
			t.Errorf("WorkgroupCount(%d, %d) = (%d, %d), want (%d, %d)", tt.w, tt.h, x, y, tt.wx, tt.wy)
		}
	}
}

func TestParamWords(t *testing.T) {
	for n := 0; n <= 9; n++ {
		words := make([]uint32, n)
		for i := range words {
			words[i] = uint32(i*1000 + 7)
		}
		buf := ParamWords(words...)
		if len(buf)%16 != 0 {
			t.Errorf("ParamWords(%d words) length = %d, not a multiple of 16", n, len(buf))
		}
		for i, w := range words {
			if got := ParamWord(buf, i); got != w {
				t.Errorf("ParamWord(%d) = %d, want %d", i, got, w)
			}
		}
	}
}

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		format TextureFormat
		bpp    int
		name   string
	}{
		{TextureFormatR16Uint, 2, "r16uint"},
		{TextureFormatRGBA16Uint, 8, "rgba16uint"},
		{TextureFormatRGBA8Unorm, 4, "rgba8unorm"},
		{TextureFormat(99), 0, "TextureFormat(99)"},
	}
	for _, tt := range tests {
		if got := tt.format.BytesPerPixel(); got != tt.bpp {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", tt.format, got, tt.bpp)
		}
		if got := tt.format.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
	d := TextureDesc{Width: 4, Height: 2, Format: TextureFormatRGBA16Uint}
	if d.Size() != 64 {
		t.Errorf("TextureDesc.Size() = %d, want 64", d.Size())
	}
}
