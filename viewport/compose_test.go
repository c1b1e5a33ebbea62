// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"image"
	"image/color"
	"testing"
)

func TestFit(t *testing.T) {
	cell := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name string
		src  image.Rectangle
		want image.Rectangle
	}{
		{"same aspect", image.Rect(0, 0, 200, 100), image.Rect(0, 0, 100, 50)},
		{"tall", image.Rect(0, 0, 10, 10), image.Rect(25, 0, 75, 50)},
		{"wide", image.Rect(0, 0, 400, 100), image.Rect(0, 12, 100, 37)},
		{"empty", image.Rectangle{}, cell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fit(tt.src, cell); got != tt.want {
				t.Errorf("fit(%v) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestCompose_Layout(t *testing.T) {
	red := placeholder(10, 10, color.RGBA{R: 0xff, A: 0xff})
	blue := placeholder(10, 10, color.RGBA{B: 0xff, A: 0xff})
	results := []CellResult{
		{Index: 0, Row: 0, Column: 0, Image: red},
		{Index: 1, Row: 0, Column: 1, Image: blue},
		{Index: 2, Row: 1, Column: 0, Image: blue},
		{Index: 3, Row: 5, Column: 5, Image: red}, // outside the grid
	}

	img := Compose(results, 2, 2, 40, 40)
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 80 {
		t.Fatalf("Compose() size = %v, want 80x80", b)
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{20, 10, color.RGBA{R: 0xff, A: 0xff}},
		{60, 10, color.RGBA{B: 0xff, A: 0xff}},
		{20, 50, color.RGBA{B: 0xff, A: 0xff}},
		{60, 50, color.RGBA{A: 0xff}}, // no result for this cell
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestCompose_LabelBand(t *testing.T) {
	white := placeholder(16, 16, color.RGBA{0xff, 0xff, 0xff, 0xff})
	cells := []CellResult{{Image: white, Label: "cam\x07"}}
	img := Compose(cells, 1, 1, 120, 120)

	before := labelMasks.Stats()
	Compose(cells, 1, 1, 120, 120)
	if after := labelMasks.Stats(); after.Hits != before.Hits+1 || after.Misses != before.Misses {
		t.Errorf("label cache stats %+v -> %+v, want one hit", before, after)
	}

	// The band darkens the bottom of the cell; the top is untouched.
	if got := img.RGBAAt(60, 2); got.R != 0xff {
		t.Errorf("top pixel = %v, want white", got)
	}
	if got := img.RGBAAt(119, 118); got.R == 0xff {
		t.Errorf("band pixel = %v, want darkened", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		r    CellResult
		want string
	}{
		{CellResult{Label: "a\tb\n"}, "ab"},
		{CellResult{Label: "Café"}, "Café"},
		{CellResult{Label: "x", Stale: true}, "x (stale)"},
		{CellResult{Label: "x", Idle: true, Err: ErrUnknownPipeline}, "x (error)"},
		{CellResult{Label: "x", Idle: true}, "x"},
	}
	for _, tt := range tests {
		if got := label(&tt.r); got != tt.want {
			t.Errorf("label(%q) = %q, want %q", tt.r.Label, got, tt.want)
		}
	}
}
