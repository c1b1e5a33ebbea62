// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"image"
	"image/color"
)

// ToDisplay converts a demosaiced image holding bitDepth-bit samples into
// an 8-bit image. With autoLevel each channel is stretched so its darkest
// and brightest values map to 0 and 255.
func ToDisplay(src *image.RGBA64, bitDepth int, autoLevel bool) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	maxV := sampleMax(bitDepth)
	lo, hi := [3]uint32{}, [3]uint32{maxV, maxV, maxV}
	if autoLevel {
		lo, hi = channelRange(src, maxV)
	}

	for y := range b.Dy() {
		s := src.Pix[y*src.Stride:]
		d := dst.Pix[y*dst.Stride:]
		for x := range b.Dx() {
			for c := range 3 {
				v := uint32(s[x*8+c*2])<<8 | uint32(s[x*8+c*2+1])
				d[x*4+c] = scale8(v, lo[c], hi[c])
			}
			d[x*4+3] = 0xff
		}
	}
	return dst
}

// scale8 maps v in [lo, hi] to [0, 255], rounding to nearest.
func scale8(v, lo, hi uint32) uint8 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 0xff
	}
	span := hi - lo
	return uint8(((v-lo)*255 + span/2) / span)
}

func sampleMax(bitDepth int) uint32 {
	if bitDepth <= 0 || bitDepth > 16 {
		bitDepth = 16
	}
	return 1<<uint(bitDepth) - 1
}

func channelRange(src *image.RGBA64, maxV uint32) (lo, hi [3]uint32) {
	lo = [3]uint32{0xffff, 0xffff, 0xffff}
	b := src.Bounds()
	for y := range b.Dy() {
		s := src.Pix[y*src.Stride:]
		for x := range b.Dx() {
			for c := range 3 {
				v := uint32(s[x*8+c*2])<<8 | uint32(s[x*8+c*2+1])
				lo[c] = min(lo[c], v)
				hi[c] = max(hi[c], v)
			}
		}
	}
	for c := range 3 {
		if hi[c] <= lo[c] {
			lo[c], hi[c] = 0, maxV // flat channel, left unstretched
		}
	}
	return lo, hi
}

// HistogramBins is the number of bins per channel.
const HistogramBins = 256

// Histogram holds per-channel sample counts of an image.
type Histogram struct {
	Bins  [3][HistogramBins]uint32
	Total int
}

// ComputeHistogram bins the red, green and blue samples of img. Samples
// are bitDepth-bit values; bin i covers [i, i+1) * 2^bitDepth / 256.
func ComputeHistogram(img *image.RGBA64, bitDepth int) *Histogram {
	if bitDepth <= 0 || bitDepth > 16 {
		bitDepth = 16
	}
	shift := uint(max(bitDepth-8, 0))
	h := &Histogram{}
	b := img.Bounds()
	for y := range b.Dy() {
		s := img.Pix[y*img.Stride:]
		for x := range b.Dx() {
			for c := range 3 {
				v := uint32(s[x*8+c*2])<<8 | uint32(s[x*8+c*2+1])
				h.Bins[c][min(v>>shift, HistogramBins-1)]++
			}
		}
	}
	h.Total = b.Dx() * b.Dy()
	return h
}

// Peak returns the largest bin count over all channels.
func (h *Histogram) Peak() uint32 {
	var p uint32
	for c := range h.Bins {
		for _, n := range h.Bins[c] {
			p = max(p, n)
		}
	}
	return p
}

var chartBackground = color.RGBA{A: 0xff}

// Render draws the histogram as a w x h chart. Each channel is drawn as
// bars in its own colour and overlapping bars add up. A column covering
// several bins shows the largest; the tallest bin reaches the top edge.
func (h *Histogram) Render(w, ht int) *image.RGBA {
	img := placeholder(w, ht, chartBackground)
	peak := h.Peak()
	if peak == 0 || w <= 0 || ht <= 0 {
		return img
	}
	for x := range w {
		lo := x * HistogramBins / w
		hi := max((x+1)*HistogramBins/w, lo+1)
		for c := range 3 {
			var n uint32
			for _, v := range h.Bins[c][lo:hi] {
				n = max(n, v)
			}
			bar := int(uint64(n) * uint64(ht) / uint64(peak))
			for y := ht - bar; y < ht; y++ {
				img.Pix[y*img.Stride+x*4+c] = 0xff
			}
		}
	}
	return img
}
