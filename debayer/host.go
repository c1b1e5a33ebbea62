// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	"encoding/binary"
	"image"

	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/gpucore"
)

// Host implementations of the kernels in shaders/. Every function here
// mirrors its WGSL counterpart operation for operation.

// acc is a (sum, count) pair of in-bounds taps.
type acc struct{ sum, n uint32 }

func (a acc) add(b acc) acc { return acc{a.sum + b.sum, a.n + b.n} }

func (a acc) mean() uint32 {
	n := max(a.n, 1)
	return (a.sum + n/2) / n
}

// mosaicView reads packed R16 samples.
type mosaicView struct {
	data          []byte
	width, height int
	redX, redY    int
	maxValue      int32
}

func (m *mosaicView) sample(x, y int) uint32 {
	i := y*m.width + x
	return uint32(binary.LittleEndian.Uint16(m.data[i*2:]))
}

func (m *mosaicView) tap(x, y int) acc {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return acc{}
	}
	return acc{m.sample(x, y), 1}
}

func (m *mosaicView) parity(x, y int) (redRow, redCol bool) {
	return y&1 == m.redY, x&1 == m.redX
}

func (m *mosaicView) bilinear(x, y int) (r, g, b uint32) {
	redRow, redCol := m.parity(x, y)
	c := m.sample(x, y)
	horiz := m.tap(x-1, y).add(m.tap(x+1, y))
	vert := m.tap(x, y-1).add(m.tap(x, y+1))
	orth := horiz.add(vert)
	diag := m.tap(x-1, y-1).add(m.tap(x+1, y-1)).add(m.tap(x-1, y+1)).add(m.tap(x+1, y+1))

	switch {
	case redRow && redCol:
		return c, orth.mean(), diag.mean()
	case !redRow && !redCol:
		return diag.mean(), orth.mean(), c
	case redRow:
		return horiz.mean(), c, vert.mean()
	default:
		return vert.mean(), c, horiz.mean()
	}
}

func (m *mosaicView) q16(sum int32) uint32 {
	return uint32(min(max((sum+8)/16, 0), m.maxValue)) //nolint:gosec // clamped non-negative
}

func (m *mosaicView) malvar(x, y int) (r, g, b uint32) {
	if x < 2 || y < 2 || x >= m.width-2 || y >= m.height-2 {
		return m.bilinear(x, y)
	}
	redRow, redCol := m.parity(x, y)
	si := func(x, y int) int32 { return int32(m.sample(x, y)) } //nolint:gosec // 16-bit sample

	c := si(x, y)
	n1, s1, w1, e1 := si(x, y-1), si(x, y+1), si(x-1, y), si(x+1, y)
	n2, s2, w2, e2 := si(x, y-2), si(x, y+2), si(x-2, y), si(x+2, y)
	diag := si(x-1, y-1) + si(x+1, y-1) + si(x-1, y+1) + si(x+1, y+1)
	cross1 := n1 + s1 + w1 + e1
	cross2 := n2 + s2 + w2 + e2

	green := m.q16(8*c + 4*cross1 - 2*cross2)
	opposite := m.q16(12*c + 4*diag - 3*cross2)
	alongRow := m.q16(10*c + 8*(w1+e1) - 2*(w2+e2) - 2*diag + n2 + s2)
	alongCol := m.q16(10*c + 8*(n1+s1) - 2*(n2+s2) - 2*diag + w2 + e2)
	native := uint32(c) //nolint:gosec // 16-bit sample

	switch {
	case redRow && redCol:
		return native, green, opposite
	case !redRow && !redCol:
		return opposite, green, native
	case redRow:
		return alongRow, native, alongCol
	default:
		return alongCol, native, alongRow
	}
}

// colorView reads packed RGBA16 pixels.
type colorView struct {
	data          []byte
	width, height int
	maxValue      int32
}

func (v *colorView) luma(x, y int) int32 {
	cx := min(max(x, 0), v.width-1)
	cy := min(max(y, 0), v.height-1)
	off := (cy*v.width + cx) * 8
	r := uint32(binary.LittleEndian.Uint16(v.data[off:]))
	g := uint32(binary.LittleEndian.Uint16(v.data[off+2:]))
	b := uint32(binary.LittleEndian.Uint16(v.data[off+4:]))
	return int32((r*77 + g*150 + b*29) >> 8) //nolint:gosec // < 2^16
}

func (v *colorView) sobel(x, y int) uint32 {
	tl, tc, tr := v.luma(x-1, y-1), v.luma(x, y-1), v.luma(x+1, y-1)
	ml, mr := v.luma(x-1, y), v.luma(x+1, y)
	bl, bc, br := v.luma(x-1, y+1), v.luma(x, y+1), v.luma(x+1, y+1)

	gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
	return uint32(min(abs32(gx)+abs32(gy), v.maxValue)) //nolint:gosec // non-negative
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func putPixel(dst []byte, i int, r, g, b uint32) {
	off := i * 8
	binary.LittleEndian.PutUint16(dst[off:], uint16(r))   //nolint:gosec // 16-bit channel
	binary.LittleEndian.PutUint16(dst[off+2:], uint16(g)) //nolint:gosec // 16-bit channel
	binary.LittleEndian.PutUint16(dst[off+4:], uint16(b)) //nolint:gosec // 16-bit channel
	binary.LittleEndian.PutUint16(dst[off+6:], 0xffff)
}

// kernelParams builds the uniform block shared by all kernels.
func kernelParams(width, height int, p frame.Pattern, bitDepth int) []byte {
	rx, ry := p.Offset()
	//nolint:gosec // dimensions validated positive
	return gpucore.ParamWords(uint32(width), uint32(height), uint32(rx), uint32(ry), maxValue(bitDepth))
}

func maxValue(bitDepth int) uint32 {
	if bitDepth <= 0 || bitDepth > 16 {
		bitDepth = 16
	}
	return 1<<uint(bitDepth) - 1
}

func mosaicFromInvocation(inv *gpucore.Invocation) *mosaicView {
	return &mosaicView{
		data:     inv.Input,
		width:    inv.Width,
		height:   inv.Height,
		redX:     int(gpucore.ParamWord(inv.Params, 2)),
		redY:     int(gpucore.ParamWord(inv.Params, 3)),
		maxValue: int32(gpucore.ParamWord(inv.Params, 4)), //nolint:gosec // <= 65535
	}
}

func bilinearCPU(inv *gpucore.Invocation) {
	m := mosaicFromInvocation(inv)
	for y := inv.Y0; y < inv.Y1; y++ {
		for x := inv.X0; x < inv.X1; x++ {
			r, g, b := m.bilinear(x, y)
			putPixel(inv.Output, y*inv.Width+x, r, g, b)
		}
	}
}

func malvarCPU(inv *gpucore.Invocation) {
	m := mosaicFromInvocation(inv)
	for y := inv.Y0; y < inv.Y1; y++ {
		for x := inv.X0; x < inv.X1; x++ {
			r, g, b := m.malvar(x, y)
			putPixel(inv.Output, y*inv.Width+x, r, g, b)
		}
	}
}

func sobelCPU(inv *gpucore.Invocation) {
	v := &colorView{
		data:     inv.Input,
		width:    inv.Width,
		height:   inv.Height,
		maxValue: int32(gpucore.ParamWord(inv.Params, 4)), //nolint:gosec // <= 65535
	}
	for y := inv.Y0; y < inv.Y1; y++ {
		for x := inv.X0; x < inv.X1; x++ {
			m := v.sobel(x, y)
			putPixel(inv.Output, y*inv.Width+x, m, m, m)
		}
	}
}

// HostDebayer demosaics f on the calling goroutine. The result is what a
// device produces for the same frame and algorithm.
func HostDebayer(f *frame.MosaicFrame, alg Algorithm) *image.RGBA64 {
	w, h := f.Width(), f.Height()
	data := make([]byte, w*h*2)
	for y := range h {
		for x, v := range f.Row(y) {
			binary.LittleEndian.PutUint16(data[(y*w+x)*2:], v)
		}
	}
	rx, ry := f.Pattern().Offset()
	m := &mosaicView{
		data: data, width: w, height: h, redX: rx, redY: ry,
		maxValue: int32(maxValue(f.BitDepth())), //nolint:gosec // <= 65535
	}

	out := make([]byte, w*h*8)
	for y := range h {
		for x := range w {
			var r, g, b uint32
			if alg == Malvar {
				r, g, b = m.malvar(x, y)
			} else {
				r, g, b = m.bilinear(x, y)
			}
			putPixel(out, y*w+x, r, g, b)
		}
	}
	return toRGBA64(out, w, h)
}

// HostEdgeDetect applies FilterEdgeDetect to img on the calling goroutine.
func HostEdgeDetect(img *image.RGBA64, bitDepth int) *image.RGBA64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	v := &colorView{
		data: fromRGBA64(img), width: w, height: h,
		maxValue: int32(maxValue(bitDepth)), //nolint:gosec // <= 65535
	}
	out := make([]byte, w*h*8)
	for y := range h {
		for x := range w {
			m := v.sobel(x, y)
			putPixel(out, y*w+x, m, m, m)
		}
	}
	return toRGBA64(out, w, h)
}

// toRGBA64 converts packed little-endian RGBA16 into an image.RGBA64,
// whose Pix is big-endian.
func toRGBA64(data []byte, w, h int) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for i := 0; i+1 < len(data); i += 2 {
		img.Pix[i] = data[i+1]
		img.Pix[i+1] = data[i]
	}
	return img
}

func fromRGBA64(img *image.RGBA64) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]byte, w*h*8)
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*8]
		for i := 0; i+1 < len(row); i += 2 {
			out[y*w*8+i] = row[i+1]
			out[y*w*8+i+1] = row[i]
		}
	}
	return out
}
