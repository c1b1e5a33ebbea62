// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"image"
	"image/color"
	"sync"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/gogpu/camproc/internal/cache"
	"github.com/gogpu/camproc/internal/logging"
)

// LabelSize is the label font size in pixels.
const LabelSize = 13

var (
	labelBand  = color.RGBA{A: 0xa0}
	letterbox  = color.RGBA{A: 0xff}
	labelClean = runes.Remove(runes.In(unicode.Cc))
)

// labelFont is the parsed label face with its line metrics.
type labelFont struct {
	face            font.Face
	ascent, descent int
}

var loadLabelFont = sync.OnceValue(func() *labelFont {
	f, err := opentype.Parse(goregular.TTF)
	if err == nil {
		var face font.Face
		face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: LabelSize, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			m := face.Metrics()
			return &labelFont{face: face, ascent: m.Ascent.Ceil(), descent: m.Descent.Ceil()}
		}
	}
	logging.Logger().Warn("viewport: label font unavailable", "err", err)
	return nil
})

// labelMasks holds rendered label text. The face is only used inside
// GetOrCreate, which the cache serializes.
var labelMasks = cache.New[string, *image.Alpha](64)

// Compose lays results out on a rows x cols grid of cellW x cellH cells.
// Each image is scaled to fit its cell keeping its aspect ratio, and the
// cell label is drawn along the bottom edge. Results are placed by their
// Row and Column.
func Compose(results []CellResult, rows, cols, cellW, cellH int) *image.RGBA {
	dst := placeholder(cols*cellW, rows*cellH, letterbox)
	for i := range results {
		r := &results[i]
		if r.Row >= rows || r.Column >= cols || r.Image == nil {
			continue
		}
		cellRect := image.Rect(r.Column*cellW, r.Row*cellH, (r.Column+1)*cellW, (r.Row+1)*cellH)
		draw.ApproxBiLinear.Scale(dst, fit(r.Image.Bounds(), cellRect), r.Image, r.Image.Bounds(), draw.Src, nil)
		drawLabel(dst, cellRect, label(r))
	}
	return dst
}

// fit returns the largest rectangle with src's aspect ratio centred in cell.
func fit(src, cell image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	cw, ch := cell.Dx(), cell.Dy()
	if sw == 0 || sh == 0 {
		return cell
	}
	w, h := cw, sh*cw/sw
	if h > ch {
		w, h = sw*ch/sh, ch
	}
	x0 := cell.Min.X + (cw-w)/2
	y0 := cell.Min.Y + (ch-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func label(r *CellResult) string {
	s, _, err := transform.String(labelClean, r.Label)
	if err != nil {
		s = r.Label
	}
	switch {
	case r.Stale:
		s += " (stale)"
	case r.Idle && r.Err != nil:
		s += " (error)"
	}
	return s
}

func drawLabel(dst *image.RGBA, cell image.Rectangle, text string) {
	lf := loadLabelFont()
	if lf == nil || text == "" {
		return
	}
	bandH := lf.ascent + lf.descent + 4
	band := image.Rect(cell.Min.X, cell.Max.Y-bandH, cell.Max.X, cell.Max.Y).Intersect(cell)
	draw.Draw(dst, band, image.NewUniform(labelBand), image.Point{}, draw.Over)

	mask := labelMasks.GetOrCreate(text, func() *image.Alpha { return renderLabel(lf, text) })
	at := image.Pt(cell.Min.X+4, band.Min.Y+2)
	r := image.Rectangle{Min: at, Max: at.Add(mask.Bounds().Size())}.Intersect(band)
	draw.DrawMask(dst, r, image.White, image.Point{}, mask, image.Point{}, draw.Over)
}

// renderLabel draws text into an alpha mask one line high.
func renderLabel(lf *labelFont, text string) *image.Alpha {
	w := font.MeasureString(lf.face, text).Ceil()
	mask := image.NewAlpha(image.Rect(0, 0, max(w, 1), lf.ascent+lf.descent))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: lf.face,
		Dot:  fixed.P(0, lf.ascent),
	}
	d.DrawString(text)
	return mask
}
