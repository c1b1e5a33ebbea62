// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Presentation errors.
var (
	// ErrNoTextureCreator is returned when the draw context cannot create
	// textures.
	ErrNoTextureCreator = errors.New("viewport: draw context has no texture creator")

	// ErrNotDrawable is returned when the created texture is not a
	// gpucontext.Texture.
	ErrNotDrawable = errors.New("viewport: texture is not drawable")
)

// textureDestroyer matches the Destroy method of host textures.
type textureDestroyer interface {
	Destroy()
}

// Presenter shows composed frames on a host window through gpucontext.
//
// Every Present uploads a new texture. The texture shown by the previous
// call is destroyed only after the new one has been drawn, because the
// upload waits for the GPU to go idle.
type Presenter struct {
	mu   sync.Mutex
	x, y float32
	cur  any
}

// NewPresenter returns a presenter drawing at x, y.
func NewPresenter(x, y float32) *Presenter {
	return &Presenter{x: x, y: y}
}

// Present uploads img and draws it on dc.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, img *image.RGBA) error {
	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoTextureCreator
	}
	return p.present(img,
		func(w, h int, pix []byte) (any, error) {
			return creator.NewTextureFromRGBA(w, h, pix)
		},
		func(tex any) error {
			gt, ok := tex.(gpucontext.Texture)
			if !ok {
				return ErrNotDrawable
			}
			return dc.DrawTexture(gt, p.x, p.y)
		})
}

func (p *Presenter) present(img *image.RGBA, upload func(w, h int, pix []byte) (any, error), draw func(any) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := img.Bounds()
	pix := img.Pix
	if img.Stride != b.Dx()*4 {
		pix = make([]byte, 0, b.Dx()*b.Dy()*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			pix = append(pix, img.Pix[off:off+b.Dx()*4]...)
		}
	}

	tex, err := upload(b.Dx(), b.Dy(), pix)
	if err != nil {
		return fmt.Errorf("viewport: upload %dx%d frame: %w", b.Dx(), b.Dy(), err)
	}
	if err := draw(tex); err != nil {
		destroyTexture(tex)
		return err
	}
	destroyTexture(p.cur)
	p.cur = tex
	return nil
}

// Close destroys the last presented texture.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	destroyTexture(p.cur)
	p.cur = nil
}

func destroyTexture(tex any) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}
