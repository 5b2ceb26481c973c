package frames

import (
	"image"
	"sync"
)

// ImagePool pools *image.RGBA instances for one resolution. A capture
// session keeps its geometry until it is reconstructed, so a change of size
// simply drops the pooled images.
type ImagePool struct {
	pool sync.Pool
	w, h int
	mu   sync.Mutex
}

func (p *ImagePool) Get(w, h int) *image.RGBA {
	p.mu.Lock()
	if p.w == w && p.h == h {
		p.mu.Unlock()
		if v := p.pool.Get(); v != nil {
			return v.(*image.RGBA)
		}
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	p.w = w
	p.h = h
	p.pool = sync.Pool{}
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Put returns img to the pool if it still matches the pooled resolution.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	p.mu.Lock()
	match := p.w == b.Dx() && p.h == b.Dy()
	p.mu.Unlock()
	if match {
		p.pool.Put(img)
	}
}
