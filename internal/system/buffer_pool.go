package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// SurfacePool reuses *image.RGBA surfaces of equal bounds to keep the
// frame loop from churning the garbage collector.
type SurfacePool struct {
	pools sync.Map // image.Rectangle -> *sync.Pool
	out   atomic.Int64
}

// NewSurfacePool returns an empty pool.
func NewSurfacePool() *SurfacePool {
	return &SurfacePool{}
}

// Get returns a surface with bounds r. Its contents are undefined.
func (p *SurfacePool) Get(r image.Rectangle) *image.RGBA {
	v, ok := p.pools.Load(r)
	if !ok {
		v, _ = p.pools.LoadOrStore(r, &sync.Pool{
			New: func() any { return image.NewRGBA(r) },
		})
	}
	p.out.Add(1)
	return v.(*sync.Pool).Get().(*image.RGBA)
}

// Put returns img to the pool. Nil is ignored.
func (p *SurfacePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.out.Add(-1)
	if v, ok := p.pools.Load(img.Rect); ok {
		v.(*sync.Pool).Put(img)
	}
}

// Outstanding is the number of surfaces handed out and not yet returned.
func (p *SurfacePool) Outstanding() int64 {
	return p.out.Load()
}
