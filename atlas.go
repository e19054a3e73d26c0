package tilestream

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
)

// The atlas splits the panorama into atlasCols × atlasRows canvases. Cols
// being a multiple of 4 and Rows a multiple of 2 is what makes every tile
// fall entirely inside one canvas.
const (
	atlasCols  = 4
	atlasRows  = 2
	atlasParts = atlasCols * atlasRows
)

// AtlasSink is an in-memory TextureSink that composites tiles into eight
// RGBA canvases covering the whole panorama. Scale shrinks the canvases
// relative to the full resolution to bound memory; 1 keeps full size.
//
// Writes to different tiles of the same canvas are serialized by a mutex.
type AtlasSink struct {
	mu sync.Mutex

	cfg   PanoramaConfig
	scale float64
	parts [atlasParts]*image.RGBA

	// tile rectangles are only a few sizes; placeholders are cached per size
	placeholders map[image.Point]image.Image

	delivered int
	failed    int
}

// NewAtlasSink allocates canvases for cfg. A scale outside (0, 1] means 1.
func NewAtlasSink(cfg PanoramaConfig, scale float64) (*AtlasSink, error) {
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	a := &AtlasSink{scale: scale}
	if err := a.Reset(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Reset discards all drawn content and reallocates canvases for cfg.
func (a *AtlasSink) Reset(cfg PanoramaConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	pw := int(float64(cfg.Width) / atlasCols * a.scale)
	ph := int(float64(cfg.Height()) / atlasRows * a.scale)
	if pw <= 0 || ph <= 0 {
		return &ConfigurationError{Field: "width", Message: fmt.Sprintf("too small for atlas scale %g", a.scale)}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cfg = cfg
	for i := range a.parts {
		a.parts[i] = image.NewRGBA(image.Rect(0, 0, pw, ph))
	}
	a.placeholders = make(map[image.Point]image.Image)
	a.delivered = 0
	a.failed = 0
	return nil
}

// TileRect returns the canvas index holding tile and the tile's rectangle
// inside that canvas.
func (a *AtlasSink) TileRect(tile Tile) (part int, r image.Rectangle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tileRectLocked(tile)
}

func (a *AtlasSink) tileRectLocked(tile Tile) (int, image.Rectangle) {
	perCol := a.cfg.Cols / atlasCols
	perRow := a.cfg.Rows / atlasRows

	part := tile.Col/perCol + (tile.Row/perRow)*atlasCols
	lc := tile.Col % perCol
	lr := tile.Row % perRow

	b := a.parts[part].Bounds()
	r := image.Rect(
		lc*b.Dx()/perCol,
		lr*b.Dy()/perRow,
		(lc+1)*b.Dx()/perCol,
		(lr+1)*b.Dy()/perRow,
	)
	return part, r
}

// Deliver implements TextureSink.
func (a *AtlasSink) Deliver(tile Tile, img image.Image, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !tile.Valid(a.cfg) {
		return
	}
	part, r := a.tileRectLocked(tile)
	dst := a.parts[part]

	if err != nil || img == nil {
		a.failed++
		ph := a.placeholderLocked(r.Size())
		xdraw.Draw(dst, r, ph, image.Point{}, xdraw.Src)
		return
	}

	a.delivered++
	xdraw.CatmullRom.Scale(dst, r, img, img.Bounds(), xdraw.Src, nil)
}

// placeholderLocked returns the error tile for the given size: a dark grey
// square crossed out in red.
func (a *AtlasSink) placeholderLocked(size image.Point) image.Image {
	if ph, ok := a.placeholders[size]; ok {
		return ph
	}

	dc := gg.NewContext(size.X, size.Y)
	defer dc.Close()

	w, h := float64(size.X), float64(size.Y)
	dc.ClearWithColor(gg.RGB(0.2, 0.2, 0.2))
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, w-2, h-2)
	_ = dc.Stroke()
	dc.DrawLine(0, 0, w, h)
	dc.DrawLine(w, 0, 0, h)
	_ = dc.Stroke()
	_ = dc.FlushGPU()

	ph := dc.Image()
	a.placeholders[size] = ph
	return ph
}

// SetBase implements BaseSink: it stretches a low resolution copy of the
// full panorama across all canvases. Tiles delivered later overwrite it.
func (a *AtlasSink) SetBase(img image.Image) {
	a.mu.Lock()
	defer a.mu.Unlock()

	src := img.Bounds()
	for i, dst := range a.parts {
		c, r := i%atlasCols, i/atlasCols
		sr := image.Rect(
			src.Min.X+c*src.Dx()/atlasCols,
			src.Min.Y+r*src.Dy()/atlasRows,
			src.Min.X+(c+1)*src.Dx()/atlasCols,
			src.Min.Y+(r+1)*src.Dy()/atlasRows,
		)
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, sr, xdraw.Src, nil)
	}
}

// Partition returns canvas i (0..7, row-major, 4 per row).
func (a *AtlasSink) Partition(i int) *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parts[i]
}

// Image composes the canvases into one equirectangular image.
func (a *AtlasSink) Image() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()

	pb := a.parts[0].Bounds()
	out := image.NewRGBA(image.Rect(0, 0, pb.Dx()*atlasCols, pb.Dy()*atlasRows))
	for i, p := range a.parts {
		off := image.Pt((i%atlasCols)*pb.Dx(), (i/atlasCols)*pb.Dy())
		xdraw.Draw(out, p.Bounds().Add(off), p, image.Point{}, xdraw.Src)
	}
	return out
}

// Delivered returns the number of tiles drawn from a decoded image.
func (a *AtlasSink) Delivered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.delivered
}

// Failed returns the number of placeholders drawn.
func (a *AtlasSink) Failed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed
}
