package tilestream

import "image"

// TextureSink receives every settled tile exactly once. On failure img is
// nil and err is a *FetchError, so the sink can draw a placeholder.
//
// Deliver is called with the scheduler's lock held: it must not call back
// into the Scheduler or Loader, and should return quickly.
type TextureSink interface {
	Deliver(tile Tile, img image.Image, err error)
}

// SinkFunc adapts a plain function to TextureSink.
type SinkFunc func(tile Tile, img image.Image, err error)

func (f SinkFunc) Deliver(tile Tile, img image.Image, err error) { f(tile, img, err) }

// PanoramaResetter is implemented by sinks that size their storage from the
// panorama. The Loader calls Reset after the scheduler has dropped all work
// of the previous panorama.
type PanoramaResetter interface {
	Reset(cfg PanoramaConfig) error
}

// BaseSink is implemented by sinks that can show a low resolution base
// image while tiles stream in.
type BaseSink interface {
	SetBase(img image.Image)
}
