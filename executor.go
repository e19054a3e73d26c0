package tilestream

import (
	"errors"
	"fmt"
	"image"

	lg "github.com/Andrej220/go-utils/zlog"
)

// errNoImage is reported when a fetcher returns neither an image nor an error.
var errNoImage = errors.New("fetcher returned no image")

// execute runs one tile fetch on its own goroutine and settles the task.
func (s *Scheduler) execute(t *task) {
	img, err := s.fetchTile(t)
	s.settle(t, img, err)
}

// fetchTile calls the fetcher, turning a panic into a fetch error so a
// misbehaving fetcher cannot leak a concurrency slot.
func (s *Scheduler) fetchTile(t *task) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			lg.FromContext(t.ctx).Error("tile fetch panicked", lg.Any("panic", r))
			img, err = nil, fmt.Errorf("fetch panicked: %v", r)
		}
	}()

	img, err = s.fetcher.Fetch(t.ctx, t.key)
	if err == nil && img == nil {
		err = errNoImage
	}
	return img, err
}
