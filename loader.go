package tilestream

import (
	"context"
	"errors"
	"sync"

	lg "github.com/Andrej220/go-utils/zlog"
)

// ErrLoaderClosed is returned by Loader methods after Close.
var ErrLoaderClosed = errors.New("tilestream: loader closed")

// Loader ties a panorama, the visibility sampler and a Scheduler together.
// The owning viewer calls Refresh on every direction or zoom change; there
// is no implicit subscription.
type Loader struct {
	mu sync.Mutex

	sched   *Scheduler
	fetcher Fetcher
	sink    TextureSink
	ctx     context.Context

	cfg    PanoramaConfig
	loaded bool
	closed bool

	// generation increases with every LoadTexture.
	generation uint64
}

// NewLoader creates a Loader whose scheduler fetches with fetcher and
// delivers to sink.
func NewLoader(fetcher Fetcher, sink TextureSink, opts Options) (*Loader, error) {
	sched, err := NewScheduler(fetcher, sink, opts)
	if err != nil {
		return nil, err
	}
	return &Loader{
		sched:   sched,
		fetcher: fetcher,
		sink:    sink,
		ctx:     sched.opts.Ctx,
	}, nil
}

// Scheduler exposes the underlying scheduler for inspection.
func (l *Loader) Scheduler() *Scheduler { return l.sched }

// LoadTexture switches to a new panorama. An invalid cfg fails with a
// *ConfigurationError and changes nothing. Otherwise every task of the
// previous panorama is cancelled before the sink is reset, and the optional
// base image is fetched and handed to the sink.
func (l *Loader) LoadTexture(ctx context.Context, cfg PanoramaConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoaderClosed
	}

	if err := l.sched.Reset(cfg); err != nil {
		return err
	}
	if r, ok := l.sink.(PanoramaResetter); ok {
		if err := r.Reset(cfg); err != nil {
			l.loaded = false
			return err
		}
	}

	l.cfg = cfg
	l.loaded = true
	l.generation++

	logger := lg.FromContext(l.ctx).With(lg.Any("generation", l.generation))
	logger.Info("panorama loaded",
		lg.Int("width", cfg.Width),
		lg.Int("cols", cfg.Cols),
		lg.Int("rows", cfg.Rows),
	)

	if cfg.BaseURL != "" {
		if bs, ok := l.sink.(BaseSink); ok {
			img, err := l.fetcher.Fetch(ctx, cfg.BaseURL)
			if err != nil {
				// tiles still stream without the base image
				logger.Warn("base panorama fetch failed", lg.String("url", cfg.BaseURL), lg.Any("error", err))
			} else {
				bs.SetBase(img)
			}
		}
	}
	return nil
}

// Refresh recomputes the visible tiles for the given view and resubmits
// them. It is meant to be called at most once per animation frame.
func (l *Loader) Refresh(direction Vec3, viewport Viewport, proj Projector) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoaderClosed
	}
	if !l.loaded {
		return ErrNoPanorama
	}

	cands := ComputeVisibleTiles(direction, viewport, l.cfg, proj)
	return l.sched.Submit(cands)
}

// RefreshCamera is Refresh with cam as both direction and projector.
func (l *Loader) RefreshCamera(cam Camera) error {
	return l.Refresh(cam.Direction(), cam.Viewport, cam)
}

// Wait blocks until the scheduler has nothing left to start.
func (l *Loader) Wait(ctx context.Context) error {
	return l.sched.Wait(ctx)
}

// Generation returns how many panoramas have been loaded.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Close cancels all work. Further calls fail with ErrLoaderClosed.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.sched.Clear()
}
