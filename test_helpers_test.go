package tilestream_test

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ts "github.com/cooljackie/tilestream"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func tileKey(col, row int) string { return fmt.Sprintf("%d/%d", col, row) }

// newTestConfig returns a 16×8 grid of 100px tiles.
func newTestConfig() ts.PanoramaConfig {
	return ts.PanoramaConfig{
		Width:   1600,
		Cols:    16,
		Rows:    8,
		TileURL: tileKey,
	}
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

type fetchResult struct {
	img image.Image
	err error
}

// gateFetcher blocks every fetch until the test releases its key.
type gateFetcher struct {
	mu          sync.Mutex
	gates       map[string]chan fetchResult
	started     []string
	inflight    int
	maxInflight int

	// ignoreCancel makes Fetch wait for release even after its context
	// is cancelled, like a fetch that cannot be aborted.
	ignoreCancel bool
}

func newGateFetcher() *gateFetcher {
	return &gateFetcher{gates: make(map[string]chan fetchResult)}
}

func (f *gateFetcher) gate(key string) chan fetchResult {
	ch, ok := f.gates[key]
	if !ok {
		ch = make(chan fetchResult, 1)
		f.gates[key] = ch
	}
	return ch
}

func (f *gateFetcher) Fetch(ctx context.Context, key string) (image.Image, error) {
	f.mu.Lock()
	f.started = append(f.started, key)
	ch := f.gate(key)
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.ignoreCancel {
		r := <-ch
		return r.img, r.err
	}
	select {
	case r := <-ch:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *gateFetcher) release(key string) {
	f.mu.Lock()
	ch := f.gate(key)
	f.mu.Unlock()
	ch <- fetchResult{img: solidImage(4, 4, color.White)}
}

func (f *gateFetcher) fail(key string, err error) {
	f.mu.Lock()
	ch := f.gate(key)
	f.mu.Unlock()
	ch <- fetchResult{err: err}
}

func (f *gateFetcher) startedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

type delivery struct {
	tile ts.Tile
	img  image.Image
	err  error
}

// recordingSink remembers every delivery.
type recordingSink struct {
	mu         sync.Mutex
	deliveries []delivery
	base       image.Image
}

func (s *recordingSink) Deliver(tile ts.Tile, img image.Image, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery{tile: tile, img: img, err: err})
}

func (s *recordingSink) SetBase(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = img
}

func (s *recordingSink) all() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.deliveries...)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *recordingSink) has(tile ts.Tile) bool {
	for _, d := range s.all() {
		if d.tile == tile {
			return true
		}
	}
	return false
}

// newTestScheduler builds a scheduler with the 16×8 test panorama installed.
func newTestScheduler(t *testing.T, concurrency int, f ts.Fetcher, sink ts.TextureSink, opts ...func(*ts.Options)) *ts.Scheduler {
	t.Helper()

	o := ts.Options{Concurrency: concurrency}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := ts.NewScheduler(f, sink, o)
	require.NoError(t, err)
	require.NoError(t, s.Reset(newTestConfig()))
	t.Cleanup(s.Clear)
	return s
}

func cand(col, row int, angle float64) ts.Candidate {
	return ts.Candidate{Tile: ts.Tile{Col: col, Row: row}, Angle: angle}
}

func requireStatus(t *testing.T, s *ts.Scheduler, col, row int, want ts.TaskStatus) {
	t.Helper()
	info, ok := s.Task(ts.Tile{Col: col, Row: row})
	require.True(t, ok, "tile %d,%d not known", col, row)
	require.Equal(t, want, info.Status, "tile %d,%d", col, row)
}
