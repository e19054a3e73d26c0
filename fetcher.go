package tilestream

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads and decodes the image behind a tile's fetch key.
//
// Fetch must honour ctx: the scheduler cancels it when the panorama is
// cleared, although a result returned afterwards is discarded anyway.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (image.Image, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, key string) (image.Image, error) {
	return f(ctx, key)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// HTTPFetcher fetches tiles over HTTP(S), or from the local filesystem when
// the key is a file:// URL or a plain path. Failed attempts are retried with
// jittered exponential backoff; concurrent requests for the same key share
// one download.
//
// A shared download is cancelled only once every caller waiting on it has
// given up, so cancelling one caller never fails another.
type HTTPFetcher struct {
	client *http.Client
	retry  RetryPolicy
	group  singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the cancellation scope of one shared download.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

// NewHTTPFetcher creates a fetcher. A nil client uses http.DefaultClient.
// Zero fields of retry are taken from GetDefaultRP.
func NewHTTPFetcher(client *http.Client, retry RetryPolicy) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		client:  client,
		retry:   retry.withDefaults(),
		flights: make(map[string]*flight),
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) (image.Image, error) {
	for {
		img, err := f.join(ctx, key)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.Canceled) {
			// joined a download that every earlier caller abandoned
			f.group.Forget(key)
			continue
		}
		return img, err
	}
}

// join waits for the shared download of key while holding a reference on
// its flight.
func (f *HTTPFetcher) join(ctx context.Context, key string) (image.Image, error) {
	fl := f.acquire(ctx, key)
	defer f.release(key, fl)

	ch := f.group.DoChan(key, func() (any, error) {
		return f.fetchWithRetry(fl.ctx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *HTTPFetcher) acquire(ctx context.Context, key string) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl, ok := f.flights[key]
	if !ok {
		// detached from the first caller; keeps its logger
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		f.flights[key] = fl
	}
	fl.refs++
	return fl
}

func (f *HTTPFetcher) release(key string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.refs--
	if fl.refs > 0 {
		return
	}
	fl.cancel()
	if f.flights[key] == fl {
		delete(f.flights, key)
	}
}

func (f *HTTPFetcher) fetchWithRetry(ctx context.Context, key string) (image.Image, error) {
	logger := lg.FromContext(ctx).With(lg.String("key", key))
	pol := f.retry
	bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

	for attempt := 1; ; attempt++ {
		img, err := f.fetchOnce(ctx, key)
		if err == nil {
			return img, nil
		}
		if attempt >= pol.Attempts || !retryable(err) {
			logger.Error("tile fetch gave up", lg.Int("attempt", attempt), lg.Any("error", err))
			return nil, err
		}

		delay := bo.Next()
		logger.Warn("tile fetch attempt failed; backing off",
			lg.Int("attempt", attempt),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C // drain if timer is fired
			}
			logger.Info("tile fetch canceled", lg.Any("reason", ctx.Err()))
			return nil, ctx.Err()
		}
	}
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, image.ErrFormat) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, key string) (image.Image, error) {
	switch {
	case strings.HasPrefix(key, "http://"), strings.HasPrefix(key, "https://"):
		return f.get(ctx, key)
	case strings.HasPrefix(key, "file://"):
		return decodeFile(strings.TrimPrefix(key, "file://"))
	default:
		return decodeFile(key)
	}
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return decode(resp.Body)
}

func decodeFile(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return decode(fh)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	return img, nil
}
