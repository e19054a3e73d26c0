package tilestream

import (
	"fmt"
)

// FetchError reports a single tile that could not be fetched or decoded.
// It is local to that tile: other tasks keep running.
type FetchError struct {
	Tile Tile
	Key  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch tile %d,%d (%s): %v", e.Tile.Col, e.Tile.Row, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// reportInternalError reports a scheduler failure that is not tied to a
// fetch, such as a panicking sink.
// If no handler is registered, the error is silently ignored.
func (s *Scheduler) reportInternalError(e error) {
	if s.opts.OnInternalError != nil {
		s.opts.OnInternalError(e)
	}
}

// reportFetchError reports a failed tile.
//
// Fetch errors do not stop the scheduler; the sink still receives the
// tile so it can draw a placeholder.
func (s *Scheduler) reportFetchError(err error) {
	if s.opts.OnFetchError != nil {
		s.opts.OnFetchError(err)
	}
}
