package tilestream

import (
	"context"
)

const (
	// DefaultConcurrency is the number of tile fetches allowed in flight.
	DefaultConcurrency = 4
)

// Options configure a Scheduler.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Concurrency caps the number of Running tasks.
	Concurrency int

	// Ctx is the parent of every task context and carries the logger.
	Ctx context.Context

	Metrics MetricsPolicy

	// OnRedraw is called after each settled task has been handed to the sink.
	OnRedraw func()

	// OnFetchError receives every per-tile *FetchError.
	OnFetchError func(error)

	// OnInternalError receives failures that are not tied to a fetch,
	// such as a panicking texture sink.
	OnInternalError func(error)
}

func (o *Options) FillDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}
