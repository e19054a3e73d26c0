package tilestream

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MetricsPolicy defines hooks used by the scheduler to report task
// lifecycle events.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncStarted counts Pending -> Running transitions.
	IncStarted()

	// IncDone counts successful fetches handed to the sink.
	IncDone()

	// IncFailed counts failed fetches handed to the sink.
	IncFailed()

	// IncCancelled counts tasks cancelled by Clear.
	IncCancelled()

	// IncDropped counts late results of cancelled tasks that were discarded.
	IncDropped()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	started atomic.Uint64
	_       cpu.CacheLinePad

	done      atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
	dropped   atomic.Uint64
}

func (m *AtomicMetrics) IncStarted()   { m.started.Add(1) }
func (m *AtomicMetrics) IncDone()      { m.done.Add(1) }
func (m *AtomicMetrics) IncFailed()    { m.failed.Add(1) }
func (m *AtomicMetrics) IncCancelled() { m.cancelled.Add(1) }
func (m *AtomicMetrics) IncDropped()   { m.dropped.Add(1) }

// Started returns the total number of fetches started.
func (m *AtomicMetrics) Started() uint64 { return m.started.Load() }

// Done returns the total number of successful fetches.
func (m *AtomicMetrics) Done() uint64 { return m.done.Load() }

// Failed returns the total number of failed fetches.
func (m *AtomicMetrics) Failed() uint64 { return m.failed.Load() }

// Cancelled returns the total number of cancelled tasks.
func (m *AtomicMetrics) Cancelled() uint64 { return m.cancelled.Load() }

// Dropped returns the number of discarded late results.
func (m *AtomicMetrics) Dropped() uint64 { return m.dropped.Load() }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncStarted()   {}
func (m *NoopMetrics) IncDone()      {}
func (m *NoopMetrics) IncFailed()    {}
func (m *NoopMetrics) IncCancelled() {}
func (m *NoopMetrics) IncDropped()   {}
