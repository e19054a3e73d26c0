package tilestream

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrNilFetcher is returned when a Scheduler or Loader is built without a Fetcher.
	ErrNilFetcher = errors.New("tilestream: fetcher is nil")

	// ErrNilSink is returned when a Scheduler or Loader is built without a TextureSink.
	ErrNilSink = errors.New("tilestream: texture sink is nil")

	// ErrNoPanorama is returned when tiles are submitted before any panorama
	// has been loaded.
	ErrNoPanorama = errors.New("tilestream: no panorama loaded")
)

// DisabledPriority is assigned to every known task at the start of a
// Submit. Tasks left at this value are never started.
const DisabledPriority = -1.0

// PriorityFromAngle converts the angular distance from the view center to
// a scheduling priority. Tiles 90° or more away get a non-positive priority.
func PriorityFromAngle(angle float64) float64 {
	return math.Pi/2 - angle
}

// TaskStatus is the lifecycle state of a scheduled tile fetch.
type TaskStatus int

const (
	Pending TaskStatus = iota
	Running
	Cancelled
	Done
	Failed
)

func (s TaskStatus) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Cancelled:
		return "Cancelled"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Settled reports whether the status is terminal.
func (s TaskStatus) Settled() bool {
	return s == Cancelled || s == Done || s == Failed
}

// task is the scheduler's record of one tile. It lives in the known set
// from the first request until it settles or the scheduler is cleared.
type task struct {
	tile     Tile
	id       int
	key      string
	priority float64
	status   TaskStatus

	// seq is the insertion order, used to break priority ties.
	seq uint64

	// index is the position in the pending heap, -1 when not queued.
	index int

	ctx    context.Context
	cancel context.CancelFunc
}

// TaskInfo is a read-only snapshot of a known task.
type TaskInfo struct {
	Tile     Tile
	Key      string
	Priority float64
	Status   TaskStatus
}

func (t *task) info() TaskInfo {
	return TaskInfo{
		Tile:     t.tile,
		Key:      t.key,
		Priority: t.priority,
		Status:   t.status,
	}
}
