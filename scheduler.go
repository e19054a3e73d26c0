package tilestream

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Scheduler tracks every tile that has been requested but not yet settled
// (the known set) and runs their fetches under a concurrency cap, always
// starting the pending task with the highest positive priority first.
//
// All state is guarded by a single mutex, so Submit, Clear and the
// completion of a fetch form one serialized sequence. Fetches run on their
// own goroutines and are the only suspension point.
//
// The sink is invoked while the mutex is held: it must not call back into
// the Scheduler.
type Scheduler struct {
	mu sync.Mutex

	opts    Options
	fetcher Fetcher
	sink    TextureSink

	cfg    PanoramaConfig
	hasCfg bool

	known   map[int]*task
	pending pendingQueue
	running int
	seq     uint64

	// changed is closed and replaced whenever a task settles or the
	// known set is cleared.
	changed chan struct{}
}

// NewScheduler creates a Scheduler. A panorama must be installed with
// Reset before tiles can be submitted.
func NewScheduler(fetcher Fetcher, sink TextureSink, opts Options) (*Scheduler, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	opts.FillDefaults()

	return &Scheduler{
		opts:    opts,
		fetcher: fetcher,
		sink:    sink,
		known:   make(map[int]*task),
		changed: make(chan struct{}),
	}, nil
}

// Reset validates cfg, cancels everything known under the previous
// panorama and installs cfg. An invalid cfg leaves the scheduler untouched.
func (s *Scheduler) Reset(cfg PanoramaConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.detachLocked()
	s.cfg = cfg
	s.hasCfg = true
	s.mu.Unlock()

	s.cancelAll(old)
	return nil
}

// Clear cancels every known task and empties the known set. It does not
// wait for in-flight fetches; their results are discarded when they arrive.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	old := s.detachLocked()
	s.mu.Unlock()

	s.cancelAll(old)
}

// detachLocked empties the known set and returns its former members, marked
// Cancelled so their completions are ignored.
func (s *Scheduler) detachLocked() []*task {
	old := make([]*task, 0, len(s.known))
	for _, t := range s.known {
		t.status = Cancelled
		old = append(old, t)
	}
	s.known = make(map[int]*task)
	s.pending.reset()
	s.running = 0
	s.notifyLocked()
	return old
}

func (s *Scheduler) cancelAll(tasks []*task) {
	if len(tasks) == 0 {
		return
	}
	for _, t := range tasks {
		if t.cancel != nil {
			t.cancel()
		}
		s.opts.Metrics.IncCancelled()
	}
	lg.FromContext(s.opts.Ctx).Info("tile tasks cancelled", lg.Int("count", len(tasks)))
}

// Submit merges a freshly computed candidate list into the known set.
//
// Every known task is first demoted to DisabledPriority so that tiles which
// left the view are not newly started; running tasks are never preempted.
// Each candidate then gets priority π/2 - angle: a known tile takes the new
// value, an unknown one becomes a Pending task. Free slots are filled
// before Submit returns.
func (s *Scheduler) Submit(cands []Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCfg {
		return ErrNoPanorama
	}

	for _, t := range s.known {
		t.priority = DisabledPriority
	}

	for _, c := range cands {
		if !c.Tile.Valid(s.cfg) {
			s.reportInternalError(fmt.Errorf("tilestream: candidate tile %d,%d outside %dx%d grid",
				c.Tile.Col, c.Tile.Row, s.cfg.Cols, s.cfg.Rows))
			continue
		}

		if math.IsNaN(c.Angle) || math.IsInf(c.Angle, 0) {
			s.reportInternalError(fmt.Errorf("tilestream: candidate tile %d,%d has non-finite angle %v",
				c.Tile.Col, c.Tile.Row, c.Angle))
			continue
		}

		id := c.Tile.ID(s.cfg)
		prio := PriorityFromAngle(c.Angle)

		if t, ok := s.known[id]; ok {
			t.priority = prio
			continue
		}

		s.seq++
		t := &task{
			tile:     c.Tile,
			id:       id,
			key:      s.cfg.TileURL(c.Tile.Col, c.Tile.Row),
			priority: prio,
			status:   Pending,
			seq:      s.seq,
			index:    -1,
		}
		s.known[id] = t
		s.pending.add(t)
	}

	s.pending.rebuild()
	s.scheduleLocked()
	return nil
}

// Schedule fills free slots with the best pending tasks.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

func (s *Scheduler) scheduleLocked() {
	for s.running < s.opts.Concurrency {
		t, ok := s.pending.peek()
		if !ok || !(t.priority > 0) {
			return
		}
		s.pending.take()
		s.startLocked(t)
	}
}

func (s *Scheduler) startLocked(t *task) {
	t.status = Running
	t.ctx, t.cancel = context.WithCancel(s.opts.Ctx)
	s.running++
	s.opts.Metrics.IncStarted()

	lg.FromContext(t.ctx).Info("tile fetch started",
		lg.Int("col", t.tile.Col),
		lg.Int("row", t.tile.Row),
		lg.Any("priority", t.priority),
		lg.Int("running", s.running),
	)

	go s.execute(t)
}

// settle records the outcome of a finished fetch, hands it to the sink and
// refills the freed slot. Results of cancelled tasks are dropped.
func (s *Scheduler) settle(t *task, img image.Image, err error) {
	logger := lg.FromContext(t.ctx).With(lg.Int("col", t.tile.Col), lg.Int("row", t.tile.Row))

	s.mu.Lock()
	if t.status == Cancelled {
		s.mu.Unlock()
		t.cancel()
		s.opts.Metrics.IncDropped()
		logger.Info("late tile result dropped")
		return
	}

	t.cancel()
	delete(s.known, t.id)
	s.running--

	var ferr error
	if err != nil {
		t.status = Failed
		ferr = &FetchError{Tile: t.tile, Key: t.key, Err: err}
		s.opts.Metrics.IncFailed()
		logger.Warn("tile fetch failed", lg.Any("error", err))
	} else {
		t.status = Done
		s.opts.Metrics.IncDone()
		logger.Info("tile fetch finished", lg.Int("running", s.running))
	}

	s.deliverLocked(t, img, ferr)
	s.scheduleLocked()
	s.notifyLocked()
	s.mu.Unlock()

	if ferr != nil {
		s.reportFetchError(ferr)
	}
	if s.opts.OnRedraw != nil {
		s.opts.OnRedraw()
	}
}

func (s *Scheduler) deliverLocked(t *task, img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			lg.FromContext(s.opts.Ctx).Error("texture sink panicked", lg.Any("panic", r))
			s.reportInternalError(fmt.Errorf("tilestream: texture sink panicked on tile %d,%d: %v",
				t.tile.Col, t.tile.Row, r))
		}
	}()
	s.sink.Deliver(t.tile, img, err)
}

func (s *Scheduler) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// idleLocked reports whether nothing runs and nothing can be started.
func (s *Scheduler) idleLocked() bool {
	if s.running > 0 {
		return false
	}
	t, ok := s.pending.peek()
	return !ok || !(t.priority > 0)
}

// Wait blocks until no task is running and no pending task is eligible to
// start, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.idleLocked() {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Panorama returns the installed panorama, if any.
func (s *Scheduler) Panorama() (PanoramaConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.hasCfg
}

// Known returns the size of the known set.
func (s *Scheduler) Known() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.known)
}

// Running returns the number of Running tasks.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Concurrency returns the configured cap on Running tasks.
func (s *Scheduler) Concurrency() int { return s.opts.Concurrency }

// Task returns a snapshot of the known task for tile.
func (s *Scheduler) Task(tile Tile) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCfg || !tile.Valid(s.cfg) {
		return TaskInfo{}, false
	}
	t, ok := s.known[tile.ID(s.cfg)]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info(), true
}

// Tasks returns snapshots of all known tasks ordered by tile id.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.known))
	ids := make([]int, 0, len(s.known))
	for id := range s.known {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, s.known[id].info())
	}
	return out
}
