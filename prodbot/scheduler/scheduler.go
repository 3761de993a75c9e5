package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/dispatch"
	"github.com/disgoorg/productivity-bot/prodbot/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/robfig/cron/v3"
)

const (
	FamilyCountdowns        = dispatch.FamilyCountdowns
	FamilyReminders         = dispatch.FamilyReminders
	FamilyScheduledMessages = dispatch.FamilyScheduledMessages
	FamilyPolls             = dispatch.FamilyPolls
)

var (
	ErrUnknownFamily  = errors.New("unknown family")
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Pass runs one sweep over a family's due items.
type Pass func(ctx context.Context) (dispatch.PassResult, error)

// FamilyStats is the last known state of a family loop.
type FamilyStats struct {
	Cadence      string
	Runs         int64
	LastRun      time.Time
	LastDuration time.Duration
	LastError    string
	Processed    int
	Failed       int
	Orphaned     int
}

type job struct {
	family   string
	cadence  string
	schedule cron.Schedule
	pass     Pass
	running  sync.Mutex // serializes loop ticks and RunNow
}

// Scheduler owns one loop per family. A loop runs one pass on start, then
// waits for each next tick and runs the pass synchronously, so a family never overlaps itself; families
// run independently of each other.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	jobs    map[string]*job
	started bool

	stats *xsync.MapOf[string, FamilyStats]
	now   func() time.Time
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*job),
		stats:  xsync.NewMapOf[string, FamilyStats](),
		now:    time.Now,
	}
}

// Register adds or replaces a family. It must be called before Start.
func (s *Scheduler) Register(family string, schedule cron.Schedule, cadence string, pass Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if _, exists := s.jobs[family]; exists {
		slog.Warn("Family already registered, replacing it", slog.String("family", family))
	}
	s.jobs[family] = &job{family: family, cadence: cadence, schedule: schedule, pass: pass}
	s.stats.Store(family, FamilyStats{Cadence: cadence})
	return nil
}

// RegisterSpec parses the cadence spec and registers the family.
func (s *Scheduler) RegisterSpec(family, spec string, pass Pass) error {
	schedule, err := ParseCadence(spec)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", family, err)
	}
	return s.Register(family, schedule, spec, pass)
}

// Start launches the family loops. Only the first call has any effect; ctx
// cancellation stops the loops like Shutdown does, without waiting.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return false
	}
	s.started = true

	if ctx != nil {
		stop := context.AfterFunc(ctx, s.cancel)
		go func() {
			<-s.ctx.Done()
			stop()
		}()
	}

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
	}

	logger.LogSystem("Scheduler started", slog.Int("families", len(s.jobs)))
	return true
}

func (s *Scheduler) loop(j *job) {
	defer s.wg.Done()

	// Catch up on anything that came due while the bot was offline.
	if s.ctx.Err() == nil {
		s.run(s.ctx, j)
	}

	for {
		now := s.now()
		next := j.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.run(s.ctx, j)
	}
}

// run executes one pass and records its outcome. Panics are logged and the
// loop keeps going.
func (s *Scheduler) run(ctx context.Context, j *job) (res dispatch.PassResult, err error) {
	j.running.Lock()
	defer j.running.Unlock()

	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s pass: %v", j.family, r)
		}
		took := time.Since(start)
		s.record(j.family, start, took, res, err)

		if err != nil {
			logger.LogError("Sweep pass failed", err, slog.String("family", j.family))
			return
		}
		logger.LogSweep(j.family, res.Processed, res.Failed, took)
	}()

	return j.pass(ctx)
}

func (s *Scheduler) record(family string, at time.Time, took time.Duration, res dispatch.PassResult, err error) {
	s.stats.Compute(family, func(old FamilyStats, _ bool) (FamilyStats, bool) {
		old.Runs++
		old.LastRun = at
		old.LastDuration = took
		old.Processed = res.Processed
		old.Failed = res.Failed
		old.Orphaned = res.Orphaned
		old.LastError = ""
		if err != nil {
			old.LastError = err.Error()
		}
		return old, false
	})
}

// RunNow runs one pass of family synchronously. It waits for an in-flight
// loop pass of the same family to finish first.
func (s *Scheduler) RunNow(ctx context.Context, family string) (dispatch.PassResult, error) {
	s.mu.RLock()
	j, ok := s.jobs[family]
	s.mu.RUnlock()
	if !ok {
		return dispatch.PassResult{Family: family}, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	return s.run(ctx, j)
}

// Shutdown stops the loops and waits for in-flight passes to finish their
// current item, bounded by timeout.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.mu.RLock()
	count := len(s.jobs)
	s.mu.RUnlock()

	logger.LogSystem("Draining scheduler", slog.Int("families", count))
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.LogSystem("Scheduler drained")
		return nil
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for sweep passes to drain",
			slog.String("type", "sys"),
			slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}

// Stats returns a snapshot of every family's stats.
func (s *Scheduler) Stats() map[string]FamilyStats {
	out := make(map[string]FamilyStats)
	s.stats.Range(func(family string, st FamilyStats) bool {
		out[family] = st
		return true
	})
	return out
}

// Families returns the registered family names, sorted.
func (s *Scheduler) Families() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	families := make([]string, 0, len(s.jobs))
	for family := range s.jobs {
		families = append(families, family)
	}
	sort.Strings(families)
	return families
}
