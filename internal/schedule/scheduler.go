package schedule

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the debounce window applied to plugins without a
// per-plugin override. Wide enough to coalesce a typing burst, short
// enough that pagination feels immediate.
const DefaultDebounce = 100 * time.Millisecond

// Scheduler is the update orchestrator.
//
// Thread-safety model:
//   - Schedule / ScheduleNow / Cancel / CancelAll: safe from any goroutine
//   - Wait / HasPending / SinceLastRun / Status: safe from any goroutine
//   - effects: executed by the single drain goroutine, never concurrently
//
// A Scheduler is a constructed value with no package-level state; tests
// and sessions build as many independent instances as they need.
type Scheduler struct {
	mu       sync.Mutex
	debounce time.Duration
	delays   map[string]time.Duration
	clock    *Clock
	now      func() time.Time

	timers   map[string]*pendingTimer
	queue    []*task
	running  *task
	draining bool
	lastRun  map[string]time.Time
	waiters  []chan struct{}
	closed   bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// pendingTimer is a submission whose debounce window is still open.
type pendingTimer struct {
	task  *task
	timer *time.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce sets the default debounce window for all plugins.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		s.debounce = d
	}
}

// WithDelay overrides the debounce window for one plugin. Structural
// passes typically run on a shorter window than history capture.
func WithDelay(plugin string, d time.Duration) Option {
	return func(s *Scheduler) {
		s.delays[plugin] = d
	}
}

// WithNow sets the time source used for last-run bookkeeping.
// Tests pass testutil's manual clock; production uses time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates an idle scheduler.
func New(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		debounce: DefaultDebounce,
		delays:   make(map[string]time.Duration),
		clock:    NewClock(),
		now:      time.Now,
		timers:   make(map[string]*pendingTimer),
		lastRun:  make(map[string]time.Time),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// delayFor returns the plugin's debounce window.
func (s *Scheduler) delayFor(plugin string) time.Duration {
	if d, ok := s.delays[plugin]; ok {
		return d
	}
	return s.debounce
}

// Schedule submits an update behind the plugin's debounce window.
//
// If the plugin already has a submission debouncing, the pending effect is
// replaced and the window restarts: the last write wins. If the plugin's
// previous submission is already due but not yet run, its queued effect is
// replaced in place, keeping its drain position. A submission made while
// the plugin's effect is EXECUTING opens a fresh window; running work is
// never replaced or interrupted.
//
// Returns false if the scheduler is closed.
func (s *Scheduler) Schedule(plugin string, prio Priority, effect Effect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if p, ok := s.timers[plugin]; ok {
		p.task.prio = prio
		p.task.effect = effect
		p.task.seq = s.clock.Next()
		p.timer.Reset(s.delayFor(plugin))
		return true
	}

	if t := s.queuedLocked(plugin); t != nil {
		t.prio = prio
		t.effect = effect
		return true
	}

	t := &task{plugin: plugin, prio: prio, seq: s.clock.Next(), effect: effect}
	s.timers[plugin] = &pendingTimer{
		task:  t,
		timer: time.AfterFunc(s.delayFor(plugin), func() { s.fire(plugin) }),
	}
	return true
}

// ScheduleNow submits an update that skips the debounce window and goes
// straight onto the queue. Priority ordering still applies; an immediate
// submission does not jump ahead of higher-priority queued work.
//
// Any debouncing submission for the same plugin is superseded. Returns
// false if the scheduler is closed.
func (s *Scheduler) ScheduleNow(plugin string, prio Priority, effect Effect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if p, ok := s.timers[plugin]; ok {
		p.timer.Stop()
		delete(s.timers, plugin)
	}

	if t := s.queuedLocked(plugin); t != nil {
		t.prio = prio
		t.effect = effect
		return true
	}

	s.queue = append(s.queue, &task{plugin: plugin, prio: prio, seq: s.clock.Next(), effect: effect})
	s.ensureDrainLocked()
	return true
}

// fire moves a debounced submission onto the queue when its window closes.
func (s *Scheduler) fire(plugin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[plugin]
	if !ok {
		return // cancelled or superseded while the timer was firing
	}
	delete(s.timers, plugin)
	s.queue = append(s.queue, p.task)
	s.ensureDrainLocked()
}

// queuedLocked returns the queued task for a plugin, or nil.
func (s *Scheduler) queuedLocked(plugin string) *task {
	for _, t := range s.queue {
		if t.plugin == plugin {
			return t
		}
	}
	return nil
}

// Cancel discards the plugin's pending update, whether debouncing or
// queued. An executing effect is not interrupted: cancellation affects
// pending work only. Reports whether anything was discarded.
func (s *Scheduler) Cancel(plugin string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := false
	if p, ok := s.timers[plugin]; ok {
		p.timer.Stop()
		delete(s.timers, plugin)
		cancelled = true
	}
	for i, t := range s.queue {
		if t.plugin == plugin {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			cancelled = true
			break
		}
	}
	if cancelled {
		s.notifyIfIdleLocked()
	}
	return cancelled
}

// CancelAll discards every pending update. Executing work finishes.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for plugin, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, plugin)
	}
	s.queue = nil
	s.notifyIfIdleLocked()
}

// Close cancels all pending work, cancels the context passed to effects,
// and rejects future submissions. An executing effect is left to observe
// the cancelled context and return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for plugin, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, plugin)
	}
	s.queue = nil
	s.cancel()
	s.notifyIfIdleLocked()
}

// Wait blocks until the scheduler is idle: no open debounce window, an
// empty queue, and no executing effect. Returns early with the context's
// error if ctx is done first.
//
// Must not be called from inside an effect.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.idleLocked() {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// HasPending reports whether any update is debouncing, queued or running.
func (s *Scheduler) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.idleLocked()
}

// SinceLastRun returns how long ago the plugin's effect last finished.
// The second return is false if it never ran.
func (s *Scheduler) SinceLastRun(plugin string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastRun[plugin]
	if !ok {
		return 0, false
	}
	return s.now().Sub(at), true
}

// Status returns one row per plugin with in-flight or completed work,
// sorted by plugin name for stable output.
func (s *Scheduler) Status() []PluginStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPlugin := make(map[string]PluginStatus)
	for plugin, p := range s.timers {
		byPlugin[plugin] = PluginStatus{Plugin: plugin, Priority: p.task.prio, State: StateDebouncing}
	}
	for _, t := range s.queue {
		byPlugin[t.plugin] = PluginStatus{Plugin: t.plugin, Priority: t.prio, State: StateQueued}
	}
	if s.running != nil {
		byPlugin[s.running.plugin] = PluginStatus{Plugin: s.running.plugin, Priority: s.running.prio, State: StateRunning}
	}
	for plugin, at := range s.lastRun {
		row, ok := byPlugin[plugin]
		if !ok {
			row = PluginStatus{Plugin: plugin}
		}
		row.LastRun = at
		byPlugin[plugin] = row
	}

	out := make([]PluginStatus, 0, len(byPlugin))
	for _, row := range byPlugin {
		out = append(out, row)
	}
	sortStatuses(out)
	return out
}

// idleLocked reports full quiescence. Caller holds mu.
func (s *Scheduler) idleLocked() bool {
	return len(s.timers) == 0 && len(s.queue) == 0 && s.running == nil && !s.draining
}

// notifyIfIdleLocked releases waiters when the scheduler just became
// idle. Caller holds mu.
func (s *Scheduler) notifyIfIdleLocked() {
	if !s.idleLocked() {
		return
	}
	for _, ch := range s.waiters {
		close(ch)
	}
	s.waiters = nil
}
