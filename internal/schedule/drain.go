package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ensureDrainLocked spawns the drain goroutine if the queue has work and
// no drain is active. Caller holds mu.
func (s *Scheduler) ensureDrainLocked() {
	if s.draining || len(s.queue) == 0 {
		return
	}
	s.draining = true
	go s.drain()
}

// drain executes queued updates until the queue empties, then exits.
//
// At most one drain goroutine exists at a time, which is what serializes
// effects. Each iteration picks the queued task with the lowest priority
// number, breaking ties by submission seq, so the order is deterministic
// regardless of when debounce windows happened to close.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.notifyIfIdleLocked()
			s.mu.Unlock()
			return
		}

		best := 0
		for i := 1; i < len(s.queue); i++ {
			t, b := s.queue[i], s.queue[best]
			if t.prio < b.prio || (t.prio == b.prio && t.seq < b.seq) {
				best = i
			}
		}
		t := s.queue[best]
		s.queue = append(s.queue[:best], s.queue[best+1:]...)
		s.running = t
		s.mu.Unlock()

		err := s.runTask(t)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Log and continue. One failing plugin must not stall the
			// drain for the others; the next change reschedules it.
			slog.Error("update failed",
				"plugin", t.plugin,
				"priority", int(t.prio),
				"seq", t.seq,
				"error", err,
			)
		}

		s.mu.Lock()
		s.running = nil
		s.lastRun[t.plugin] = s.now()
		s.mu.Unlock()
	}
}

// runTask executes one effect, converting a panic into an error so a
// broken plugin cannot take down the drain goroutine.
func (s *Scheduler) runTask(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", t.plugin, r)
		}
	}()

	slog.Debug("update running",
		"plugin", t.plugin,
		"priority", int(t.prio),
		"seq", t.seq,
	)
	return t.effect(s.baseCtx)
}

// sortStatuses orders introspection rows by plugin name.
func sortStatuses(rows []PluginStatus) {
	slices.SortFunc(rows, func(a, b PluginStatus) int {
		return strings.Compare(a.Plugin, b.Plugin)
	})
}
