package session

import (
	"log/slog"
	"strings"

	"quire/internal/doc"
	"quire/internal/pagestore"
	"quire/internal/schedule"
)

// onChange is the document change listener. It runs synchronously on
// the committing goroutine, so it only records, enqueues and schedules;
// all real work happens later on the drain.
func (s *Session) onChange(change doc.Change) {
	if s.closed.Load() {
		return
	}
	s.collab.Note(change)

	slog.Debug("change committed",
		"origin", string(change.Origin),
		"revision", change.Revision,
		"structural", change.Structural,
		"touched", len(change.PageIDs),
	)

	if name, ok := strings.CutPrefix(string(change.Origin), "plugin/"); ok {
		if prio, known := s.pluginPriority(name); known {
			s.fanOutFrom(prio+1, change.PageIDs)
			return
		}
		// A writer the session does not host: treat like a user edit.
	}

	// Invalidate pairs with the structure schedule below: a pending
	// tree->store pass computed before this change is discarded, and the
	// fresh one scheduled here covers both changes.
	s.rec.Invalidate()
	s.sched.Schedule(slotStructure, schedule.PriorityStructure, s.rec.SyncTreeToStore)

	if change.Origin == doc.OriginReflow {
		// A flush chains its own destination checks. Re-enqueueing the
		// touched pages would only re-measure settled pages.
		s.sched.Schedule(slotReflow, schedule.PriorityReflow, s.eng.Flush)
		s.schedulePlugins(schedule.PriorityHeaderFooter)
		return
	}
	s.fanOutFrom(schedule.PriorityHeaderFooter, change.PageIDs)
}

// fanOutFrom enqueues the touched pages and wakes every slot at or
// after the given priority.
func (s *Session) fanOutFrom(from schedule.Priority, pageIDs []string) {
	if from <= schedule.PriorityReflow {
		for _, id := range pageIDs {
			s.eng.Enqueue(id)
		}
		s.sched.Schedule(slotReflow, schedule.PriorityReflow, s.eng.Flush)
	}
	s.schedulePlugins(from)
}

// schedulePlugins wakes the hosted plugins at or after the given
// priority.
func (s *Session) schedulePlugins(from schedule.Priority) {
	for _, p := range s.plugins {
		if p.Priority() < from {
			continue
		}
		s.sched.Schedule(p.Name(), p.Priority(), p.Run)
	}
}

// pluginPriority resolves a hosted plugin's slot by name.
func (s *Session) pluginPriority(name string) (schedule.Priority, bool) {
	for _, p := range s.plugins {
		if p.Name() == name {
			return p.Priority(), true
		}
	}
	return 0, false
}

// onStoreChange is the page store subscriber. Embedder metadata writes
// schedule a store->tree apply; the reconciler's own writes and changes
// to store-side fields (index, lock) wake nothing.
func (s *Session) onStoreChange(prev, next pagestore.Snapshot) {
	if s.closed.Load() {
		return
	}
	if !s.storeAheadOfTree(prev, next) {
		return
	}
	s.sched.Schedule(slotMetadata, schedule.PriorityStructure, s.rec.ApplyStoreMetadata)
}

// storeAheadOfTree reports whether the snapshot transition carries an
// orientation or section value the tree has not applied yet. The
// reconciler's writes always mirror the tree, so a record the tree
// disagrees with is an embedder write, even one landing mid-sync.
func (s *Session) storeAheadOfTree(prev, next pagestore.Snapshot) bool {
	for id, rec := range next {
		old, ok := prev[id]
		if ok && old.Orientation == rec.Orientation && old.SectionID == rec.SectionID {
			continue // index or lock movement stays store-side
		}
		page, err := s.doc.Page(id)
		if err != nil {
			continue // a record without a tree page has nowhere to apply
		}
		if page.Orientation != rec.Orientation || page.SectionID != rec.SectionID {
			return true
		}
	}
	return false
}
