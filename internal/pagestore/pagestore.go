// Package pagestore holds per-page metadata outside the document tree.
//
// The store is the authority for page metadata: embedders change
// orientation or section membership here, and the reconciler applies those
// fields back onto the tree. The tree-facing direction is additive; the
// reconciler creates and corrects records but never deletes them, so a
// record may outlive its page. Consumers filter against the tree's page
// set when that matters.
//
// Mutations notify subscribers synchronously with before/after snapshots.
// Subscribers must not mutate the store from inside the callback.
package pagestore

import (
	"errors"
	"fmt"
	"sync"

	"quire/internal/doc"
)

// ErrUnknownPage reports a page id with no record.
var ErrUnknownPage = errors.New("pagestore: unknown page")

// Record is one page's metadata row.
type Record struct {
	PageID      string          `json:"page_id"`
	Index       int             `json:"index"`
	Orientation doc.Orientation `json:"orientation"`
	SectionID   string          `json:"section_id,omitempty"`
	Locked      bool            `json:"locked,omitempty"`
	Status      doc.PageStatus  `json:"status"`
}

// Snapshot is an immutable copy of the whole store, keyed by page id.
type Snapshot map[string]Record

// Store is an in-memory reactive page-metadata store.
//
// Thread-safety: all methods are safe for concurrent use. Reads return
// copies; callers never share memory with the store.
type Store struct {
	mu          sync.Mutex
	records     map[string]Record
	subscribers []func(prev, next Snapshot)
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]Record)}
}

// Subscribe registers a listener invoked after every effective mutation
// with the store state before and after. Writes that change nothing do
// not notify.
func (s *Store) Subscribe(fn func(prev, next Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Create inserts a record if no record for its page exists yet.
// Reports whether a record was created; an existing record is left
// untouched, making Create safe to repeat.
func (s *Store) Create(rec Record) bool {
	s.mu.Lock()
	if _, exists := s.records[rec.PageID]; exists {
		s.mu.Unlock()
		return false
	}
	prev := s.snapshotLocked()
	s.records[rec.PageID] = rec
	s.notifyLocked(prev)
	return true
}

// Get returns the record for a page.
func (s *Store) Get(pageID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pageID]
	return rec, ok
}

// Snapshot returns a copy of every record.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetIndex records a page's tree position.
func (s *Store) SetIndex(pageID string, index int) error {
	return s.mutate(pageID, func(r *Record) { r.Index = index })
}

// SetOrientation records a page's orientation. The reconciler watches
// this field and applies it to the tree.
func (s *Store) SetOrientation(pageID string, o doc.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("set orientation %q: unknown orientation", o)
	}
	return s.mutate(pageID, func(r *Record) { r.Orientation = o })
}

// SetSection records a page's section membership. The reconciler watches
// this field and applies it to the tree.
func (s *Store) SetSection(pageID, sectionID string) error {
	return s.mutate(pageID, func(r *Record) { r.SectionID = sectionID })
}

// SetLocked flags a page as locked for editing. Store-only metadata; the
// tree is not touched.
func (s *Store) SetLocked(pageID string, locked bool) error {
	return s.mutate(pageID, func(r *Record) { r.Locked = locked })
}

// SetStatus records a page's lifecycle status.
func (s *Store) SetStatus(pageID string, status doc.PageStatus) error {
	return s.mutate(pageID, func(r *Record) { r.Status = status })
}

// Delete removes a record. The reconciler never calls this; it exists for
// embedders that clean up after permanent page removal. Reports whether a
// record was removed.
func (s *Store) Delete(pageID string) bool {
	s.mu.Lock()
	if _, ok := s.records[pageID]; !ok {
		s.mu.Unlock()
		return false
	}
	prev := s.snapshotLocked()
	delete(s.records, pageID)
	s.notifyLocked(prev)
	return true
}

// mutate applies fn to a page's record and notifies when the record
// actually changed.
func (s *Store) mutate(pageID string, fn func(*Record)) error {
	s.mu.Lock()
	rec, ok := s.records[pageID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("page %s: %w", pageID, ErrUnknownPage)
	}
	next := rec
	fn(&next)
	if next == rec {
		s.mu.Unlock()
		return nil
	}
	prev := s.snapshotLocked()
	s.records[pageID] = next
	s.notifyLocked(prev)
	return nil
}

// snapshotLocked copies the record map. Caller holds mu.
func (s *Store) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(s.records))
	for id, rec := range s.records {
		snap[id] = rec
	}
	return snap
}

// notifyLocked releases the lock and delivers prev/next snapshots to
// subscribers. Called as the final statement of a mutation while holding
// mu; the lock is NOT held during delivery, so subscribers may read the
// store, but a subscriber that writes back would re-enter and must not.
func (s *Store) notifyLocked(prev Snapshot) {
	next := s.snapshotLocked()
	subs := make([]func(prev, next Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(prev, next)
	}
}
