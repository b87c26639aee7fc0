// Package reconcile keeps the document tree and the page store agreeing
// about page metadata.
//
// The two directions are deliberately asymmetric:
//
// Tree to store is ADDITIVE. After structural changes the reconciler
// creates records for new pages and corrects the index on existing
// ones. It never deletes records, and it never overwrites orientation
// or section on a record that already exists: the store is the
// authority for those fields, and a sync that rewrote them could stomp
// an embedder write waiting for its store->tree apply.
//
// Store to tree is NARROW. Only orientation and section membership flow
// back onto the tree. Index is derived from tree position, and the rest
// of a record (locked, status) is store-side metadata with no tree write.
//
// Every mutation path is guarded: a generation counter discards sync
// results computed against a tree that changed mid-flight, and processing
// flags let the wiring layer ignore the reconciler's own writes when they
// echo back through subscriptions.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"quire/internal/doc"
	"quire/internal/pagestore"
)

// ErrDiverged reports tree/store metadata that still disagrees when it
// must not, such as after a settle in tests.
var ErrDiverged = errors.New("reconcile: tree and store diverged")

// Reconciler synchronizes page metadata between a document tree and a
// page store.
//
// Thread-safety: safe for concurrent use. In practice both sync
// directions run as orchestrator effects on the single drain goroutine,
// so they never overlap; the flags and counter defend the cases where
// embedder threads mutate either side concurrently.
type Reconciler struct {
	doc   *doc.Document
	store *pagestore.Store
	ids   doc.IDSource

	// gen increments on every document change (Invalidate). A tree->store
	// pass captures gen before reading the tree and discards its results
	// if the counter moved before apply.
	gen atomic.Int64

	// syncing is true while a tree->store pass is writing to the store.
	// Store subscribers check it to skip reacting to those writes.
	syncing atomic.Bool

	// applying is true while a store->tree pass is writing to the tree.
	applying atomic.Bool
}

// New creates a reconciler over a document and a store. The id source
// issues the page id when seeding an empty store.
func New(d *doc.Document, s *pagestore.Store, ids doc.IDSource) *Reconciler {
	return &Reconciler{doc: d, store: s, ids: ids}
}

// Invalidate notes that the document changed. Pending tree->store results
// computed before this call will be discarded instead of applied. Call it
// before scheduling the sync that reacts to the same change.
func (r *Reconciler) Invalidate() {
	r.gen.Add(1)
}

// Generation returns the current change generation.
func (r *Reconciler) Generation() int64 {
	return r.gen.Load()
}

// SyncInProgress reports whether a tree->store pass is writing right now.
// Store subscribers use it to tell the reconciler's writes from the
// embedder's.
func (r *Reconciler) SyncInProgress() bool {
	return r.syncing.Load()
}

// ApplyInProgress reports whether a store->tree pass is writing right now.
func (r *Reconciler) ApplyInProgress() bool {
	return r.applying.Load()
}

// SyncTreeToStore makes the store cover the tree: every page gets a
// record, and indexes follow tree order. Existing records keep their
// orientation and section untouched, and records without a tree page
// are left alone.
//
// The pass captures the change generation, reads the tree, and applies
// only if no further change arrived in between. A stale pass is discarded
// silently; the change that invalidated it scheduled a fresh one.
func (r *Reconciler) SyncTreeToStore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gen := r.gen.Load()
	pages := r.doc.Pages()
	return r.apply(gen, pages)
}

// apply writes the tree state into the store unless gen went stale.
func (r *Reconciler) apply(gen int64, pages []doc.Folio) error {
	if r.gen.Load() != gen {
		slog.Debug("discarding stale page sync", "generation", gen, "current", r.gen.Load())
		return nil
	}
	if !r.syncing.CompareAndSwap(false, true) {
		return nil // already writing; that pass covers the same state
	}
	defer r.syncing.Store(false)

	for i := range pages {
		page := &pages[i]
		rec, ok := r.store.Get(page.ID)
		if !ok {
			r.store.Create(pagestore.Record{
				PageID:      page.ID,
				Index:       i,
				Orientation: page.Orientation,
				SectionID:   page.SectionID,
				Status:      page.Status,
			})
			continue
		}
		if rec.Index != i {
			if err := r.store.SetIndex(page.ID, i); err != nil {
				return fmt.Errorf("sync index of %s: %w", page.ID, err)
			}
		}
	}
	return nil
}

// ApplyStoreMetadata makes the tree follow the store on the two fields
// the store owns: orientation and section membership. All other record
// fields, and records whose page is not in the tree, are ignored.
func (r *Reconciler) ApplyStoreMetadata(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.applying.CompareAndSwap(false, true) {
		return nil
	}
	defer r.applying.Store(false)

	snap := r.store.Snapshot()
	err := r.doc.Update(doc.OriginReconcile, func(tx *doc.Tx) error {
		for _, id := range tx.PageIDs() {
			rec, ok := snap[id]
			if !ok {
				continue
			}
			if err := tx.SetOrientation(id, rec.Orientation); err != nil {
				return fmt.Errorf("apply orientation to %s: %w", id, err)
			}
			if err := tx.SetSection(id, rec.SectionID); err != nil {
				return fmt.Errorf("apply section to %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply store metadata: %w", err)
	}
	return nil
}

// Seed mounts the document from the store.
//
// An empty store first receives a single record: a fresh page id with the
// prototype's orientation, section and status. The tree, which must be
// empty, is then populated with one page per record in index order, each
// taking paper, margins and zone references from the prototype. When the
// tree already has pages, Seed instead pushes the tree into the store so
// both sides start agreed.
func (r *Reconciler) Seed(ctx context.Context, proto doc.Folio) error {
	if r.doc.PageCount() > 0 {
		return r.SyncTreeToStore(ctx)
	}

	if r.store.Len() == 0 {
		r.syncing.Store(true)
		r.store.Create(pagestore.Record{
			PageID:      r.ids.NewID(),
			Index:       0,
			Orientation: proto.Orientation,
			SectionID:   proto.SectionID,
			Status:      doc.StatusDraft,
		})
		r.syncing.Store(false)
	}

	records := make([]pagestore.Record, 0, r.store.Len())
	for _, rec := range r.store.Snapshot() {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })

	r.applying.Store(true)
	defer r.applying.Store(false)
	err := r.doc.Update(doc.OriginSeed, func(tx *doc.Tx) error {
		for _, rec := range records {
			_, err := tx.AppendPage(doc.Folio{
				ID:          rec.PageID,
				Orientation: rec.Orientation,
				SectionID:   rec.SectionID,
				Status:      rec.Status,
				Paper:       proto.Paper,
				Margins:     proto.Margins,
				HeaderRef:   proto.HeaderRef,
				FooterRef:   proto.FooterRef,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed tree from store: %w", err)
	}
	return nil
}

// Diverged lists page ids whose tree and store metadata disagree, plus
// tree pages with no record at all. Records without a tree page are not
// divergence; the tree side is authoritative for the page set.
func (r *Reconciler) Diverged() []string {
	snap := r.store.Snapshot()
	var out []string
	for i, page := range r.doc.Pages() {
		rec, ok := snap[page.ID]
		if !ok {
			out = append(out, page.ID)
			continue
		}
		if rec.Index != i || rec.Orientation != page.Orientation || rec.SectionID != page.SectionID {
			out = append(out, page.ID)
		}
	}
	return out
}

// Verify returns ErrDiverged naming the disagreeing pages, or nil.
func (r *Reconciler) Verify() error {
	if ids := r.Diverged(); len(ids) > 0 {
		return fmt.Errorf("%w: %v", ErrDiverged, ids)
	}
	return nil
}
