package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"quire/internal/doc"
	"quire/internal/geometry"
	"quire/internal/pagestore"
	"quire/internal/plugin"
	"quire/internal/reconcile"
	"quire/internal/reflow"
	"quire/internal/schedule"
	"quire/internal/snapshot"
	"quire/internal/template"
)

// versioningDelayFactor stretches the versioning debounce relative to
// the base window. History capture carries the longest delay of all
// slots so snapshots see settled documents, not keystrokes.
const versioningDelayFactor = 10

// Scheduler slot names for the session's own effects. Plugin slots use
// the plugin names.
const (
	slotStructure = "structure"
	slotMetadata  = "metadata"
	slotReflow    = "reflow"
)

// ErrPageLocked reports a structural operation on a locked page.
var ErrPageLocked = errors.New("session: page is locked")

// ErrNoSelection reports a caret-relative edit with no caret placed.
var ErrNoSelection = errors.New("session: no block selected")

// Config describes a session to open. The zero value is usable: it
// mounts the built-in template with UUID ids, the default font model
// and no version capture.
type Config struct {
	// Template shapes new pages: paper, margins, orientation and the
	// header/footer line templates. Zero value: template.Default().
	Template template.Template

	// Font is the monospace measurement model backing the oracle.
	// Zero value: geometry.DefaultFont.
	Font geometry.FontMetrics

	// Debounce is the default debounce window for scheduled updates.
	// Zero value: schedule.DefaultDebounce. Tests pass a tiny window.
	Debounce time.Duration

	// Delays overrides the debounce window per slot name. Without an
	// entry for "versioning" the session stretches that slot by
	// versioningDelayFactor.
	Delays map[string]time.Duration

	// SnapshotPath points the versioning plugin at its SQLite file.
	// Empty disables version capture entirely.
	SnapshotPath string

	// IDs issues page and block identifiers. Nil: time-sortable UUIDs.
	IDs doc.IDSource

	// OnBroadcast receives coalesced change summaries after settles.
	// Nil leaves the collaboration slot silent.
	OnBroadcast plugin.Broadcast
}

// Session is a mounted document with its full update machinery. All
// methods are safe for concurrent use; mutations funnel through the
// document's transaction lock and effects through the scheduler's
// single drain goroutine.
type Session struct {
	tmpl   template.Template
	doc    *doc.Document
	store  *pagestore.Store
	rec    *reconcile.Reconciler
	oracle *geometry.TextMetrics
	eng    *reflow.Engine
	sched  *schedule.Scheduler

	plugins  []plugin.Plugin
	stats    *plugin.Stats
	comments *plugin.Comments
	collab   *plugin.Collab

	// snapshots is non-nil only when Config.SnapshotPath was given.
	snapshots *snapshot.Store

	closed atomic.Bool
}

// Open builds and mounts a session. The store is seeded with one
// default page, the tree is populated from it, and the first settle
// pass (zone materialization, numbering, stats) is already scheduled
// when Open returns; WaitForIdle blocks until it lands.
func Open(cfg Config) (*Session, error) {
	tmpl := cfg.Template
	if tmpl.Name == "" {
		tmpl = template.Default()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = doc.UUIDSource{}
	}

	d := doc.NewDocument(ids)
	store := pagestore.New()

	s := &Session{
		tmpl:   tmpl,
		doc:    d,
		store:  store,
		rec:    reconcile.New(d, store, ids),
		oracle: geometry.NewTextMetrics(d, cfg.Font),
	}
	s.eng = reflow.New(d, s.oracle)
	s.sched = schedule.New(schedulerOptions(cfg)...)

	s.stats = plugin.NewStats(d)
	s.comments = plugin.NewComments(d, ids)
	s.collab = plugin.NewCollab(cfg.OnBroadcast)
	s.plugins = []plugin.Plugin{
		plugin.NewHeaderFooter(d, tmpl),
		plugin.NewNumbering(d, tmpl),
		s.stats,
		s.comments,
		s.collab,
	}

	if cfg.SnapshotPath != "" {
		hist, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			s.sched.Close()
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.snapshots = hist
		s.plugins = append(s.plugins, plugin.NewVersioning(d, hist, nil))
	}

	d.Subscribe(s.onChange)
	store.Subscribe(s.onStoreChange)

	if err := s.rec.Seed(context.Background(), tmpl.Proto()); err != nil {
		s.sched.Close()
		if s.snapshots != nil {
			s.snapshots.Close()
		}
		return nil, fmt.Errorf("mount session: %w", err)
	}

	slog.Info("session mounted",
		"template", tmpl.Name,
		"pages", d.PageCount(),
		"versioning", s.snapshots != nil,
	)
	return s, nil
}

// schedulerOptions resolves the debounce configuration.
func schedulerOptions(cfg Config) []schedule.Option {
	base := cfg.Debounce
	if base <= 0 {
		base = schedule.DefaultDebounce
	}
	opts := []schedule.Option{schedule.WithDebounce(base)}
	if _, ok := cfg.Delays["versioning"]; !ok {
		opts = append(opts, schedule.WithDelay("versioning", versioningDelayFactor*base))
	}
	for name, delay := range cfg.Delays {
		opts = append(opts, schedule.WithDelay(name, delay))
	}
	return opts
}

// Close cancels pending updates and releases the snapshot store.
// Running effects observe their cancelled context and return; edits
// submitted after Close still commit to the tree but wake nothing.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.sched.Close()
	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}

// WaitForIdle blocks until no update is debouncing, queued or running.
// Integration tests settle on it; production control flow never needs
// to.
func (s *Session) WaitForIdle(ctx context.Context) error {
	return s.sched.Wait(ctx)
}

// Scheduler exposes the update orchestrator for embedders that submit
// their own slots or cancel pending work.
func (s *Session) Scheduler() *schedule.Scheduler {
	return s.sched
}

// Oracle exposes the session's measurement oracle. Reports and
// conformance checks measure pages with it instead of re-deriving
// geometry.
func (s *Session) Oracle() *geometry.TextMetrics {
	return s.oracle
}

// Pages returns deep copies of all pages in document order.
func (s *Session) Pages() []doc.Folio {
	return s.doc.Pages()
}

// Page returns a deep copy of one page.
func (s *Session) Page(id string) (doc.Folio, error) {
	return s.doc.Page(id)
}

// PageIDs returns the page ids in document order.
func (s *Session) PageIDs() []string {
	return s.doc.PageIDs()
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	return s.doc.PageCount()
}

// PageIndex returns a page's zero-based position in document order.
func (s *Session) PageIndex(pageID string) (int, error) {
	return s.doc.PageIndex(pageID)
}

// StoreIndex returns a page's recorded index in the metadata store.
// After a settle it matches PageIndex; mid-flight the record may lag a
// structural edit.
func (s *Session) StoreIndex(pageID string) (int, error) {
	rec, ok := s.store.Get(pageID)
	if !ok {
		return 0, fmt.Errorf("no store record for page %s", pageID)
	}
	return rec.Index, nil
}

// Revision returns the revision of the last committed transaction.
func (s *Session) Revision() int64 {
	return s.doc.Revision()
}

// Selection returns the current caret position.
func (s *Session) Selection() doc.Selection {
	return s.doc.Selection()
}

// Export returns a serializable snapshot of the document.
func (s *Session) Export() doc.Export {
	return s.doc.Export()
}

// Orientation returns a page's orientation, preferring the metadata
// store's record over the tree.
func (s *Session) Orientation(pageID string) (doc.Orientation, error) {
	if rec, ok := s.store.Get(pageID); ok {
		return rec.Orientation, nil
	}
	page, err := s.doc.Page(pageID)
	if err != nil {
		return "", err
	}
	return page.Orientation, nil
}

// Section returns a page's section membership, preferring the metadata
// store's record over the tree.
func (s *Session) Section(pageID string) (string, error) {
	if rec, ok := s.store.Get(pageID); ok {
		return rec.SectionID, nil
	}
	page, err := s.doc.Page(pageID)
	if err != nil {
		return "", err
	}
	return page.SectionID, nil
}

// Stats returns the last computed document totals.
func (s *Session) Stats() plugin.Totals {
	return s.stats.Totals()
}

// Comments returns the comment plugin for anchor management.
func (s *Session) Comments() *plugin.Comments {
	return s.comments
}

// Snapshots returns the version snapshot store, or nil when the session
// was opened without one.
func (s *Session) Snapshots() *snapshot.Store {
	return s.snapshots
}

// Verify returns an error naming pages whose tree and store metadata
// disagree. A settled session always verifies clean.
func (s *Session) Verify() error {
	return s.rec.Verify()
}
