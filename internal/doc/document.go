package doc

import (
	"slices"
	"sync"
)

// Origin tags a transaction with the subsystem that requested it.
// Listeners that write back into the document compare origins to skip
// the changes they caused themselves.
type Origin string

const (
	// OriginUser marks edits coming from the embedding editor.
	OriginUser Origin = "user"
	// OriginReflow marks pagination writes (block migration, page
	// creation and removal).
	OriginReflow Origin = "reflow"
	// OriginReconcile marks metadata applied from the page store.
	OriginReconcile Origin = "reconcile"
	// OriginSeed marks initial population of an empty document.
	OriginSeed Origin = "seed"
)

// PluginOrigin returns the origin tag for a named plugin's own writes.
func PluginOrigin(name string) Origin {
	return Origin("plugin/" + name)
}

// Change describes one committed transaction.
type Change struct {
	// Origin is the subsystem that requested the transaction.
	Origin Origin
	// Revision is the document revision after the commit.
	Revision int64
	// Structural is true when the page set or page order changed.
	Structural bool
	// PageIDs lists the pages the transaction touched, in first-touch
	// order. Removed pages are included.
	PageIDs []string
}

// Document is the page tree plus the selection.
//
// Thread-safety model:
//   - Update(): safe from any goroutine; transactions are serialized
//   - read methods: safe from any goroutine; return deep copies
//   - listeners: invoked on the committing goroutine AFTER the lock is
//     released, so a listener may call back into the document
type Document struct {
	mu        sync.Mutex
	pages     []*Folio
	selection Selection
	revision  int64
	ids       IDSource
	listeners []func(Change)
}

// NewDocument creates an empty document. The tree is populated from the
// page store during session mount; until then the document has no pages.
func NewDocument(ids IDSource) *Document {
	return &Document{ids: ids}
}

// Subscribe registers a listener for committed transactions.
// Listeners registered during mount stay for the document's lifetime.
func (d *Document) Subscribe(fn func(Change)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Update runs one transaction against the tree.
//
// The transaction function receives a Tx bound to the live tree. If it
// returns an error, every mutation it made is rolled back from a
// pre-transaction deep copy and the error is returned. If it commits
// without touching anything, Update returns nil without bumping the
// revision or notifying listeners.
//
// Transactions are not interruptible: once fn starts, it runs to
// completion (or rollback) before any other writer proceeds.
func (d *Document) Update(origin Origin, fn func(*Tx) error) error {
	d.mu.Lock()

	before := d.clonePagesLocked()
	beforeSel := d.selection

	tx := &Tx{doc: d}
	if err := fn(tx); err != nil {
		d.pages = before
		d.selection = beforeSel
		d.mu.Unlock()
		return err
	}

	if !tx.dirty {
		d.mu.Unlock()
		return nil
	}

	d.revision++
	change := Change{
		Origin:     origin,
		Revision:   d.revision,
		Structural: tx.structural,
		PageIDs:    slices.Clone(tx.touched),
	}
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

// clonePagesLocked deep-copies the page slice. Caller holds mu.
func (d *Document) clonePagesLocked() []*Folio {
	pages := make([]*Folio, len(d.pages))
	for i, f := range d.pages {
		pages[i] = f.clone()
	}
	return pages
}

// pageLocked returns the live folio and its index, or (nil, -1).
// Caller holds mu.
func (d *Document) pageLocked(id string) (*Folio, int) {
	for i, f := range d.pages {
		if f.ID == id {
			return f, i
		}
	}
	return nil, -1
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

// PageIDs returns the page ids in document order.
func (d *Document) PageIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.pages))
	for i, f := range d.pages {
		ids[i] = f.ID
	}
	return ids
}

// PageIndex returns the zero-based position of the page in the tree.
func (d *Document) PageIndex(id string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, i := d.pageLocked(id); i >= 0 {
		return i, nil
	}
	return 0, ErrPageNotFound
}

// Page returns a deep copy of the named page.
func (d *Document) Page(id string) (Folio, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, i := d.pageLocked(id)
	if i < 0 {
		return Folio{}, ErrPageNotFound
	}
	return *f.clone(), nil
}

// Pages returns deep copies of all pages in document order. The slice
// position of each page is its current index.
func (d *Document) Pages() []Folio {
	d.mu.Lock()
	defer d.mu.Unlock()
	pages := make([]Folio, len(d.pages))
	for i, f := range d.pages {
		pages[i] = *f.clone()
	}
	return pages
}

// Selection returns the current caret position.
func (d *Document) Selection() Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection
}

// Revision returns the revision of the last committed transaction.
func (d *Document) Revision() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revision
}

// Export is a serializable snapshot of the whole document, used for
// version snapshots and layout reports.
type Export struct {
	Revision  int64     `json:"revision"`
	Selection Selection `json:"selection"`
	Pages     []Folio   `json:"pages"`
}

// Export returns a deep-copied snapshot of the document.
func (d *Document) Export() Export {
	d.mu.Lock()
	defer d.mu.Unlock()
	pages := make([]Folio, len(d.pages))
	for i, f := range d.pages {
		pages[i] = *f.clone()
	}
	return Export{
		Revision:  d.revision,
		Selection: d.selection,
		Pages:     pages,
	}
}
