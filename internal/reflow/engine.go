package reflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"quire/internal/doc"
	"quire/internal/geometry"
)

// DefaultTolerance is how far, in points, a block may poke past the
// content zone before the page counts as overflowing. Absorbs sub-line
// rounding differences between measurement passes.
const DefaultTolerance = 10.0

// DefaultMaxPasses bounds the number of page resolutions one Flush may
// chain through. A cascade longer than this is treated as runaway.
const DefaultMaxPasses = 1000

// ErrPassBudget reports a flush that hit its pass budget with pages
// still pending.
var ErrPassBudget = errors.New("reflow: pass budget exhausted")

// errStale marks a resolution whose measured boundary no longer exists
// in the tree. The page is re-enqueued and re-measured.
var errStale = errors.New("reflow: boundary vanished before apply")

// Engine is the pagination engine.
//
// Thread-safety model:
//   - Enqueue / EnqueueAll / Pending: safe from any goroutine
//   - Flush: the orchestrator's reflow effect; the processing flag makes
//     a second concurrent flush a no-op rather than a double drain
//   - ConfirmBreak: safe from any goroutine; used on the input path
type Engine struct {
	doc    *doc.Document
	oracle geometry.Oracle

	tolerance float64
	maxPasses int

	mu        sync.Mutex
	pending   []string
	pendingIn map[string]struct{}

	// processing guards Flush against re-entry. Set for the duration of
	// a drain; checked, never waited on.
	processing atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance sets the overflow tolerance in points.
func WithTolerance(pts float64) Option {
	return func(e *Engine) {
		e.tolerance = pts
	}
}

// WithMaxPasses sets the flush pass budget.
// Use a small value in tests to exercise the runaway guard.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// New creates an engine over a document and its measurement oracle.
func New(d *doc.Document, oracle geometry.Oracle, opts ...Option) *Engine {
	e := &Engine{
		doc:       d,
		oracle:    oracle,
		tolerance: DefaultTolerance,
		maxPasses: DefaultMaxPasses,
		pendingIn: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue marks a page for an overflow check on the next flush.
// A page already pending is not added twice.
func (e *Engine) Enqueue(pageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueueLocked(pageID)
}

// EnqueueAll marks every page in the document. Used after changes with
// document-wide effect, such as a template or margin change.
func (e *Engine) EnqueueAll() {
	ids := e.doc.PageIDs()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		e.enqueueLocked(id)
	}
}

func (e *Engine) enqueueLocked(pageID string) {
	if _, ok := e.pendingIn[pageID]; ok {
		return
	}
	e.pendingIn[pageID] = struct{}{}
	e.pending = append(e.pending, pageID)
}

// Pending returns the pages awaiting a check, in flush order.
func (e *Engine) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.pending))
	copy(out, e.pending)
	return out
}

// popLocked removes and returns the front pending page.
func (e *Engine) popLocked() (string, bool) {
	if len(e.pending) == 0 {
		return "", false
	}
	id := e.pending[0]
	e.pending[0] = ""
	e.pending = e.pending[1:]
	delete(e.pendingIn, id)
	return id, true
}

// pushFrontLocked returns a page to the front of the pending set.
func (e *Engine) pushFrontLocked(pageID string) {
	if _, ok := e.pendingIn[pageID]; ok {
		return
	}
	e.pendingIn[pageID] = struct{}{}
	e.pending = append([]string{pageID}, e.pending...)
}

// Flush drains the pending set, resolving one page at a time. A
// migration enqueues its destination page, so an overflow cascade
// resolves within the same flush, bounded by the pass budget.
//
// Safe to call again while a flush is running; the second call returns
// immediately and the running flush covers the pending work.
func (e *Engine) Flush(ctx context.Context) error {
	if !e.processing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.processing.Store(false)

	passes := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		pageID, ok := e.popLocked()
		e.mu.Unlock()
		if !ok {
			return nil
		}

		passes++
		if passes > e.maxPasses {
			e.mu.Lock()
			e.pushFrontLocked(pageID)
			remaining := len(e.pending)
			e.mu.Unlock()
			return fmt.Errorf("%w: %d passes, %d pages still pending", ErrPassBudget, e.maxPasses, remaining)
		}

		followUp, err := e.resolvePage(pageID)
		switch {
		case errors.Is(err, errStale):
			// The tree moved under the measurement; check again fresh.
			e.Enqueue(pageID)
			continue
		case err != nil:
			return fmt.Errorf("resolve page %s: %w", pageID, err)
		}
		if followUp != "" {
			e.Enqueue(followUp)
		}
	}
}
