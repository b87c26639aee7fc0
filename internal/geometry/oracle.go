// Package geometry measures pages.
//
// The pagination engine never inspects rendered output; it asks an Oracle
// for zone heights and block bottoms and decides overflow from those
// numbers. Production embedders back the Oracle with their renderer.
// TextMetrics backs it with a deterministic monospace model, which is what
// the test harness and the CLI use.
package geometry

import "errors"

// ErrNotMeasured reports that measurement is not available for a page yet.
//
// This is an environmental condition, not a contract violation: layout may
// not have run since the page appeared. Callers treat it as "no overflow
// detectable right now" and retry on the next change notification.
var ErrNotMeasured = errors.New("geometry: page not measured")

// ZoneMetrics is the measured vertical budget of one page, in points.
type ZoneMetrics struct {
	// Available is the height of the content zone: sheet height minus
	// vertical margins minus the header and footer zones.
	Available float64
	// Header and Footer are the materialized zone heights.
	Header float64
	Footer float64
}

// Oracle answers layout questions about pages.
//
// Implementations must be safe for concurrent use; the pagination engine
// calls them from the orchestrator's drain goroutine while the embedder
// may be editing.
type Oracle interface {
	// ZoneMetrics returns the zone heights of a page.
	// Returns ErrNotMeasured when the page has no layout yet.
	ZoneMetrics(pageID string) (ZoneMetrics, error)

	// BlockBottom returns the bottom edge of a block, measured in points
	// from the top of the page's content zone.
	// Returns ErrNotMeasured when the block has no layout yet.
	BlockBottom(pageID, blockID string) (float64, error)

	// LineHeight returns the nominal line height on a page. Used for the
	// proximity rule that breaks pages ahead of overflow while typing
	// near the footer.
	LineHeight(pageID string) float64
}
