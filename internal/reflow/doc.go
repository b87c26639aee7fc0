// Package reflow implements the quire pagination engine.
//
// The engine never measures anything itself. It asks the geometry oracle
// where blocks end and how much vertical room a page's content zone has,
// and moves blocks between pages until every page fits. Header and footer
// zones are exempt: pagination moves content blocks only.
//
// ARCHITECTURE:
//
// Overflow Classification:
// A page overflows when some block's bottom edge extends past the content
// zone's available height plus a small tolerance. The tolerance absorbs
// sub-line rounding so a page is not re-broken over a pixel. The first
// block whose bottom crosses the limit marks the migration boundary; it
// and everything after it belong on the next page. The first block of a
// page never migrates, so a block taller than the page itself stays put
// rather than cascading forever.
//
// Migration:
// The overflowing tail is removed from the source page and re-inserted as
// a PREFIX of the following page's content zone, ahead of that page's
// existing blocks. Prefix insertion is what keeps global block order
// intact across chained page breaks. If no page follows, one is created
// inheriting the source page's orientation. When the caret sat in the
// migrated tail it is repositioned to the start of the first migrated
// block, so typing continues on the new page.
//
// Pending Set and Budget:
// Dirty pages collect in an explicit FIFO pending set. One orchestrator
// effect, Flush, drains the set; a migration enqueues the destination
// page, so a cascade resolves within the same flush. A pass budget bounds
// the chain: exhausting it leaves the remainder pending and reports an
// error instead of looping without end.
//
// Proactive Breaks:
// Pressing Enter within 1.5 line heights of the footer boundary breaks
// the page immediately instead of waiting for overflow, moving the block
// after the split onto the following page.
//
// Unavailable Measurement:
// When the oracle has no layout for a page yet, the page is skipped, not
// failed: no measurement means no detectable overflow. The next change
// notification re-enqueues it.
package reflow
