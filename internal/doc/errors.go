package doc

import "errors"

// Contract violations surfaced by Document and Tx operations.
// All are matched with errors.Is; wrapping preserves the sentinel.
var (
	// ErrPageNotFound indicates a page id that is not in the tree.
	ErrPageNotFound = errors.New("doc: page not found")

	// ErrBlockNotFound indicates a block id that is not on the named page.
	ErrBlockNotFound = errors.New("doc: block not found")

	// ErrLastPage indicates an attempt to remove the only remaining page.
	// A document always contains at least one page.
	ErrLastPage = errors.New("doc: cannot remove the last page")

	// ErrLineZone indicates a block operation aimed at a header or footer
	// zone. Only the content zone holds blocks; header and footer zones are
	// written wholesale via Tx.SetZoneLines.
	ErrLineZone = errors.New("doc: zone holds lines, not blocks")

	// ErrBadOffset indicates a split offset outside the block's text.
	ErrBadOffset = errors.New("doc: offset outside block text")

	// ErrBadMove indicates a block migration whose source range or
	// destination page is invalid.
	ErrBadMove = errors.New("doc: invalid block migration")
)
