package reflow

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"quire/internal/doc"
	"quire/internal/geometry"
)

// resolvePage checks one page and migrates its overflowing tail. Returns
// the destination page id when blocks moved, so the caller can chain a
// check for it.
//
// Pages that vanished since they were enqueued, pages the oracle cannot
// measure yet, and pages that fit are all quiet no-ops: resolution is
// idempotent and re-running it on a settled page changes nothing.
func (e *Engine) resolvePage(pageID string) (string, error) {
	page, err := e.doc.Page(pageID)
	if errors.Is(err, doc.ErrPageNotFound) {
		slog.Debug("skipping vanished page", "page", pageID)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(page.Blocks) == 0 {
		return "", nil
	}

	metrics, err := e.oracle.ZoneMetrics(pageID)
	if errors.Is(err, geometry.ErrNotMeasured) {
		slog.Debug("page not measured yet", "page", pageID)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("zone metrics: %w", err)
	}

	boundary, err := e.overflowBoundary(&page, metrics)
	if err != nil {
		return "", err
	}
	if boundary < 0 {
		return "", nil
	}
	if boundary == 0 {
		// The first block stays even when it alone exceeds the zone;
		// moving it would just overflow the next page the same way.
		boundary = 1
	}
	if boundary >= len(page.Blocks) {
		slog.Debug("single block exceeds page capacity", "page", pageID, "block", page.Blocks[0].ID)
		return "", nil
	}

	firstMoved := page.Blocks[boundary].ID
	var (
		dst     string
		created bool
		moved   int
	)
	err = e.doc.Update(doc.OriginReflow, func(tx *doc.Tx) error {
		idx, err := tx.BlockIndex(pageID, firstMoved)
		if err != nil || idx == 0 {
			return errStale
		}

		var ok bool
		dst, ok = tx.NextPage(pageID)
		if !ok {
			dst, err = tx.InsertPageAfter(pageID)
			if err != nil {
				return fmt.Errorf("create following page: %w", err)
			}
			created = true
		}

		count, err := tx.BlockCount(pageID)
		if err != nil {
			return errStale
		}
		movedIDs := make([]string, 0, count-idx)
		for k := idx; k < count; k++ {
			b, err := tx.BlockAt(pageID, k)
			if err != nil {
				return errStale
			}
			movedIDs = append(movedIDs, b.ID)
		}

		moved, err = tx.MoveBlocksToFront(pageID, idx, dst)
		if err != nil {
			return fmt.Errorf("migrate blocks: %w", err)
		}

		if sel := tx.Selection(); slices.Contains(movedIDs, sel.BlockID) {
			if err := tx.SetSelection(doc.Selection{BlockID: firstMoved, Offset: 0}); err != nil {
				return fmt.Errorf("reposition selection: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("page overflow resolved",
		"page", pageID,
		"destination", dst,
		"moved_blocks", moved,
		"created_page", created,
	)
	return dst, nil
}

// overflowBoundary returns the index of the first block whose bottom edge
// crosses the zone limit, or -1 when the page fits. A partially measured
// page reports -1; overflow is only ever decided on full measurements.
func (e *Engine) overflowBoundary(page *doc.Folio, metrics geometry.ZoneMetrics) (int, error) {
	limit := metrics.Available + e.tolerance
	for i := range page.Blocks {
		bottom, err := e.oracle.BlockBottom(page.ID, page.Blocks[i].ID)
		switch {
		case errors.Is(err, geometry.ErrNotMeasured):
			slog.Debug("block not measured yet", "page", page.ID, "block", page.Blocks[i].ID)
			return -1, nil
		case errors.Is(err, doc.ErrBlockNotFound), errors.Is(err, doc.ErrPageNotFound):
			return -1, errStale
		case err != nil:
			return -1, fmt.Errorf("block bottom: %w", err)
		}
		if bottom > limit {
			return i, nil
		}
	}
	return -1, nil
}

// ConfirmBreak applies the proactive page break for an Enter press.
//
// blockID names the block that now holds the text after the caret, the
// one SplitBlock just created. If its bottom edge lies within 1.5 line
// heights of the content zone boundary, the block moves to the following
// page immediately, ahead of that page's content, and the caret moves to
// its start. Reports whether a break happened.
//
// With measurement unavailable there is no break; the regular overflow
// path picks the page up once layout exists.
func (e *Engine) ConfirmBreak(pageID, blockID string) (bool, error) {
	metrics, err := e.oracle.ZoneMetrics(pageID)
	if errors.Is(err, geometry.ErrNotMeasured) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("zone metrics: %w", err)
	}

	bottom, err := e.oracle.BlockBottom(pageID, blockID)
	if errors.Is(err, geometry.ErrNotMeasured) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("block bottom: %w", err)
	}

	if bottom <= metrics.Available-1.5*e.oracle.LineHeight(pageID) {
		return false, nil
	}

	var dst string
	broke := false
	err = e.doc.Update(doc.OriginReflow, func(tx *doc.Tx) error {
		idx, err := tx.BlockIndex(pageID, blockID)
		if err != nil {
			return err
		}
		if idx == 0 {
			return nil // nothing above the caret; the page cannot break here
		}

		var ok bool
		dst, ok = tx.NextPage(pageID)
		if !ok {
			dst, err = tx.InsertPageAfter(pageID)
			if err != nil {
				return fmt.Errorf("create following page: %w", err)
			}
		}
		if _, err := tx.MoveBlocksToFront(pageID, idx, dst); err != nil {
			return fmt.Errorf("break page: %w", err)
		}
		if err := tx.SetSelection(doc.Selection{BlockID: blockID, Offset: 0}); err != nil {
			return fmt.Errorf("move caret: %w", err)
		}
		broke = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if broke {
		slog.Info("proactive page break", "page", pageID, "destination", dst, "block", blockID)
		e.Enqueue(dst)
	}
	return broke, nil
}
