package session

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"quire/internal/doc"
	"quire/internal/pagestore"
	"quire/internal/schedule"
)

// AppendPage adds a page stamped from the session template at the end
// of the document. Returns the new page id.
func (s *Session) AppendPage() (string, error) {
	var id string
	err := s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		var err error
		id, err = tx.AppendPage(s.tmpl.Proto())
		return err
	})
	return id, err
}

// RemovePage deletes a page. Locked pages and the last remaining page
// are refused. The page's store record is left in place; records are
// additive and may outlive their page.
func (s *Session) RemovePage(pageID string) error {
	if rec, ok := s.store.Get(pageID); ok && rec.Locked {
		return fmt.Errorf("remove page %s: %w", pageID, ErrPageLocked)
	}
	return s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		return tx.RemovePage(pageID)
	})
}

// AppendBlock adds a paragraph at the end of a page's content zone and
// places the caret at its end. Returns the block id.
func (s *Session) AppendBlock(pageID, text string) (string, error) {
	var id string
	err := s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		var err error
		id, err = tx.AppendBlock(pageID, doc.Block{Text: text})
		if err != nil {
			return err
		}
		return tx.SetSelection(doc.Selection{BlockID: id, Offset: utf8.RuneCountInString(text)})
	})
	return id, err
}

// Select places the caret at a rune offset inside a block.
func (s *Session) Select(blockID string, offset int) error {
	return s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		return tx.SetSelection(doc.Selection{BlockID: blockID, Offset: offset})
	})
}

// Type inserts text at the caret and advances it past the insertion.
func (s *Session) Type(text string) error {
	if text == "" {
		return nil
	}
	return s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		sel := tx.Selection()
		if sel.IsZero() {
			return ErrNoSelection
		}
		pageID, idx, err := locateBlock(tx, sel.BlockID)
		if err != nil {
			return fmt.Errorf("type at caret: %w", err)
		}
		b, err := tx.BlockAt(pageID, idx)
		if err != nil {
			return err
		}
		runes := []rune(b.Text)
		off := clampOffset(sel.Offset, len(runes))
		if err := tx.SetBlockText(pageID, b.ID, string(runes[:off])+text+string(runes[off:])); err != nil {
			return err
		}
		return tx.SetSelection(doc.Selection{
			BlockID: b.ID,
			Offset:  off + utf8.RuneCountInString(text),
		})
	})
}

// Enter splits the caret's block at the caret, placing the caret at the
// start of the text after it, then applies the proactive page break:
// with the split landing within 1.5 line heights of the content zone
// boundary, the new block moves to the following page immediately
// instead of waiting for a visible overflow. Returns the new block's
// id.
func (s *Session) Enter() (string, error) {
	var pageID, newID string
	err := s.doc.Update(doc.OriginUser, func(tx *doc.Tx) error {
		sel := tx.Selection()
		if sel.IsZero() {
			return ErrNoSelection
		}
		var idx int
		var err error
		pageID, idx, err = locateBlock(tx, sel.BlockID)
		if err != nil {
			return fmt.Errorf("enter at caret: %w", err)
		}
		b, err := tx.BlockAt(pageID, idx)
		if err != nil {
			return err
		}
		off := clampOffset(sel.Offset, utf8.RuneCountInString(b.Text))
		newID, err = tx.SplitBlock(pageID, b.ID, off)
		if err != nil {
			return err
		}
		return tx.SetSelection(doc.Selection{BlockID: newID, Offset: 0})
	})
	if err != nil {
		return "", err
	}

	// The break check is input-path work, not a scheduled effect: the
	// caret must land on the next page within the same keystroke.
	if _, err := s.eng.ConfirmBreak(pageID, newID); err != nil {
		return "", fmt.Errorf("confirm break on %s: %w", pageID, err)
	}
	return newID, nil
}

// CheckPage enqueues one page for an overflow check and drains it
// ahead of any open debounce window.
func (s *Session) CheckPage(pageID string) {
	s.eng.Enqueue(pageID)
	s.sched.ScheduleNow(slotReflow, schedule.PriorityReflow, s.eng.Flush)
}

// SetOrientation changes a page's orientation through the metadata
// store. The reconciler applies it onto the tree on the next drain.
func (s *Session) SetOrientation(pageID string, o doc.Orientation) error {
	if err := s.ensureRecord(pageID); err != nil {
		return err
	}
	return s.store.SetOrientation(pageID, o)
}

// SetSection moves a page into a section through the metadata store.
// A template orientation override for that section is applied in the
// same breath.
func (s *Session) SetSection(pageID, sectionID string) error {
	if err := s.ensureRecord(pageID); err != nil {
		return err
	}
	if err := s.store.SetSection(pageID, sectionID); err != nil {
		return err
	}
	if o, ok := s.tmpl.SectionOrientation(sectionID); ok {
		return s.store.SetOrientation(pageID, o)
	}
	return nil
}

// SetLocked flags a page against removal. Lock state lives only in the
// store; the tree never sees it.
func (s *Session) SetLocked(pageID string, locked bool) error {
	if err := s.ensureRecord(pageID); err != nil {
		return err
	}
	return s.store.SetLocked(pageID, locked)
}

// ensureRecord materializes the store record for a tree page whose
// structure sync has not drained yet, so metadata writes never race the
// scheduler.
func (s *Session) ensureRecord(pageID string) error {
	if _, ok := s.store.Get(pageID); ok {
		return nil
	}
	idx, err := s.doc.PageIndex(pageID)
	if err != nil {
		return fmt.Errorf("page %s: %w", pageID, err)
	}
	page, err := s.doc.Page(pageID)
	if err != nil {
		return err
	}
	s.store.Create(pagestore.Record{
		PageID:      pageID,
		Index:       idx,
		Orientation: page.Orientation,
		SectionID:   page.SectionID,
		Status:      page.Status,
	})
	return nil
}

// locateBlock finds the page holding a block inside a transaction.
func locateBlock(tx *doc.Tx, blockID string) (string, int, error) {
	for _, pageID := range tx.PageIDs() {
		if idx, err := tx.BlockIndex(pageID, blockID); err == nil {
			return pageID, idx, nil
		} else if !errors.Is(err, doc.ErrBlockNotFound) {
			return "", 0, err
		}
	}
	return "", 0, fmt.Errorf("block %s: %w", blockID, doc.ErrBlockNotFound)
}

// clampOffset bounds a caret offset to a block's rune length.
func clampOffset(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n {
		return n
	}
	return off
}
