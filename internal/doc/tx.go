package doc

import (
	"fmt"
	"slices"
)

// Tx is the mutation surface of one transaction. It is bound to the live
// tree while Document.Update holds the write lock; it must not be retained
// after the transaction function returns.
//
// Mutators that would write a value the tree already holds are no-ops:
// they neither dirty the transaction nor appear in the committed Change.
// Idempotent writers (header materialization, numbering) rely on this to
// avoid re-triggering themselves.
type Tx struct {
	doc        *Document
	dirty      bool
	structural bool
	touched    []string
}

// touch records a page as modified, keeping first-touch order.
func (tx *Tx) touch(pageID string) {
	tx.dirty = true
	if !slices.Contains(tx.touched, pageID) {
		tx.touched = append(tx.touched, pageID)
	}
}

// AppendPage adds a page at the end of the tree.
//
// Zero fields are defaulted: a fresh id, portrait orientation, draft
// status. Returns the page id.
func (tx *Tx) AppendPage(proto Folio) (string, error) {
	if proto.ID == "" {
		proto.ID = tx.doc.ids.NewID()
	}
	if proto.Orientation == "" {
		proto.Orientation = Portrait
	}
	if proto.Status == "" {
		proto.Status = StatusDraft
	}
	if _, i := tx.doc.pageLocked(proto.ID); i >= 0 {
		return "", fmt.Errorf("append page %s: id already in tree", proto.ID)
	}
	tx.doc.pages = append(tx.doc.pages, proto.clone())
	tx.structural = true
	tx.touch(proto.ID)
	return proto.ID, nil
}

// InsertPageAfter creates a page immediately after an existing one.
//
// The new page gets a fresh id and inherits orientation, paper, margins,
// section and header/footer references from the page it follows. Its
// content zone starts empty and its status is draft. Returns the new
// page id.
func (tx *Tx) InsertPageAfter(afterID string) (string, error) {
	after, i := tx.doc.pageLocked(afterID)
	if i < 0 {
		return "", fmt.Errorf("insert page after %s: %w", afterID, ErrPageNotFound)
	}
	page := &Folio{
		ID:          tx.doc.ids.NewID(),
		Orientation: after.Orientation,
		SectionID:   after.SectionID,
		Paper:       after.Paper,
		Margins:     after.Margins,
		HeaderRef:   after.HeaderRef,
		FooterRef:   after.FooterRef,
		Status:      StatusDraft,
	}
	tx.doc.pages = slices.Insert(tx.doc.pages, i+1, page)
	tx.structural = true
	tx.touch(page.ID)
	return page.ID, nil
}

// RemovePage deletes a page from the tree.
//
// The last remaining page cannot be removed: a document always keeps at
// least one page, even when empty.
func (tx *Tx) RemovePage(id string) error {
	_, i := tx.doc.pageLocked(id)
	if i < 0 {
		return fmt.Errorf("remove page %s: %w", id, ErrPageNotFound)
	}
	if len(tx.doc.pages) == 1 {
		return fmt.Errorf("remove page %s: %w", id, ErrLastPage)
	}
	tx.doc.pages = slices.Delete(tx.doc.pages, i, i+1)
	tx.structural = true
	tx.touch(id)
	return nil
}

// AppendBlock adds a block at the end of a page's content zone.
// A zero id or kind is defaulted. Returns the block id.
func (tx *Tx) AppendBlock(pageID string, b Block) (string, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return "", fmt.Errorf("append block on %s: %w", pageID, ErrPageNotFound)
	}
	b = tx.defaultBlock(b)
	f.Blocks = append(f.Blocks, b)
	tx.touch(pageID)
	return b.ID, nil
}

// InsertBlockAfter adds a block immediately after an existing one in the
// same content zone. Returns the new block id.
func (tx *Tx) InsertBlockAfter(pageID, afterBlockID string, b Block) (string, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return "", fmt.Errorf("insert block on %s: %w", pageID, ErrPageNotFound)
	}
	at := f.blockIndex(afterBlockID)
	if at < 0 {
		return "", fmt.Errorf("insert block after %s: %w", afterBlockID, ErrBlockNotFound)
	}
	b = tx.defaultBlock(b)
	f.Blocks = slices.Insert(f.Blocks, at+1, b)
	tx.touch(pageID)
	return b.ID, nil
}

// SetBlockText replaces a block's text.
func (tx *Tx) SetBlockText(pageID, blockID, text string) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("edit block on %s: %w", pageID, ErrPageNotFound)
	}
	at := f.blockIndex(blockID)
	if at < 0 {
		return fmt.Errorf("edit block %s: %w", blockID, ErrBlockNotFound)
	}
	if f.Blocks[at].Text == text {
		return nil
	}
	f.Blocks[at].Text = text
	tx.touch(pageID)
	return nil
}

// RemoveBlock deletes a block from a page's content zone.
func (tx *Tx) RemoveBlock(pageID, blockID string) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("remove block on %s: %w", pageID, ErrPageNotFound)
	}
	at := f.blockIndex(blockID)
	if at < 0 {
		return fmt.Errorf("remove block %s: %w", blockID, ErrBlockNotFound)
	}
	f.Blocks = slices.Delete(f.Blocks, at, at+1)
	tx.touch(pageID)
	return nil
}

// SplitBlock cuts a block's text at a rune offset. The original block
// keeps the text before the offset; a new block of the same kind and
// level, inserted immediately after it, receives the rest. Returns the
// new block's id.
func (tx *Tx) SplitBlock(pageID, blockID string, offset int) (string, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return "", fmt.Errorf("split block on %s: %w", pageID, ErrPageNotFound)
	}
	at := f.blockIndex(blockID)
	if at < 0 {
		return "", fmt.Errorf("split block %s: %w", blockID, ErrBlockNotFound)
	}
	runes := []rune(f.Blocks[at].Text)
	if offset < 0 || offset > len(runes) {
		return "", fmt.Errorf("split block %s at %d: %w", blockID, offset, ErrBadOffset)
	}
	rest := Block{
		ID:    tx.doc.ids.NewID(),
		Kind:  f.Blocks[at].Kind,
		Level: f.Blocks[at].Level,
		Text:  string(runes[offset:]),
	}
	f.Blocks[at].Text = string(runes[:offset])
	f.Blocks = slices.Insert(f.Blocks, at+1, rest)
	tx.touch(pageID)
	return rest.ID, nil
}

// MoveBlocksToFront migrates the tail of one page's content zone to the
// FRONT of another page's content zone, preserving order and identity.
//
// Blocks from startIdx to the end of the source zone are removed and
// re-inserted as a prefix of the destination zone, ahead of whatever the
// destination already holds. This is the pagination primitive: the
// overflowing tail of page N lands before the existing head of page N+1,
// which keeps global block order intact. Returns the number of blocks
// moved.
func (tx *Tx) MoveBlocksToFront(srcPageID string, startIdx int, dstPageID string) (int, error) {
	if srcPageID == dstPageID {
		return 0, fmt.Errorf("move blocks from %s to itself: %w", srcPageID, ErrBadMove)
	}
	src, i := tx.doc.pageLocked(srcPageID)
	if i < 0 {
		return 0, fmt.Errorf("move blocks from %s: %w", srcPageID, ErrPageNotFound)
	}
	dst, j := tx.doc.pageLocked(dstPageID)
	if j < 0 {
		return 0, fmt.Errorf("move blocks to %s: %w", dstPageID, ErrPageNotFound)
	}
	if startIdx < 0 || startIdx >= len(src.Blocks) {
		return 0, fmt.Errorf("move blocks from %s at %d: %w", srcPageID, startIdx, ErrBadMove)
	}
	moved := slices.Clone(src.Blocks[startIdx:])
	src.Blocks = slices.Delete(src.Blocks, startIdx, len(src.Blocks))
	dst.Blocks = slices.Insert(dst.Blocks, 0, moved...)
	tx.touch(srcPageID)
	tx.touch(dstPageID)
	return len(moved), nil
}

// SetOrientation changes a page's print orientation.
func (tx *Tx) SetOrientation(pageID string, o Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("set orientation %q: unknown orientation", o)
	}
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("set orientation on %s: %w", pageID, ErrPageNotFound)
	}
	if f.Orientation == o {
		return nil
	}
	f.Orientation = o
	tx.touch(pageID)
	return nil
}

// SetSection changes a page's section membership.
func (tx *Tx) SetSection(pageID, sectionID string) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("set section on %s: %w", pageID, ErrPageNotFound)
	}
	if f.SectionID == sectionID {
		return nil
	}
	f.SectionID = sectionID
	tx.touch(pageID)
	return nil
}

// SetStatus changes a page's lifecycle status.
func (tx *Tx) SetStatus(pageID string, s PageStatus) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("set status on %s: %w", pageID, ErrPageNotFound)
	}
	if f.Status == s {
		return nil
	}
	f.Status = s
	tx.touch(pageID)
	return nil
}

// SetZoneLines replaces a header or footer zone wholesale. The content
// zone holds blocks and rejects line writes. Writing the lines the zone
// already holds is a no-op.
func (tx *Tx) SetZoneLines(pageID string, zone ZoneKind, lines []string) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("set %s zone on %s: %w", zone, pageID, ErrPageNotFound)
	}
	switch zone {
	case ZoneHeader:
		if slices.Equal(f.Header, lines) {
			return nil
		}
		f.Header = slices.Clone(lines)
	case ZoneFooter:
		if slices.Equal(f.Footer, lines) {
			return nil
		}
		f.Footer = slices.Clone(lines)
	default:
		return fmt.Errorf("set %s zone on %s: %w", zone, pageID, ErrLineZone)
	}
	tx.touch(pageID)
	return nil
}

// SetZoneRef points a page's header or footer zone at a template
// definition, or detaches it with an empty ref. The zone's materialized
// lines are untouched; the headerfooter plugin reconciles them on its
// next run.
func (tx *Tx) SetZoneRef(pageID string, zone ZoneKind, ref string) error {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return fmt.Errorf("set %s ref on %s: %w", zone, pageID, ErrPageNotFound)
	}
	switch zone {
	case ZoneHeader:
		if f.HeaderRef == ref {
			return nil
		}
		f.HeaderRef = ref
	case ZoneFooter:
		if f.FooterRef == ref {
			return nil
		}
		f.FooterRef = ref
	default:
		return fmt.Errorf("set %s ref on %s: %w", zone, pageID, ErrLineZone)
	}
	tx.touch(pageID)
	return nil
}

// SetSelection moves the caret. A non-zero selection must name a block
// that exists somewhere in the tree. Selection-only transactions commit
// with an empty PageIDs list.
func (tx *Tx) SetSelection(sel Selection) error {
	if !sel.IsZero() {
		found := false
		for _, f := range tx.doc.pages {
			if f.blockIndex(sel.BlockID) >= 0 {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("select block %s: %w", sel.BlockID, ErrBlockNotFound)
		}
	}
	if tx.doc.selection == sel {
		return nil
	}
	tx.doc.selection = sel
	tx.dirty = true
	return nil
}

// defaultBlock fills zero identity and kind.
func (tx *Tx) defaultBlock(b Block) Block {
	if b.ID == "" {
		b.ID = tx.doc.ids.NewID()
	}
	if b.Kind == "" {
		b.Kind = BlockParagraph
	}
	return b
}

// PageCount returns the number of pages as seen inside the transaction.
func (tx *Tx) PageCount() int {
	return len(tx.doc.pages)
}

// PageIDs returns the page ids in document order as seen inside the
// transaction.
func (tx *Tx) PageIDs() []string {
	ids := make([]string, len(tx.doc.pages))
	for i, f := range tx.doc.pages {
		ids[i] = f.ID
	}
	return ids
}

// NextPage returns the id of the page following pageID in the tree.
func (tx *Tx) NextPage(pageID string) (string, bool) {
	_, i := tx.doc.pageLocked(pageID)
	if i < 0 || i+1 >= len(tx.doc.pages) {
		return "", false
	}
	return tx.doc.pages[i+1].ID, true
}

// BlockCount returns the content-zone length of a page.
func (tx *Tx) BlockCount(pageID string) (int, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return 0, fmt.Errorf("count blocks on %s: %w", pageID, ErrPageNotFound)
	}
	return len(f.Blocks), nil
}

// BlockIndex returns a block's position in its page's content zone.
func (tx *Tx) BlockIndex(pageID, blockID string) (int, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return 0, fmt.Errorf("find block on %s: %w", pageID, ErrPageNotFound)
	}
	at := f.blockIndex(blockID)
	if at < 0 {
		return 0, fmt.Errorf("find block %s: %w", blockID, ErrBlockNotFound)
	}
	return at, nil
}

// BlockAt returns the block at a content-zone position.
func (tx *Tx) BlockAt(pageID string, idx int) (Block, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return Block{}, fmt.Errorf("read block on %s: %w", pageID, ErrPageNotFound)
	}
	if idx < 0 || idx >= len(f.Blocks) {
		return Block{}, fmt.Errorf("read block %d on %s: %w", idx, pageID, ErrBlockNotFound)
	}
	return f.Blocks[idx], nil
}

// Orientation returns a page's orientation as seen inside the transaction.
func (tx *Tx) Orientation(pageID string) (Orientation, error) {
	f, i := tx.doc.pageLocked(pageID)
	if i < 0 {
		return "", fmt.Errorf("read orientation of %s: %w", pageID, ErrPageNotFound)
	}
	return f.Orientation, nil
}

// Selection returns the caret as seen inside the transaction.
func (tx *Tx) Selection() Selection {
	return tx.doc.selection
}
