package doc

// BlockKind categorizes content-zone blocks.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockListItem  BlockKind = "list_item"
	BlockTable     BlockKind = "table"
)

// Block is one editable unit in a page's content zone.
//
// Blocks keep their identity when pagination migrates them between pages,
// so selections and comment anchors survive reflow.
type Block struct {
	ID   string    `json:"id"`
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`

	// Level is the heading depth or list indent. Zero for kinds that
	// have no nesting.
	Level int `json:"level,omitempty"`
}

// Selection is the caret position: a block and a rune offset into its text.
// The zero value means no selection.
type Selection struct {
	BlockID string `json:"block_id,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// IsZero reports whether the selection is unset.
func (s Selection) IsZero() bool {
	return s.BlockID == ""
}
