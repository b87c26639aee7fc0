package plugin

import (
	"context"
	"fmt"
	"sync"

	"quire/internal/doc"
	"quire/internal/schedule"
)

// Comment is a margin note anchored to a block. PageID tracks where the
// anchor block currently lives; pagination moves blocks between pages,
// and the comments plugin keeps this alignment current.
type Comment struct {
	ID      string
	BlockID string
	PageID  string
	Text    string

	// Orphaned is set when the anchor block no longer exists. The
	// comment keeps its last known page so the editor can surface it.
	Orphaned bool
}

// Comments maintains comment anchors across block migrations.
type Comments struct {
	doc *doc.Document
	ids doc.IDSource

	mu    sync.RWMutex
	notes []Comment
}

func NewComments(d *doc.Document, ids doc.IDSource) *Comments {
	return &Comments{doc: d, ids: ids}
}

func (p *Comments) Name() string { return "comments" }

func (p *Comments) Priority() schedule.Priority { return schedule.PriorityComments }

// Add attaches a comment to a block. The block must currently exist.
func (p *Comments) Add(blockID, text string) (Comment, error) {
	pageID, ok := p.locate(blockID)
	if !ok {
		return Comment{}, fmt.Errorf("comment on %s: %w", blockID, doc.ErrBlockNotFound)
	}

	note := Comment{
		ID:      p.ids.NewID(),
		BlockID: blockID,
		PageID:  pageID,
		Text:    text,
	}

	p.mu.Lock()
	p.notes = append(p.notes, note)
	p.mu.Unlock()
	return note, nil
}

// List returns all comments in creation order.
func (p *Comments) List() []Comment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Comment, len(p.notes))
	copy(out, p.notes)
	return out
}

// Run realigns every anchor with its block's current page and orphans
// comments whose block vanished.
func (p *Comments) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	location := make(map[string]string)
	for _, page := range p.doc.Pages() {
		for _, b := range page.Blocks {
			location[b.ID] = page.ID
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.notes {
		if pageID, ok := location[p.notes[i].BlockID]; ok {
			p.notes[i].PageID = pageID
			p.notes[i].Orphaned = false
		} else {
			p.notes[i].Orphaned = true
		}
	}
	return nil
}

// locate finds the page currently holding a block.
func (p *Comments) locate(blockID string) (string, bool) {
	for _, page := range p.doc.Pages() {
		for _, b := range page.Blocks {
			if b.ID == blockID {
				return page.ID, true
			}
		}
	}
	return "", false
}
