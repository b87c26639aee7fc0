package plugin

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"quire/internal/doc"
	"quire/internal/schedule"
)

// Totals are the document statistics the stats plugin maintains.
// Only content-zone text counts; headers and footers are decoration.
type Totals struct {
	Revision int64
	Pages    int
	Blocks   int
	Words    int
	Runes    int
}

// Stats recomputes document totals after content changes. It never
// writes into the tree; readers poll Totals.
type Stats struct {
	doc *doc.Document

	mu     sync.RWMutex
	totals Totals
}

func NewStats(d *doc.Document) *Stats {
	return &Stats{doc: d}
}

func (p *Stats) Name() string { return "stats" }

func (p *Stats) Priority() schedule.Priority { return schedule.PriorityContent }

func (p *Stats) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	export := p.doc.Export()
	totals := Totals{
		Revision: export.Revision,
		Pages:    len(export.Pages),
	}
	for _, page := range export.Pages {
		totals.Blocks += len(page.Blocks)
		for _, b := range page.Blocks {
			totals.Words += len(strings.Fields(b.Text))
			totals.Runes += utf8.RuneCountInString(b.Text)
		}
	}

	p.mu.Lock()
	p.totals = totals
	p.mu.Unlock()
	return nil
}

// Totals returns the most recently computed statistics.
func (p *Stats) Totals() Totals {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totals
}
