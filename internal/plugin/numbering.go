package plugin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"quire/internal/doc"
	"quire/internal/schedule"
	"quire/internal/template"
)

// Numbering substitutes the {page}, {pages} and {section} placeholders
// into header and footer zones, computing each page's lines from the
// template source so repeated runs converge instead of re-substituting
// already-substituted text.
//
// Runs after headerfooter (which materializes zones on new pages) and
// before reflow (zone line count feeds the content-zone height).
type Numbering struct {
	doc  *doc.Document
	tmpl template.Template
}

func NewNumbering(d *doc.Document, tmpl template.Template) *Numbering {
	return &Numbering{doc: d, tmpl: tmpl}
}

func (p *Numbering) Name() string { return "numbering" }

func (p *Numbering) Priority() schedule.Priority { return schedule.PriorityNumbering }

func (p *Numbering) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pages := p.doc.Pages()
	total := len(pages)

	return p.doc.Update(doc.PluginOrigin(p.Name()), func(tx *doc.Tx) error {
		for i, page := range pages {
			if page.HeaderRef == p.tmpl.Name {
				if err := p.setZone(tx, page.ID, doc.ZoneHeader, p.tmpl.Header, i, total, page.SectionID); err != nil {
					return err
				}
			}
			if page.FooterRef == p.tmpl.Name {
				if err := p.setZone(tx, page.ID, doc.ZoneFooter, p.tmpl.Footer, i, total, page.SectionID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (p *Numbering) setZone(tx *doc.Tx, pageID string, zone doc.ZoneKind, lines []string, idx, total int, sectionID string) error {
	if len(lines) == 0 {
		return nil
	}

	want := make([]string, len(lines))
	for i, line := range lines {
		want[i] = substitute(line, idx, total, sectionID)
	}

	err := tx.SetZoneLines(pageID, zone, want)
	if errors.Is(err, doc.ErrPageNotFound) {
		return nil
	}
	return err
}

// substitute fills the numbering placeholders. Page numbers are
// one-based; unknown placeholders pass through untouched.
func substitute(line string, idx, total int, sectionID string) string {
	line = strings.ReplaceAll(line, "{page}", strconv.Itoa(idx+1))
	line = strings.ReplaceAll(line, "{pages}", strconv.Itoa(total))
	line = strings.ReplaceAll(line, "{section}", sectionID)
	return line
}
