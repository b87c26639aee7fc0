package plugin

import (
	"context"
	"errors"

	"quire/internal/doc"
	"quire/internal/schedule"
	"quire/internal/template"
)

// HeaderFooter materializes header and footer zone lines onto pages that
// reference the template, and clears zones on pages that no longer do.
//
// Lines land with their placeholders intact; substitution is the
// numbering plugin's job. Pages whose zones are already materialized are
// left alone, so numbering's substituted values survive later runs.
type HeaderFooter struct {
	doc  *doc.Document
	tmpl template.Template
}

func NewHeaderFooter(d *doc.Document, tmpl template.Template) *HeaderFooter {
	return &HeaderFooter{doc: d, tmpl: tmpl}
}

func (p *HeaderFooter) Name() string { return "headerfooter" }

func (p *HeaderFooter) Priority() schedule.Priority { return schedule.PriorityHeaderFooter }

func (p *HeaderFooter) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pages := p.doc.Pages()
	return p.doc.Update(doc.PluginOrigin(p.Name()), func(tx *doc.Tx) error {
		for _, page := range pages {
			if err := p.applyZone(tx, page, doc.ZoneHeader, page.HeaderRef, page.Header, p.tmpl.Header); err != nil {
				return err
			}
			if err := p.applyZone(tx, page, doc.ZoneFooter, page.FooterRef, page.Footer, p.tmpl.Footer); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyZone writes a zone only on the materialize/demolish transitions:
// a referenced template onto an empty zone, or a cleared reference
// emptying a stale zone.
func (p *HeaderFooter) applyZone(tx *doc.Tx, page doc.Folio, zone doc.ZoneKind, ref string, current, lines []string) error {
	var want []string
	switch {
	case ref == p.tmpl.Name && len(current) == 0 && len(lines) > 0:
		want = lines
	case ref == "" && len(current) > 0:
		want = nil
	default:
		return nil
	}

	err := tx.SetZoneLines(page.ID, zone, want)
	if errors.Is(err, doc.ErrPageNotFound) {
		// Page vanished between the snapshot read and this write.
		return nil
	}
	return err
}
