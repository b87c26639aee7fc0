package harness

import (
	"fmt"
	"strconv"
	"strings"

	"quire/internal/doc"
	"quire/internal/session"
)

// RenderReport prints the settled document as a plain-text layout
// report: page count, selection, and one entry per page with its
// orientation, measured content height against the zone budget, and
// every materialized zone line. The format is stable and diffable, so
// golden files catch any drift in pagination, numbering or zone
// materialization.
func RenderReport(sess *session.Session) string {
	var b strings.Builder

	pages := sess.Pages()
	fmt.Fprintf(&b, "pages: %d\n", len(pages))
	b.WriteString(renderSelection(sess.Selection(), pages))

	oracle := sess.Oracle()
	for i := range pages {
		page := &pages[i]
		fmt.Fprintf(&b, "page %d: orientation=%s", i+1, page.Orientation)
		if page.SectionID != "" {
			fmt.Fprintf(&b, " section=%s", page.SectionID)
		}

		used, avail := "?", "?"
		if bottom, err := oracle.ContentBottom(page.ID); err == nil {
			if zone, err := oracle.ZoneMetrics(page.ID); err == nil {
				used, avail = points(bottom), points(zone.Available)
			}
		}
		fmt.Fprintf(&b, " content=%s/%s\n", used, avail)

		if len(page.Header) > 0 {
			fmt.Fprintf(&b, "  header: %s\n", quoteLines(page.Header))
		}
		for j := range page.Blocks {
			fmt.Fprintf(&b, "  block %d: %q\n", j+1, page.Blocks[j].Text)
		}
		if len(page.Footer) > 0 {
			fmt.Fprintf(&b, "  footer: %s\n", quoteLines(page.Footer))
		}
	}
	return b.String()
}

// renderSelection locates the selection's block in the page snapshot.
// One-based positions keep the report readable next to scenario steps.
func renderSelection(sel doc.Selection, pages []doc.Folio) string {
	if sel.IsZero() {
		return "selection: none\n"
	}
	for i := range pages {
		for j := range pages[i].Blocks {
			if pages[i].Blocks[j].ID == sel.BlockID {
				return fmt.Sprintf("selection: page=%d block=%d offset=%d\n", i+1, j+1, sel.Offset)
			}
		}
	}
	return "selection: detached\n"
}

// points formats a point measurement without trailing zero noise.
func points(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// quoteLines joins zone lines into one quoted, pipe-separated run.
func quoteLines(lines []string) string {
	quoted := make([]string, len(lines))
	for i := range lines {
		quoted[i] = strconv.Quote(lines[i])
	}
	return strings.Join(quoted, " | ")
}
