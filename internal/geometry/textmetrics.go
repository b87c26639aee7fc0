package geometry

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"quire/internal/doc"
)

// FontMetrics is the monospace font model TextMetrics measures with.
type FontMetrics struct {
	// LineHeight is the vertical advance per text line, in points.
	LineHeight float64
	// CharWidth is the horizontal advance per character cell, in points.
	CharWidth float64
}

// DefaultFont approximates a 12pt monospace face.
var DefaultFont = FontMetrics{LineHeight: 14, CharWidth: 7}

// TextMetrics is a deterministic Oracle over the document tree.
//
// It models every block as greedy word-wrapped monospace text: block
// height is the wrapped line count times the line height, and header and
// footer zones are one line per materialized zone line. Identical
// documents therefore always measure identically, which the harness
// goldens rely on.
type TextMetrics struct {
	doc  *doc.Document
	font FontMetrics
}

// NewTextMetrics measures pages of d with the given font model.
func NewTextMetrics(d *doc.Document, font FontMetrics) *TextMetrics {
	if font.LineHeight <= 0 || font.CharWidth <= 0 {
		font = DefaultFont
	}
	return &TextMetrics{doc: d, font: font}
}

// ZoneMetrics implements Oracle.
func (m *TextMetrics) ZoneMetrics(pageID string) (ZoneMetrics, error) {
	page, err := m.doc.Page(pageID)
	if err != nil {
		return ZoneMetrics{}, fmt.Errorf("measure page %s: %w", pageID, err)
	}
	return m.zoneMetrics(&page), nil
}

func (m *TextMetrics) zoneMetrics(page *doc.Folio) ZoneMetrics {
	_, sheetH := page.Paper.Oriented(page.Orientation)
	header := float64(len(page.Header)) * m.font.LineHeight
	footer := float64(len(page.Footer)) * m.font.LineHeight
	available := sheetH - page.Margins.Top - page.Margins.Bottom - header - footer
	if available < 0 {
		available = 0
	}
	return ZoneMetrics{Available: available, Header: header, Footer: footer}
}

// BlockBottom implements Oracle. The bottom edge is the summed height of
// the block and every block above it in the content zone.
func (m *TextMetrics) BlockBottom(pageID, blockID string) (float64, error) {
	page, err := m.doc.Page(pageID)
	if err != nil {
		return 0, fmt.Errorf("measure block on %s: %w", pageID, err)
	}
	columns := m.columns(&page)
	bottom := 0.0
	for i := range page.Blocks {
		bottom += float64(lineSpans(page.Blocks[i].Text, columns)) * m.font.LineHeight
		if page.Blocks[i].ID == blockID {
			return bottom, nil
		}
	}
	return 0, fmt.Errorf("measure block %s on %s: %w", blockID, pageID, doc.ErrBlockNotFound)
}

// LineHeight implements Oracle. The monospace model uses one line height
// for every page.
func (m *TextMetrics) LineHeight(string) float64 {
	return m.font.LineHeight
}

// ContentBottom returns the bottom edge of the last block in a page's
// content zone, or 0 for an empty zone.
func (m *TextMetrics) ContentBottom(pageID string) (float64, error) {
	page, err := m.doc.Page(pageID)
	if err != nil {
		return 0, fmt.Errorf("measure page %s: %w", pageID, err)
	}
	if len(page.Blocks) == 0 {
		return 0, nil
	}
	return m.BlockBottom(pageID, page.Blocks[len(page.Blocks)-1].ID)
}

// BlockLines returns the wrapped line count of a block's text on a page.
func (m *TextMetrics) BlockLines(pageID string, text string) (int, error) {
	page, err := m.doc.Page(pageID)
	if err != nil {
		return 0, fmt.Errorf("measure page %s: %w", pageID, err)
	}
	return lineSpans(text, m.columns(&page)), nil
}

// columns is the character capacity of one content line.
func (m *TextMetrics) columns(page *doc.Folio) int {
	sheetW, _ := page.Paper.Oriented(page.Orientation)
	width := sheetW - page.Margins.Left - page.Margins.Right
	columns := int(width / m.font.CharWidth)
	if columns < 1 {
		columns = 1
	}
	return columns
}

// lineSpans counts the lines text occupies when greedy word-wrapped into
// the given column count. Text is NFC-normalized first so composed and
// decomposed spellings measure identically. Empty text still occupies one
// caret line.
func lineSpans(text string, columns int) int {
	if columns < 1 {
		columns = 1
	}
	text = norm.NFC.String(text)
	total := 0
	for _, hard := range strings.Split(text, "\n") {
		total += wrapLine(hard, columns)
	}
	return total
}

// wrapLine counts greedy word-wrap lines for one hard line. Words longer
// than the column count break mid-word.
func wrapLine(line string, columns int) int {
	words := strings.Fields(line)
	if len(words) == 0 {
		return 1
	}
	lines, width := 1, 0
	for _, w := range words {
		runes := utf8.RuneCountInString(w)
		if width > 0 {
			if width+1+runes <= columns {
				width += 1 + runes
				continue
			}
			lines++
			width = 0
		}
		for runes > columns {
			lines++
			runes -= columns
		}
		width = runes
	}
	return lines
}
