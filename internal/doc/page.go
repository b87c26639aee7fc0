package doc

import "slices"

// Orientation is a page's print orientation.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Valid reports whether o is one of the two known orientations.
func (o Orientation) Valid() bool {
	return o == Portrait || o == Landscape
}

// PaperSize is a named paper format. Width and Height are in points and
// describe the portrait aspect; Oriented applies the page orientation.
type PaperSize struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Standard formats. Dimensions are PostScript points (1/72 inch).
var (
	A4     = PaperSize{Name: "A4", Width: 595, Height: 842}
	A5     = PaperSize{Name: "A5", Width: 420, Height: 595}
	Letter = PaperSize{Name: "Letter", Width: 612, Height: 792}
	Legal  = PaperSize{Name: "Legal", Width: 612, Height: 1008}
)

// PaperByName resolves a standard format by its name.
func PaperByName(name string) (PaperSize, bool) {
	for _, p := range []PaperSize{A4, A5, Letter, Legal} {
		if p.Name == name {
			return p, true
		}
	}
	return PaperSize{}, false
}

// Oriented returns the sheet dimensions with the orientation applied.
// Landscape swaps width and height.
func (p PaperSize) Oriented(o Orientation) (w, h float64) {
	if o == Landscape {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Margins are the page margins in points.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PageStatus is a page's lifecycle state.
type PageStatus string

const (
	StatusDraft PageStatus = "draft"
	StatusFinal PageStatus = "final"
)

// ZoneKind names one of the three zones every page owns.
// Zone order on a page is fixed: header, content, footer.
type ZoneKind string

const (
	ZoneHeader  ZoneKind = "header"
	ZoneContent ZoneKind = "content"
	ZoneFooter  ZoneKind = "footer"
)

// Folio is one page of the document.
//
// Identity is the ID, assigned at creation and never reused. The page's
// index is NOT stored here: it is derived from tree position and reported
// by Document.Pages / Document.PageIndex.
type Folio struct {
	ID          string      `json:"id"`
	Orientation Orientation `json:"orientation"`
	SectionID   string      `json:"section_id,omitempty"`
	Paper       PaperSize   `json:"paper"`
	Margins     Margins     `json:"margins"`

	// HeaderRef and FooterRef name the template definitions the
	// header/footer zones are materialized from.
	HeaderRef string `json:"header_ref,omitempty"`
	FooterRef string `json:"footer_ref,omitempty"`

	Status PageStatus `json:"status"`

	// Header and Footer are the materialized zone lines.
	Header []string `json:"header,omitempty"`
	Footer []string `json:"footer,omitempty"`

	// Blocks is the content zone, in document order.
	Blocks []Block `json:"blocks"`
}

// clone returns a deep copy. Block is a value type, so cloning the slices
// is sufficient.
func (f *Folio) clone() *Folio {
	c := *f
	c.Header = slices.Clone(f.Header)
	c.Footer = slices.Clone(f.Footer)
	c.Blocks = slices.Clone(f.Blocks)
	return &c
}

// blockIndex returns the content-zone position of the block with the given
// id, or -1.
func (f *Folio) blockIndex(blockID string) int {
	for i := range f.Blocks {
		if f.Blocks[i].ID == blockID {
			return i
		}
	}
	return -1
}
