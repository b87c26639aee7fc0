// Package template compiles CUE document templates.
//
// A template fixes the geometry new documents start from (paper,
// orientation, margins) and carries the header/footer line templates
// the headerfooter plugin materializes onto pages. User files are
// unified with the embedded #Template schema; violations surface as
// positioned CompileErrors.
package template

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"quire/internal/doc"
)

//go:embed schema.cue
var schemaCUE string

// Template describes the initial shape of a document.
type Template struct {
	Name        string
	Paper       doc.PaperSize
	Orientation doc.Orientation
	Margins     doc.Margins

	// Header and Footer are zone line templates with {page}, {pages}
	// and {section} placeholders.
	Header []string
	Footer []string

	Sections []Section
}

// Section is a named range of pages with an orientation override.
type Section struct {
	ID          string
	Orientation doc.Orientation
}

// Default returns the built-in template: A4 portrait, one-inch margins,
// a bare page-number footer.
func Default() Template {
	return Template{
		Name:        "default",
		Paper:       doc.A4,
		Orientation: doc.Portrait,
		Margins:     doc.Margins{Top: 72, Right: 72, Bottom: 72, Left: 72},
		Footer:      []string{"{page} / {pages}"},
	}
}

// Proto returns the folio prototype new pages are stamped from.
func (t Template) Proto() doc.Folio {
	f := doc.Folio{
		Orientation: t.Orientation,
		Paper:       t.Paper,
		Margins:     t.Margins,
		Status:      doc.StatusDraft,
	}
	if len(t.Header) > 0 {
		f.HeaderRef = t.Name
	}
	if len(t.Footer) > 0 {
		f.FooterRef = t.Name
	}
	return f
}

// SectionOrientation returns the orientation override for a section id.
func (t Template) SectionOrientation(id string) (doc.Orientation, bool) {
	for _, s := range t.Sections {
		if s.ID == id {
			return s.Orientation, true
		}
	}
	return "", false
}

// Load reads and compiles a template file.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("load template: %w", err)
	}
	return parse(filepath.Base(path), string(data))
}

// Parse compiles template source against the embedded schema.
func Parse(source string) (Template, error) {
	return parse("template.cue", source)
}

func parse(filename, source string) (Template, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Template{}, formatCUEError(err)
	}

	user := ctx.CompileString(source, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Template{}, formatCUEError(err)
	}

	unified := schema.Unify(user)
	if err := unified.Err(); err != nil {
		return Template{}, formatCUEError(err)
	}

	v := unified.LookupPath(cue.ParsePath("template"))
	if !v.Exists() {
		return Template{}, &CompileError{
			Field:   "template",
			Message: "template is required",
			Pos:     unified.Pos(),
		}
	}
	// Everything except name has a schema default, so this pinpoints
	// missing required fields and failed constraints.
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Template{}, formatCUEError(err)
	}

	return decodeTemplate(v)
}

func decodeTemplate(v cue.Value) (Template, error) {
	var t Template

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return Template{}, formatCUEError(err)
	}
	t.Name = name

	t.Paper, err = decodePaper(v.LookupPath(cue.ParsePath("paper")))
	if err != nil {
		return Template{}, err
	}

	orientation, err := v.LookupPath(cue.ParsePath("orientation")).String()
	if err != nil {
		return Template{}, formatCUEError(err)
	}
	t.Orientation = doc.Orientation(orientation)

	t.Margins, err = decodeMargins(v.LookupPath(cue.ParsePath("margins")))
	if err != nil {
		return Template{}, err
	}

	t.Header, err = decodeLines(v.LookupPath(cue.ParsePath("header")))
	if err != nil {
		return Template{}, err
	}
	t.Footer, err = decodeLines(v.LookupPath(cue.ParsePath("footer")))
	if err != nil {
		return Template{}, err
	}

	t.Sections, err = decodeSections(v.LookupPath(cue.ParsePath("sections")))
	if err != nil {
		return Template{}, err
	}

	return t, nil
}

// decodePaper accepts a preset name or a custom {width, height} struct.
func decodePaper(v cue.Value) (doc.PaperSize, error) {
	if name, err := v.String(); err == nil {
		p, ok := doc.PaperByName(name)
		if !ok {
			return doc.PaperSize{}, &CompileError{
				Field:   "paper",
				Message: fmt.Sprintf("unknown paper size %q", name),
				Pos:     v.Pos(),
			}
		}
		return p, nil
	}

	width, err := v.LookupPath(cue.ParsePath("width")).Float64()
	if err != nil {
		return doc.PaperSize{}, formatCUEError(err)
	}
	height, err := v.LookupPath(cue.ParsePath("height")).Float64()
	if err != nil {
		return doc.PaperSize{}, formatCUEError(err)
	}
	return doc.PaperSize{Name: "custom", Width: width, Height: height}, nil
}

func decodeMargins(v cue.Value) (doc.Margins, error) {
	var m doc.Margins
	for _, f := range []struct {
		path string
		dst  *float64
	}{
		{"top", &m.Top},
		{"right", &m.Right},
		{"bottom", &m.Bottom},
		{"left", &m.Left},
	} {
		val, err := v.LookupPath(cue.ParsePath(f.path)).Float64()
		if err != nil {
			return doc.Margins{}, formatCUEError(err)
		}
		*f.dst = val
	}
	return m, nil
}

func decodeLines(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var lines []string
	for iter.Next() {
		line, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func decodeSections(v cue.Value) ([]Section, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var sections []Section
	for iter.Next() {
		sv := iter.Value()
		id, err := sv.LookupPath(cue.ParsePath("id")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		orientation, err := sv.LookupPath(cue.ParsePath("orientation")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		sections = append(sections, Section{
			ID:          id,
			Orientation: doc.Orientation(orientation),
		})
	}
	return sections, nil
}

// CompileError represents a template compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
