package harness

import (
	"fmt"
	"slices"
	"strings"

	"quire/internal/doc"
	"quire/internal/reflow"
	"quire/internal/session"
)

// AssertionError is returned when an assertion fails. It carries the
// full layout report so a failure message shows the settled document,
// not just the mismatched value.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Report   string // Rendered layout report for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Report != "" {
		fmt.Fprintf(&buf, "\nLayout:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Report, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the settled
// session. Returns a slice of error messages for failed assertions;
// the report parameter rides along into each failure for context.
func EvaluateAssertions(sess *session.Session, assertions []Assertion, report string) []string {
	var errors []string

	for i := range assertions {
		var err error

		switch assertions[i].Type {
		case AssertPageCount:
			err = assertPageCount(sess, assertions[i], report)
		case AssertPageBlocks:
			err = assertPageBlocks(sess, assertions[i], report)
		case AssertPageOrientation:
			err = assertPageOrientation(sess, assertions[i], report)
		case AssertNoOverflow:
			err = assertNoOverflow(sess, report)
		case AssertIndicesContiguous:
			err = assertIndicesContiguous(sess, report)
		case AssertStoreAgrees:
			err = assertStoreAgrees(sess, report)
		case AssertSelectionOnPage:
			err = assertSelectionOnPage(sess, assertions[i], report)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertions[i].Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertPageCount(sess *session.Session, a Assertion, report string) error {
	got := sess.PageCount()
	if got != a.Count {
		return &AssertionError{
			Type:     AssertPageCount,
			Expected: fmt.Sprintf("%d pages", a.Count),
			Actual:   fmt.Sprintf("%d pages", got),
			Report:   report,
		}
	}
	return nil
}

func assertPageBlocks(sess *session.Session, a Assertion, report string) error {
	page, err := pageAt(sess, AssertPageBlocks, a.Page, report)
	if err != nil {
		return err
	}

	texts := make([]string, len(page.Blocks))
	for i := range page.Blocks {
		texts[i] = page.Blocks[i].Text
	}
	if !slices.Equal(texts, a.Texts) {
		return &AssertionError{
			Type:     AssertPageBlocks,
			Expected: fmt.Sprintf("page %d blocks %q", a.Page, a.Texts),
			Actual:   fmt.Sprintf("page %d blocks %q", a.Page, texts),
			Report:   report,
		}
	}
	return nil
}

func assertPageOrientation(sess *session.Session, a Assertion, report string) error {
	page, err := pageAt(sess, AssertPageOrientation, a.Page, report)
	if err != nil {
		return err
	}

	if page.Orientation != doc.Orientation(a.Orientation) {
		return &AssertionError{
			Type:     AssertPageOrientation,
			Expected: fmt.Sprintf("page %d orientation %s", a.Page, a.Orientation),
			Actual:   fmt.Sprintf("page %d orientation %s", a.Page, page.Orientation),
			Report:   report,
		}
	}
	return nil
}

// assertNoOverflow measures every page against its content budget. The
// reflow tolerance applies here too: a sub-line overhang is settled
// layout, not a failure.
func assertNoOverflow(sess *session.Session, report string) error {
	oracle := sess.Oracle()
	pages := sess.Pages()
	for i := range pages {
		bottom, err := oracle.ContentBottom(pages[i].ID)
		if err != nil {
			continue
		}
		zone, err := oracle.ZoneMetrics(pages[i].ID)
		if err != nil {
			continue
		}
		if bottom > zone.Available+reflow.DefaultTolerance {
			return &AssertionError{
				Type:     AssertNoOverflow,
				Expected: fmt.Sprintf("page %d content within %s points", i+1, points(zone.Available+reflow.DefaultTolerance)),
				Actual:   fmt.Sprintf("page %d content bottom at %s points", i+1, points(bottom)),
				Report:   report,
			}
		}
	}
	return nil
}

// assertIndicesContiguous checks that every page's store record
// carries the page's tree position, so the recorded indexes form a
// contiguous zero-based run in document order.
func assertIndicesContiguous(sess *session.Session, report string) error {
	ids := sess.PageIDs()
	for i := 0; i < len(ids); i++ {
		idx, err := sess.StoreIndex(ids[i])
		if err != nil {
			return &AssertionError{
				Type:     AssertIndicesContiguous,
				Expected: fmt.Sprintf("store record for page %d", i+1),
				Actual:   err.Error(),
				Report:   report,
			}
		}
		if idx != i {
			return &AssertionError{
				Type:     AssertIndicesContiguous,
				Expected: fmt.Sprintf("page %d at store index %d", i+1, i),
				Actual:   fmt.Sprintf("store index %d", idx),
				Report:   report,
			}
		}
	}
	return nil
}

func assertStoreAgrees(sess *session.Session, report string) error {
	if err := sess.Verify(); err != nil {
		return &AssertionError{
			Type:     AssertStoreAgrees,
			Expected: "page tree and store metadata agree",
			Actual:   err.Error(),
			Report:   report,
		}
	}
	return nil
}

func assertSelectionOnPage(sess *session.Session, a Assertion, report string) error {
	sel := sess.Selection()
	if sel.IsZero() {
		return &AssertionError{
			Type:     AssertSelectionOnPage,
			Expected: fmt.Sprintf("selection on page %d", a.Page),
			Actual:   "no selection",
			Report:   report,
		}
	}

	pages := sess.Pages()
	for i := range pages {
		for j := range pages[i].Blocks {
			if pages[i].Blocks[j].ID == sel.BlockID {
				if i+1 != a.Page {
					return &AssertionError{
						Type:     AssertSelectionOnPage,
						Expected: fmt.Sprintf("selection on page %d", a.Page),
						Actual:   fmt.Sprintf("selection on page %d (block %d)", i+1, j+1),
						Report:   report,
					}
				}
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertSelectionOnPage,
		Expected: fmt.Sprintf("selection on page %d", a.Page),
		Actual:   fmt.Sprintf("selection block %s is on no page", sel.BlockID),
		Report:   report,
	}
}

// pageAt resolves a one-based page position, reporting a missing page
// as an assertion failure rather than a run error.
func pageAt(sess *session.Session, typ string, n int, report string) (doc.Folio, error) {
	pages := sess.Pages()
	if n < 1 || n > len(pages) {
		return doc.Folio{}, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("page %d to exist", n),
			Actual:   fmt.Sprintf("document has %d pages", len(pages)),
			Report:   report,
		}
	}
	return pages[n-1], nil
}
