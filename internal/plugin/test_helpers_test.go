package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quire/internal/doc"
	"quire/internal/template"
	"quire/internal/testutil"
)

func testTemplate() template.Template {
	return template.Template{
		Name:        "standard",
		Paper:       doc.A4,
		Orientation: doc.Portrait,
		Margins:     doc.Margins{Top: 72, Right: 72, Bottom: 72, Left: 72},
		Header:      []string{"Quarterly Report"},
		Footer:      []string{"{page} / {pages}"},
	}
}

// newTestDoc seeds a document with pageCount pages stamped from the
// template prototype.
func newTestDoc(t *testing.T, tmpl template.Template, pageCount int) (*doc.Document, []string) {
	t.Helper()
	d := doc.NewDocument(testutil.NewSequenceIDs("id"))
	pageIDs := make([]string, 0, pageCount)
	require.NoError(t, d.Update(doc.OriginSeed, func(tx *doc.Tx) error {
		for i := 0; i < pageCount; i++ {
			id, err := tx.AppendPage(tmpl.Proto())
			if err != nil {
				return err
			}
			pageIDs = append(pageIDs, id)
		}
		return nil
	}))
	return d, pageIDs
}

func mustPage(t *testing.T, d *doc.Document, id string) doc.Folio {
	t.Helper()
	page, err := d.Page(id)
	require.NoError(t, err)
	return page
}
