package reflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/doc"
	"quire/internal/geometry"
	"quire/internal/testutil"
)

// testPaper yields a content zone of exactly 1000pt with zero margins and
// no header/footer, measured with a 100pt line height. One text line is
// one tenth of the zone.
var (
	testPaper = doc.PaperSize{Name: "test", Width: 200, Height: 1000}
	testFont  = geometry.FontMetrics{LineHeight: 100, CharWidth: 10}
)

// lines builds block text that wraps to exactly n lines.
func lines(n int) string {
	return strings.TrimSuffix(strings.Repeat("x\n", n), "\n")
}

// newFixture builds a one-page document with one block per entry in
// blockLines, measured by the real text oracle.
func newFixture(t *testing.T, blockLines ...int) (*doc.Document, *Engine, string, []string) {
	t.Helper()
	return newFixtureFont(t, testFont, blockLines...)
}

func newFixtureFont(t *testing.T, font geometry.FontMetrics, blockLines ...int) (*doc.Document, *Engine, string, []string) {
	t.Helper()
	d := doc.NewDocument(testutil.NewSequenceIDs("id"))
	var pageID string
	blockIDs := make([]string, 0, len(blockLines))
	require.NoError(t, d.Update(doc.OriginSeed, func(tx *doc.Tx) error {
		var err error
		pageID, err = tx.AppendPage(doc.Folio{Paper: testPaper})
		if err != nil {
			return err
		}
		for _, n := range blockLines {
			id, err := tx.AppendBlock(pageID, doc.Block{Text: lines(n)})
			if err != nil {
				return err
			}
			blockIDs = append(blockIDs, id)
		}
		return nil
	}))
	e := New(d, geometry.NewTextMetrics(d, font))
	return d, e, pageID, blockIDs
}

// flush runs one drain and requires it to succeed.
func flush(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Flush(context.Background()))
}

func blockTexts(t *testing.T, d *doc.Document, pageID string) []string {
	t.Helper()
	page, err := d.Page(pageID)
	require.NoError(t, err)
	out := make([]string, len(page.Blocks))
	for i, b := range page.Blocks {
		out[i] = b.ID
	}
	return out
}

func TestEngine_PageWithinBoundsIsUntouched(t *testing.T) {
	d, e, pageID, _ := newFixture(t, 4, 4)
	rev := d.Revision()

	e.Enqueue(pageID)
	flush(t, e)

	assert.Equal(t, 1, d.PageCount())
	assert.Equal(t, rev, d.Revision(), "a fitting page is a strict no-op")
}

func TestEngine_OverflowCreatesFollowingPageAndMigratesTail(t *testing.T) {
	// Three 400pt blocks on a 1000pt zone: the third block's bottom edge
	// is 1200, past the 1010 limit, so it alone migrates.
	d, e, pageID, blocks := newFixture(t, 4, 4, 4)

	e.Enqueue(pageID)
	flush(t, e)

	require.Equal(t, 2, d.PageCount())
	ids := d.PageIDs()
	assert.Equal(t, pageID, ids[0])

	assert.Equal(t, blocks[:2], blockTexts(t, d, ids[0]))
	assert.Equal(t, blocks[2:], blockTexts(t, d, ids[1]))
}

func TestEngine_NewPageInheritsOrientation(t *testing.T) {
	square := doc.PaperSize{Name: "square", Width: 1000, Height: 1000}
	d := doc.NewDocument(testutil.NewSequenceIDs("id"))
	var pageID string
	require.NoError(t, d.Update(doc.OriginSeed, func(tx *doc.Tx) error {
		var err error
		pageID, err = tx.AppendPage(doc.Folio{Paper: square, Orientation: doc.Landscape})
		if err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			if _, err := tx.AppendBlock(pageID, doc.Block{Text: lines(4)}); err != nil {
				return err
			}
		}
		return nil
	}))
	e := New(d, geometry.NewTextMetrics(d, testFont))

	e.Enqueue(pageID)
	flush(t, e)

	require.Equal(t, 2, d.PageCount())
	page, err := d.Page(d.PageIDs()[1])
	require.NoError(t, err)
	assert.Equal(t, doc.Landscape, page.Orientation)
}

func TestEngine_MigrationPrefixesExistingNextPage(t *testing.T) {
	d, e, pageID, blocks := newFixture(t, 4, 4, 4)

	var nextID, existing string
	require.NoError(t, d.Update(doc.OriginUser, func(tx *doc.Tx) error {
		var err error
		nextID, err = tx.InsertPageAfter(pageID)
		if err != nil {
			return err
		}
		existing, err = tx.AppendBlock(nextID, doc.Block{Text: lines(1)})
		return err
	}))

	e.Enqueue(pageID)
	flush(t, e)

	assert.Equal(t, 2, d.PageCount(), "no page is created when one already follows")
	assert.Equal(t, []string{blocks[2], existing}, blockTexts(t, d, nextID),
		"migrated tail lands ahead of the page's existing content")
}

func TestEngine_ToleranceAbsorbsSubLineOverflow(t *testing.T) {
	// Ten 101pt lines: bottom edge 1010, exactly on the limit. Stays.
	d, e, pageID, _ := newFixtureFont(t, geometry.FontMetrics{LineHeight: 101, CharWidth: 10}, 5, 5)
	e.Enqueue(pageID)
	flush(t, e)
	assert.Equal(t, 1, d.PageCount())

	// Ten 102pt lines: bottom edge 1020, past the limit. The second
	// block migrates.
	d, e, pageID, _ = newFixtureFont(t, geometry.FontMetrics{LineHeight: 102, CharWidth: 10}, 5, 5)
	e.Enqueue(pageID)
	flush(t, e)
	assert.Equal(t, 2, d.PageCount())
}

func TestEngine_CascadeResolvesWithinOneFlush(t *testing.T) {
	// Six 400pt blocks need three pages of two blocks each.
	d, e, pageID, _ := newFixture(t, 4, 4, 4, 4, 4, 4)

	e.Enqueue(pageID)
	flush(t, e)

	require.Equal(t, 3, d.PageCount())
	for i, id := range d.PageIDs() {
		page, err := d.Page(id)
		require.NoError(t, err)
		assert.Len(t, page.Blocks, 2, "page %d", i)

		idx, err := d.PageIndex(id)
		require.NoError(t, err)
		assert.Equal(t, i, idx, "indices stay contiguous")
	}
	assert.Empty(t, e.Pending(), "cascade fully resolved")
}

func TestEngine_FirstBlockNeverMigrates(t *testing.T) {
	// A single 1200pt block exceeds the zone alone; nothing can move.
	d, e, pageID, _ := newFixture(t, 12)
	e.Enqueue(pageID)
	flush(t, e)
	assert.Equal(t, 1, d.PageCount())

	// With a second block present, only the second moves; the oversized
	// first block keeps the page.
	d, e, pageID, blocks := newFixture(t, 12, 1)
	e.Enqueue(pageID)
	flush(t, e)
	require.Equal(t, 2, d.PageCount())
	assert.Equal(t, blocks[:1], blockTexts(t, d, d.PageIDs()[0]))
	assert.Equal(t, blocks[1:], blockTexts(t, d, d.PageIDs()[1]))
}

func TestEngine_SelectionFollowsMigratedBlock(t *testing.T) {
	d, e, pageID, blocks := newFixture(t, 4, 4, 4)
	require.NoError(t, d.Update(doc.OriginUser, func(tx *doc.Tx) error {
		return tx.SetSelection(doc.Selection{BlockID: blocks[2], Offset: 3})
	}))

	e.Enqueue(pageID)
	flush(t, e)

	assert.Equal(t, doc.Selection{BlockID: blocks[2], Offset: 0}, d.Selection(),
		"caret moves to the start of the first migrated block")
}

func TestEngine_SelectionOutsideMigrationStaysPut(t *testing.T) {
	d, e, pageID, blocks := newFixture(t, 4, 4, 4)
	require.NoError(t, d.Update(doc.OriginUser, func(tx *doc.Tx) error {
		return tx.SetSelection(doc.Selection{BlockID: blocks[0], Offset: 1})
	}))

	e.Enqueue(pageID)
	flush(t, e)

	assert.Equal(t, doc.Selection{BlockID: blocks[0], Offset: 1}, d.Selection())
}

// unmeasuredOracle reports every page as not yet measured.
type unmeasuredOracle struct{}

func (unmeasuredOracle) ZoneMetrics(string) (geometry.ZoneMetrics, error) {
	return geometry.ZoneMetrics{}, geometry.ErrNotMeasured
}

func (unmeasuredOracle) BlockBottom(string, string) (float64, error) {
	return 0, geometry.ErrNotMeasured
}

func (unmeasuredOracle) LineHeight(string) float64 { return 100 }

func TestEngine_UnmeasuredPageIsSkippedWithoutError(t *testing.T) {
	d, _, pageID, _ := newFixture(t, 4, 4, 4)
	e := New(d, unmeasuredOracle{})
	rev := d.Revision()

	e.Enqueue(pageID)
	flush(t, e)

	assert.Equal(t, 1, d.PageCount(), "no measurement means no detectable overflow")
	assert.Equal(t, rev, d.Revision())
	assert.Empty(t, e.Pending())
}

func TestEngine_PassBudgetStopsRunawayCascade(t *testing.T) {
	d, _, pageID, _ := newFixture(t, 4, 4, 4, 4, 4, 4, 4, 4)
	e := New(d, geometry.NewTextMetrics(d, testFont), WithMaxPasses(2))

	e.Enqueue(pageID)
	err := e.Flush(context.Background())

	require.ErrorIs(t, err, ErrPassBudget)
	assert.NotEmpty(t, e.Pending(), "unfinished pages stay pending for the next flush")

	// A fresh flush with budget left finishes the job.
	e.maxPasses = DefaultMaxPasses
	flush(t, e)
	assert.Equal(t, 4, d.PageCount())
}

func TestEngine_VanishedPendingPageIsSkipped(t *testing.T) {
	d, e, pageID, _ := newFixture(t, 1)
	var second string
	require.NoError(t, d.Update(doc.OriginUser, func(tx *doc.Tx) error {
		var err error
		second, err = tx.InsertPageAfter(pageID)
		return err
	}))

	e.Enqueue(second)
	require.NoError(t, d.Update(doc.OriginUser, func(tx *doc.Tx) error {
		return tx.RemovePage(second)
	}))

	flush(t, e)
	assert.Equal(t, 1, d.PageCount())
}

func TestEngine_ConfirmBreakNearFooterBoundary(t *testing.T) {
	// Zone 1000, line height 100: the break threshold is 850. The second
	// block's bottom edge is 900, inside the proximity band.
	d, e, pageID, blocks := newFixture(t, 5, 4)

	broke, err := e.ConfirmBreak(pageID, blocks[1])
	require.NoError(t, err)
	assert.True(t, broke)

	require.Equal(t, 2, d.PageCount())
	assert.Equal(t, blocks[1:], blockTexts(t, d, d.PageIDs()[1]))
	assert.Equal(t, doc.Selection{BlockID: blocks[1], Offset: 0}, d.Selection())
	assert.Contains(t, e.Pending(), d.PageIDs()[1], "destination queued for a follow-up check")
}

func TestEngine_ConfirmBreakFarFromFooterDoesNothing(t *testing.T) {
	// Bottom edge 700, below the 850 threshold.
	d, e, pageID, blocks := newFixture(t, 3, 4)

	broke, err := e.ConfirmBreak(pageID, blocks[1])
	require.NoError(t, err)
	assert.False(t, broke)
	assert.Equal(t, 1, d.PageCount())
}

func TestEngine_ConfirmBreakOnFirstBlockDoesNothing(t *testing.T) {
	d, e, pageID, blocks := newFixture(t, 10)

	broke, err := e.ConfirmBreak(pageID, blocks[0])
	require.NoError(t, err)
	assert.False(t, broke)
	assert.Equal(t, 1, d.PageCount())
}

func TestEngine_FlushIsGuardedAgainstReentry(t *testing.T) {
	_, e, pageID, _ := newFixture(t, 4, 4, 4)

	e.processing.Store(true)
	e.Enqueue(pageID)
	flush(t, e)
	assert.Len(t, e.Pending(), 1, "a flush while one is running leaves the set alone")

	e.processing.Store(false)
	flush(t, e)
	assert.Empty(t, e.Pending())
}

func TestEngine_ResolutionIsIdempotent(t *testing.T) {
	d, e, pageID, _ := newFixture(t, 4, 4, 4)

	e.Enqueue(pageID)
	flush(t, e)
	rev := d.Revision()

	for _, id := range d.PageIDs() {
		e.Enqueue(id)
	}
	flush(t, e)

	assert.Equal(t, rev, d.Revision(), "re-checking settled pages changes nothing")
}

func TestEngine_EnqueueDeduplicates(t *testing.T) {
	_, e, pageID, _ := newFixture(t, 1)

	e.Enqueue(pageID)
	e.Enqueue(pageID)
	assert.Len(t, e.Pending(), 1)
}
