package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/doc"
	"quire/internal/testutil"
)

func TestAppendBlock_PlacesCaretAtEnd(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)

	id, err := s.AppendBlock(s.PageIDs()[0], "hello")
	require.NoError(t, err)

	assert.Equal(t, doc.Selection{BlockID: id, Offset: 5}, s.Selection())
}

func TestType_InsertsAtCaret(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	pageID := s.PageIDs()[0]

	id, err := s.AppendBlock(pageID, "hell world")
	require.NoError(t, err)
	require.NoError(t, s.Select(id, 4))
	require.NoError(t, s.Type("o"))
	settle(t, s)

	page, err := s.Page(pageID)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "hello world", page.Blocks[0].Text)
	assert.Equal(t, doc.Selection{BlockID: id, Offset: 5}, s.Selection())
}

func TestType_WithoutSelectionFails(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)

	assert.ErrorIs(t, s.Type("stray"), ErrNoSelection)
}

func TestEnter_SplitsBlockAtCaret(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	pageID := s.PageIDs()[0]

	id, err := s.AppendBlock(pageID, "aaabbb")
	require.NoError(t, err)
	require.NoError(t, s.Select(id, 3))

	newID, err := s.Enter()
	require.NoError(t, err)
	settle(t, s)

	page, err := s.Page(pageID)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "aaa", page.Blocks[0].Text)
	assert.Equal(t, "bbb", page.Blocks[1].Text)
	assert.Equal(t, doc.Selection{BlockID: newID, Offset: 0}, s.Selection())
	assert.Equal(t, 1, s.PageCount(), "split far from the boundary stays on its page")
}

func TestEnter_NearBoundaryBreaksToNextPage(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	pageID := s.PageIDs()[0]

	// Nine lines end at 900pt, inside 1.5 line heights of the 1000pt
	// boundary. The split block lands on a fresh page with the caret.
	_, err := s.AppendBlock(pageID, lines(9))
	require.NoError(t, err)
	newID, err := s.Enter()
	require.NoError(t, err)

	require.Equal(t, 2, s.PageCount(), "break happens on the keystroke, not a later drain")
	settle(t, s)

	pages := s.Pages()
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Blocks, 1)
	require.Len(t, pages[1].Blocks, 1)
	assert.Equal(t, newID, pages[1].Blocks[0].ID)
	assert.Empty(t, pages[1].Blocks[0].Text)
	assert.Equal(t, doc.Selection{BlockID: newID, Offset: 0}, s.Selection())
	assert.NoError(t, s.Verify(), "reflow-created page reached the store")
}

func TestOverflow_MigratesTailToNewPage(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	pageID := s.PageIDs()[0]

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.AppendBlock(pageID, lines(4))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	settle(t, s)

	pages := s.Pages()
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Blocks, 2)
	require.Len(t, pages[1].Blocks, 1)
	assert.Equal(t, ids[2], pages[1].Blocks[0].ID)
	assert.Equal(t, doc.Selection{BlockID: ids[2], Offset: 0}, s.Selection(),
		"caret follows the migrated block")
	assert.NoError(t, s.Verify())
}

func TestOverflow_CascadeSettlesWholeDocument(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	pageID := s.PageIDs()[0]

	for i := 0; i < 6; i++ {
		_, err := s.AppendBlock(pageID, lines(4))
		require.NoError(t, err)
	}
	settle(t, s)

	pages := s.Pages()
	require.Len(t, pages, 3)
	for i, page := range pages {
		assert.Len(t, page.Blocks, 2, "page %d holds two blocks", i)
	}
	assert.NoError(t, s.Verify())
}

func TestRemovePage_RefusesLastPage(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)

	err := s.RemovePage(s.PageIDs()[0])
	assert.ErrorIs(t, err, doc.ErrLastPage)
	assert.Equal(t, 1, s.PageCount())
}

func TestRemovePage_RefusesLockedPage(t *testing.T) {
	s := openTestSession(t, testConfig(narrowTemplate()))
	settle(t, s)
	second, err := s.AppendPage()
	require.NoError(t, err)
	settle(t, s)

	require.NoError(t, s.SetLocked(second, true))
	assert.ErrorIs(t, s.RemovePage(second), ErrPageLocked)
	assert.Equal(t, 2, s.PageCount())

	require.NoError(t, s.SetLocked(second, false))
	require.NoError(t, s.RemovePage(second))
	settle(t, s)
	assert.Equal(t, 1, s.PageCount())
}

func TestCheckPage_DrainsAheadOfDebounce(t *testing.T) {
	cfg := Config{
		Template: narrowTemplate(),
		Font:     testFont,
		// Far longer than the test: nothing settles through debounce.
		Debounce: time.Minute,
		IDs:      testutil.NewSequenceIDs("id"),
	}
	s := openTestSession(t, cfg)

	pageID := s.PageIDs()[0]
	for i := 0; i < 3; i++ {
		_, err := s.AppendBlock(pageID, lines(4))
		require.NoError(t, err)
	}
	require.Equal(t, 1, s.PageCount(), "overflow waits behind the debounce window")

	s.CheckPage(pageID)

	assert.Eventually(t, func() bool {
		return s.PageCount() == 2
	}, 2*time.Second, 5*time.Millisecond, "immediate check resolves without the window")
}
