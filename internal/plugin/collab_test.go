package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/doc"
)

func TestCollab_CoalescesNotesIntoOneRelay(t *testing.T) {
	var got []Update
	p := NewCollab(func(u Update) { got = append(got, u) })

	p.Note(doc.Change{Origin: doc.OriginUser, Revision: 4, PageIDs: []string{"page-a"}})
	p.Note(doc.Change{Origin: doc.OriginUser, Revision: 5, PageIDs: []string{"page-a", "page-b"}})
	p.Note(doc.Change{Origin: doc.OriginUser, Revision: 6, PageIDs: []string{"page-c"}, Structural: true})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, got, 1, "three notes coalesce into one relay")
	assert.Equal(t, int64(6), got[0].Revision)
	assert.Equal(t, 3, got[0].Changes)
	assert.Equal(t, []string{"page-a", "page-b", "page-c"}, got[0].PageIDs)
	assert.True(t, got[0].Structural)
}

func TestCollab_NothingNotedNothingRelayed(t *testing.T) {
	calls := 0
	p := NewCollab(func(Update) { calls++ })

	require.NoError(t, p.Run(context.Background()))
	assert.Zero(t, calls)
}

func TestCollab_RelayDrainsPending(t *testing.T) {
	var got []Update
	p := NewCollab(func(u Update) { got = append(got, u) })

	p.Note(doc.Change{Revision: 1, PageIDs: []string{"page-a"}})
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.Run(context.Background()))
	require.Len(t, got, 1, "drained batch does not relay twice")

	p.Note(doc.Change{Revision: 2, PageIDs: []string{"page-b"}})
	require.NoError(t, p.Run(context.Background()))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].Changes, "counter restarts after a drain")
	assert.Equal(t, []string{"page-b"}, got[1].PageIDs)
}

func TestCollab_NilCallbackStaysSilent(t *testing.T) {
	p := NewCollab(nil)
	p.Note(doc.Change{Revision: 1, PageIDs: []string{"page-a"}})
	assert.NoError(t, p.Run(context.Background()))
}
