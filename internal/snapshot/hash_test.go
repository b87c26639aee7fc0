package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsObjectKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(out))
}

func TestMarshalCanonical_DoesNotEscapeHTML(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"text": "<a> & </a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"<a> & </a>"}`, string(out))
}

func TestMarshalCanonical_NFCNormalizesStrings(t *testing.T) {
	// "é" as a precomposed code point vs. "e" + combining acute.
	composed, err := MarshalCanonical(map[string]any{"text": "café"})
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(map[string]any{"text": "café"})
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"pages": []any{
			map[string]any{"id": "p1", "blocks": []any{"b1", "b2"}},
		},
		"revision": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"pages":[{"blocks":["b1","b2"],"id":"p1"}],"revision":4}`, string(out))
}

func TestContentHash_StableForEqualContent(t *testing.T) {
	a, err := ContentHash(sampleExport(5, "same words"))
	require.NoError(t, err)
	b, err := ContentHash(sampleExport(5, "same words"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestContentHash_ChangesWithContent(t *testing.T) {
	a, err := ContentHash(sampleExport(5, "one"))
	require.NoError(t, err)
	b, err := ContentHash(sampleExport(5, "two"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestContentHash_UnicodeEquivalentTextsCollide(t *testing.T) {
	a, err := ContentHash(sampleExport(1, "café"))
	require.NoError(t, err)
	b, err := ContentHash(sampleExport(1, "café"))
	require.NoError(t, err)
	assert.Equal(t, a, b, "NFC-equivalent text is the same content")
}
