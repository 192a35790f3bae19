package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesKV(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Put("sess-1", map[string]any{"budget": "mid_range"}))
	require.NoError(t, store.Put("sess-1", map[string]any{"trip_style": "cultural"}))

	prefs, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "mid_range", prefs["budget"])
	assert.Equal(t, "cultural", prefs["trip_style"])

	empty, err := store.Get("unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNoteSearch(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Store("sess-1", "Prefers boutique hotels", map[string]any{"kind": "preference"}))
	require.NoError(t, store.Store("sess-1", "Vegetarian, avoid seafood restaurants", nil))
	require.NoError(t, store.Store("sess-2", "Travels with a dog", nil))

	results, err := store.Search("sess-1", "hotels", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Prefers boutique hotels", results[0].Content)
	assert.Equal(t, "preference", results[0].Metadata["kind"])

	// case-insensitive, scoped by session
	results, err = store.Search("sess-1", "VEGETARIAN", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = store.Search("sess-1", "dog", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// empty query returns all, respecting limit
	results, err = store.Search("sess-1", "", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestNoteDelete(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Store("sess-1", "temporary note", nil))

	results, err := store.Search("sess-1", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, store.Delete("sess-1", results[0].ID))
	assert.Error(t, store.Delete("sess-1", results[0].ID))
}
