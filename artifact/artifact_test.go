package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetCopies(t *testing.T) {
	store := NewInMemoryStore()

	itinerary := []byte(`{"destination":"Lisbon","days":3}`)
	require.NoError(t, store.Save("sess-1", "itinerary-1", itinerary))

	// Mutating the input after save must not affect the stored copy
	itinerary[0] = 'X'

	got, err := store.Get("sess-1", "itinerary-1")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), got[0])

	// Mutating the returned copy must not affect storage either
	got[0] = 'Y'
	again, err := store.Get("sess-1", "itinerary-1")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0])
}

func TestListAndDelete(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save("sess-1", "itinerary-1", []byte("a")))
	require.NoError(t, store.Save("sess-1", "itinerary-2", []byte("b")))

	ids, err := store.List("sess-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"itinerary-1", "itinerary-2"}, ids)

	require.NoError(t, store.Delete("sess-1", "itinerary-1"))
	assert.ErrorIs(t, store.Delete("sess-1", "itinerary-1"), ErrNotFound)

	_, err = store.Get("sess-1", "itinerary-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get("unknown", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
