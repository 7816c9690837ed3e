package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Order(t *testing.T) {
	var q Queue

	q.Append(testTrack("a"))
	q.Append(testTrack("b"))
	q.Prepend(testTrack("z"))

	require.Equal(t, 3, q.Len())

	got, ok := q.GetAt(0)
	require.True(t, ok)
	assert.Equal(t, "z", got.Title)

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "z", next.Title)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_RemoveAt(t *testing.T) {
	var q Queue

	q.Append(testTrack("a"))
	q.Append(testTrack("b"))
	q.Append(testTrack("c"))

	removed, ok := q.RemoveAt(1)
	require.True(t, ok)
	assert.Equal(t, "b", removed.Title)

	tracks := q.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].Title)
	assert.Equal(t, "c", tracks[1].Title)

	_, ok = q.RemoveAt(5)
	assert.False(t, ok)
	_, ok = q.RemoveAt(-1)
	assert.False(t, ok)
}

func TestQueue_NextOnEmpty(t *testing.T) {
	var q Queue

	_, ok := q.Next()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestQueue_Clear(t *testing.T) {
	var q Queue

	q.Append(testTrack("a"))
	q.Append(testTrack("b"))
	q.Clear()

	assert.True(t, q.IsEmpty())
	assert.Empty(t, q.Tracks())
}

func TestQueue_TracksIsACopy(t *testing.T) {
	var q Queue

	q.Append(testTrack("a"))
	tracks := q.Tracks()
	tracks[0].Title = "mutated"

	got, ok := q.GetAt(0)
	require.True(t, ok)
	assert.Equal(t, "a", got.Title)
}
