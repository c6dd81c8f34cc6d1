package window

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_EvictsOldest(t *testing.T) {
	w := New[int](3)
	for i := 1; i <= 5; i++ {
		w.Push(i)
		assert.LessOrEqual(t, w.Len(), w.Cap())
	}

	require.True(t, w.Full())
	if diff := cmp.Diff([]int{3, 4, 5}, w.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}

	oldest, ok := w.Oldest()
	require.True(t, ok)
	assert.Equal(t, 3, oldest)

	newest, ok := w.Newest()
	require.True(t, ok)
	assert.Equal(t, 5, newest)
}

func TestWindow_Empty(t *testing.T) {
	w := New[float64](2)

	_, ok := w.Oldest()
	assert.False(t, ok)
	_, ok = w.Newest()
	assert.False(t, ok)
	assert.Empty(t, w.Values())
	assert.False(t, w.Full())
}

func TestWindow_ClearKeepsCapacity(t *testing.T) {
	w := New[bool](4)
	w.Push(true)
	w.Push(true)
	w.Clear()

	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 4, w.Cap())

	for i := 0; i < 4; i++ {
		w.Push(true)
	}
	assert.True(t, w.Full())
}

func TestWindow_ClampsCapacity(t *testing.T) {
	for _, capacity := range []int{-3, 0, 1} {
		w := New[int](capacity)
		assert.Equal(t, 1, w.Cap(), "capacity %d", capacity)
		w.Push(7)
		w.Push(8)
		assert.Equal(t, []int{8}, w.Values())
	}
}
