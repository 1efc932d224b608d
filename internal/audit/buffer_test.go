package audit

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_FIFOOrder(t *testing.T) {
	buf := NewRingBuffer(8)

	for i := range 5 {
		dropped := buf.Enqueue(Event{ID: strconv.Itoa(i)})
		assert.False(t, dropped)
	}
	require.Equal(t, 5, buf.Len())

	batch := buf.DequeueBatch(10)
	require.Len(t, batch, 5)
	for i, event := range batch {
		assert.Equal(t, strconv.Itoa(i), event.ID)
	}
	assert.Equal(t, 0, buf.Len())
}

func TestRingBuffer_DropsOldestWhenFull(t *testing.T) {
	buf := NewRingBuffer(3)

	for i := range 5 {
		dropped := buf.Enqueue(Event{ID: strconv.Itoa(i)})
		assert.Equal(t, i >= 3, dropped, "enqueue %d", i)
	}

	assert.Equal(t, int64(2), buf.Dropped())
	require.Equal(t, 3, buf.Len())

	batch := buf.DequeueBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, "2", batch[0].ID, "oldest surviving event")
	assert.Equal(t, "4", batch[2].ID, "newest event")
}

func TestRingBuffer_DequeueEmpty(t *testing.T) {
	buf := NewRingBuffer(4)
	assert.Nil(t, buf.DequeueBatch(4))
}

func TestRingBuffer_WrapAround(t *testing.T) {
	buf := NewRingBuffer(4)

	for i := range 3 {
		buf.Enqueue(Event{ID: strconv.Itoa(i)})
	}
	require.Len(t, buf.DequeueBatch(2), 2)

	// Head wraps past the end of the backing slice.
	for i := 3; i < 6; i++ {
		buf.Enqueue(Event{ID: strconv.Itoa(i)})
	}

	batch := buf.DequeueBatch(10)
	require.Len(t, batch, 4)
	for i, event := range batch {
		assert.Equal(t, strconv.Itoa(i+2), event.ID)
	}
	assert.Equal(t, int64(0), buf.Dropped())
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	buf := NewRingBuffer(0)
	dropped := buf.Enqueue(Event{ID: "a"})
	assert.False(t, dropped)
	assert.Equal(t, 1, buf.Len())
}
