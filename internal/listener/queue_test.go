package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/event"
)

func queuedEvent(id int64) *event.Event {
	return &event.Event{ID: id, Source: "test", Type: "TEST_EVENT"}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue("test", 8)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Push(queuedEvent(i)))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		ev, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, ev.ID)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueue_PushFullAndNil(t *testing.T) {
	q := NewQueue("test", 2)
	require.NoError(t, q.Push(queuedEvent(1)))
	require.NoError(t, q.Push(queuedEvent(2)))

	assert.ErrorIs(t, q.Push(queuedEvent(3)), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	assert.ErrorIs(t, q.Push(nil), event.ErrNilEvent)
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewQueue("test", 8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Push(queuedEvent(7))
	}()

	ev, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ev.ID)
}

func TestQueue_PopCanceled(t *testing.T) {
	q := NewQueue("test", 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue("test", 8)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Push(queuedEvent(i)))
	}

	ev, ok := q.Remove(func(e *event.Event) bool { return e.ID == 2 })
	require.True(t, ok)
	assert.Equal(t, int64(2), ev.ID)
	assert.Equal(t, 2, q.Len())

	_, ok = q.Remove(func(e *event.Event) bool { return e.ID == 99 })
	assert.False(t, ok)
}

func TestQueue_SnapshotAndReplace(t *testing.T) {
	q := NewQueue("test", 2)
	require.NoError(t, q.Push(queuedEvent(1)))

	snap := q.Snapshot()
	require.Len(t, snap, 1)

	// Replacing with more items than the bound drops the tail.
	q.Replace([]*event.Event{queuedEvent(10), queuedEvent(11), queuedEvent(12)})
	assert.Equal(t, 2, q.Len())

	ev, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, int64(10), ev.ID)
}

func TestQueue_DefaultCapacity(t *testing.T) {
	q := NewQueue("test", 0)
	assert.Equal(t, DefaultQueueCapacity, q.max)
}
