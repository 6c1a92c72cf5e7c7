package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionQueue_FIFOOrder(t *testing.T) {
	q := NewActionQueue()
	q.PushAll([]ActionStep{
		{StepID: "a"},
		{StepID: "b"},
	})
	q.Push(ActionStep{StepID: "c"})

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", first.StepID)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", second.StepID)

	third, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", third.StepID)

	_, ok = q.Pop()
	assert.False(t, ok, "queue should be empty")
}

func TestActionQueue_RetryGoesToTail(t *testing.T) {
	q := NewActionQueue()
	q.PushAll([]ActionStep{{StepID: "a"}, {StepID: "b"}})

	step, ok := q.Pop()
	require.True(t, ok)
	q.Push(step) // simulate a retry re-push

	next, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", next.StepID, "retry must land at the tail, not jump the queue")

	last, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", last.StepID)
}

func TestActionQueue_ConcurrentAccess(t *testing.T) {
	q := NewActionQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(ActionStep{StepID: "x"})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}

func TestDoneQueue_SnapshotIsACopy(t *testing.T) {
	q := NewDoneQueue()
	q.Append(ExecutedStep{Step: ActionStep{StepID: "a"}})

	snap := q.Snapshot()
	require.Len(t, snap, 1)

	q.Append(ExecutedStep{Step: ActionStep{StepID: "b"}})
	assert.Len(t, snap, 1, "earlier snapshot must not observe later appends")
	assert.Len(t, q.Snapshot(), 2)
}
