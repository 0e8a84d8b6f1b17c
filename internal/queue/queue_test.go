package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	assert := assert.New(t)

	t.Run("Empty Queue", func(t *testing.T) {
		q := New[int](1)

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())

		_, ok := q.Dequeue()
		assert.False(ok)
		_, ok = q.Peek()
		assert.False(ok)
	})

	t.Run("FIFO order", func(t *testing.T) {
		q := New[string](1)
		q.Enqueue("a")
		q.Enqueue("b")
		q.Enqueue("c")

		head, ok := q.Peek()
		require.True(t, ok)
		assert.Equal("a", head)
		assert.Equal(3, q.Length())

		for _, want := range []string{"a", "b", "c"} {
			got, ok := q.Dequeue()
			require.True(t, ok)
			assert.Equal(want, got)
		}
		assert.True(q.IsEmpty())
	})

	t.Run("Compaction keeps order", func(t *testing.T) {
		q := New[int](4)
		for i := 0; i < 200; i++ {
			q.Enqueue(i)
		}
		for i := 0; i < 150; i++ {
			v, ok := q.Dequeue()
			require.True(t, ok)
			require.Equal(t, i, v)
		}
		q.Enqueue(200)
		assert.Equal(51, q.Length())

		rest := q.Drain()
		require.Len(t, rest, 51)
		assert.Equal(150, rest[0])
		assert.Equal(200, rest[50])
		assert.True(q.IsEmpty())
	})

	t.Run("Remove", func(t *testing.T) {
		q := New[int](4)
		q.Enqueue(1)
		q.Enqueue(2)
		q.Enqueue(3)
		_, _ = q.Dequeue()

		assert.False(q.Remove(func(v int) bool { return v == 1 }))
		assert.True(q.Remove(func(v int) bool { return v == 2 }))
		assert.Equal([]int{3}, q.Drain())
	})

	t.Run("Reset", func(t *testing.T) {
		q := New[int](2)
		q.Enqueue(1)
		q.Reset()
		assert.True(q.IsEmpty())
		q.Enqueue(7)
		v, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal(7, v)
	})
}
