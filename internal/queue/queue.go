// Package queue provides the FIFO container used by the exchange lock and the
// dispatcher job list.
package queue

// Queue is a growable FIFO backed by a slice.
//
// Queue is NOT goroutine-safe; owners guard it with their own mutex.
type Queue[T any] struct {
	items []T
	head  int
}

// New creates a Queue with room for prealloc items before growing.
func New[T any](prealloc int) *Queue[T] {
	return &Queue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
// ok is false when the queue is empty.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	if q.head >= len(q.items) {
		return item, false
	}

	var zero T
	item = q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// compact once the consumed prefix dominates the backing array
	if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *Queue[T]) Peek() (item T, ok bool) {
	if q.head >= len(q.items) {
		return item, false
	}

	return q.items[q.head], true
}

// Remove deletes the first item for which match returns true and reports whether
// an item was removed. Order of the remaining items is preserved.
func (q *Queue[T]) Remove(match func(T) bool) bool {
	for i := q.head; i < len(q.items); i++ {
		if match(q.items[i]) {
			copy(q.items[i:], q.items[i+1:])
			var zero T
			q.items[len(q.items)-1] = zero
			q.items = q.items[:len(q.items)-1]

			return true
		}
	}

	return false
}

// Drain removes and returns all queued items in FIFO order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, q.Length())
	copy(out, q.items[q.head:])
	q.Reset()

	return out
}

// Reset empties the queue, keeping the backing array.
func (q *Queue[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *Queue[T]) IsEmpty() bool {
	return q.Length() == 0
}

// Length returns the number of items in the queue.
func (q *Queue[T]) Length() int {
	return len(q.items) - q.head
}
