// Package store keeps recent packets in memory, bounded per packet kind.
package store

import "sync"

// Ring is a fixed-capacity buffer that overwrites its oldest item when full.
// Ring is goroutine-safe.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // index of the oldest item
	size  int
	total uint64
}

// NewRing creates a Ring holding at most capacity items. capacity must be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("store: ring capacity must be positive")
	}

	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends item, evicting the oldest one when the ring is full.
// It reports whether an item was evicted.
func (r *Ring[T]) Push(item T) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if r.size < len(r.items) {
		r.items[(r.head+r.size)%len(r.items)] = item
		r.size++

		return false
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)

	return true
}

// Snapshot returns the items from oldest to newest.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := range r.size {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}

	return out
}

// Last returns the newest item.
func (r *Ring[T]) Last() (item T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return item, false
	}

	return r.items[(r.head+r.size-1)%len(r.items)], true
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.size
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Total returns the number of items ever pushed.
func (r *Ring[T]) Total() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.total
}

// Clear removes all items. Total is kept.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.items)
	r.head, r.size = 0, 0
}
