// Package buffer provides a small bounded container for terminal
// feeds: a fixed-capacity ring that keeps the most recent items.
package buffer

import "sync"

// Ring is a fixed-capacity FIFO that overwrites its oldest element
// when full, keeping a sliding window of the most recent items. It is
// safe for concurrent use.
type Ring[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// NewRing creates a Ring holding at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		panic("buffer: ring size must be positive")
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Add appends v, evicting the oldest element when the ring is full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.tail%int64(len(r.buf))] = v
	r.tail++
	if r.tail-r.head > int64(len(r.buf)) {
		r.head++
	}
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Items returns a copy of the buffered elements, oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.tail - r.head
	out := make([]T, 0, n)
	for i := int64(0); i < n; i++ {
		out = append(out, r.buf[(r.head+i)%int64(len(r.buf))])
	}
	return out
}

// Reset discards all buffered elements.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head, r.tail = 0, 0
}
