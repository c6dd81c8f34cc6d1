// Package window provides the fixed-capacity FIFO used by every sliding
// history in a detection session.
package window

// Window is a ring buffer with evict-oldest-on-overflow semantics.
// The zero value is not usable; construct with New.
type Window[T any] struct {
	buf   []T
	start int
	n     int
}

// New returns an empty window holding at most capacity values.
// Capacities below 1 are clamped to 1.
func New[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Window[T]) Push(v T) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of values held.
func (w *Window[T]) Len() int { return w.n }

// Cap returns the fixed capacity.
func (w *Window[T]) Cap() int { return len(w.buf) }

// Full reports whether the window holds Cap values.
func (w *Window[T]) Full() bool { return w.n == len(w.buf) }

// Oldest returns the oldest value. ok is false when the window is empty.
func (w *Window[T]) Oldest() (v T, ok bool) {
	if w.n == 0 {
		return v, false
	}
	return w.buf[w.start], true
}

// Newest returns the most recently pushed value. ok is false when empty.
func (w *Window[T]) Newest() (v T, ok bool) {
	if w.n == 0 {
		return v, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Values returns a copy of the held values, oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Clear empties the window without changing its capacity.
func (w *Window[T]) Clear() {
	var zero T
	for i := range w.buf {
		w.buf[i] = zero
	}
	w.start = 0
	w.n = 0
}
