/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the bounded history buffer shared by room and direct-message
storage: a fixed-capacity FIFO that evicts the oldest entry once full.
*/
package chat

// HistoryCapacity is the number of entries a history buffer retains.
// Appending past capacity evicts the oldest entry rather than failing.
const HistoryCapacity = 10

// history is a fixed-capacity FIFO buffer of messages.
// It is not safe for concurrent use; the Coordinator serializes access.
type history[T any] struct {
	entries  []T
	capacity int
}

func newHistory[T any](capacity int) *history[T] {
	return &history[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// append adds an entry, evicting the oldest one when the buffer is full.
func (h *history[T]) append(entry T) {
	if len(h.entries) >= h.capacity {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, entry)
}

// snapshot returns a copy of the buffered entries, oldest first.
// The copy is safe to hand to outbound sends after the store lock is released.
func (h *history[T]) snapshot() []T {
	out := make([]T, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *history[T]) len() int {
	return len(h.entries)
}
