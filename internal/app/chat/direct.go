/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the direct-message store, which keeps a bounded history per
unordered user pair. Either participant's history query resolves to the same
buffer. Buffers are created on first message and never destroyed.
*/
package chat

// directStore maps an unordered user pair to its bounded message history.
// It is not safe for concurrent use; the Coordinator serializes access.
type directStore struct {
	pairs           map[string]*history[PrivateMessage]
	historyCapacity int
}

func newDirectStore(historyCapacity int) *directStore {
	return &directStore{
		pairs:           make(map[string]*history[PrivateMessage]),
		historyCapacity: historyCapacity,
	}
}

// pairKey derives the canonical key for a user pair: the two names sorted and
// joined, so (a,b) and (b,a) resolve to the identical buffer.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// post appends msg to the pair's history, creating the buffer on first use.
// Storage does not depend on whether the recipient is currently connected.
func (s *directStore) post(msg PrivateMessage) {
	key := pairKey(msg.From, msg.To)

	buffer, ok := s.pairs[key]
	if !ok {
		buffer = newHistory[PrivateMessage](s.historyCapacity)
		s.pairs[key] = buffer
	}
	buffer.append(msg)
}

// history returns a snapshot of the pair's messages, empty if none exist yet.
func (s *directStore) history(a, b string) []PrivateMessage {
	buffer, ok := s.pairs[pairKey(a, b)]
	if !ok {
		return []PrivateMessage{}
	}
	return buffer.snapshot()
}
