/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the membership index, the back-reference from a connection
identifier to the rooms it has joined. It drives duplicate-join and not-in-room
checks and the cleanup cascade on disconnect.
*/
package chat

// membership tracks which rooms each connection has joined, in join order.
// It is not safe for concurrent use; the Coordinator serializes access.
type membership struct {
	rooms map[string][]string
}

func newMembership() *membership {
	return &membership{rooms: make(map[string][]string)}
}

// joined reports whether connID has joined room.
func (m *membership) joined(connID, room string) bool {
	for _, r := range m.rooms[connID] {
		if r == room {
			return true
		}
	}
	return false
}

// recordJoin adds room to the connection's joined set.
func (m *membership) recordJoin(connID, room string) {
	m.rooms[connID] = append(m.rooms[connID], room)
}

// recordLeave removes the first occurrence of room from the connection's joined set.
func (m *membership) recordLeave(connID, room string) {
	joined := m.rooms[connID]
	for i, r := range joined {
		if r == room {
			m.rooms[connID] = append(joined[:i], joined[i+1:]...)
			return
		}
	}
}

// roomsOf returns a copy of the rooms connID has joined, in join order.
func (m *membership) roomsOf(connID string) []string {
	joined := m.rooms[connID]
	out := make([]string, len(joined))
	copy(out, joined)
	return out
}

// clear drops the connection's index entry entirely. Used on disconnect.
func (m *membership) clear(connID string) {
	delete(m.rooms, connID)
}
