/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the room directory, which owns each room's ordered member list
and its bounded message history. Rooms are created lazily on first join and are
never deleted; an empty room keeps its history for later reuse.
*/
package chat

import "fmt"

// roomState holds one room's member list and message history.
type roomState struct {
	members []string
	history *history[Message]
}

// directory maps room names to their state.
// It is not safe for concurrent use; the Coordinator serializes access.
type directory struct {
	rooms           map[string]*roomState
	historyCapacity int
}

func newDirectory(historyCapacity int) *directory {
	return &directory{
		rooms:           make(map[string]*roomState),
		historyCapacity: historyCapacity,
	}
}

// join adds username to room, creating the room lazily, and appends the
// synthetic System join notice to its history. It returns the post-append
// history snapshot for the joining connection. Duplicate-join rejection is the
// caller's responsibility via the membership index.
func (d *directory) join(room, username string) []Message {
	state, ok := d.rooms[room]
	if !ok {
		state = &roomState{history: newHistory[Message](d.historyCapacity)}
		d.rooms[room] = state
	}

	state.members = append(state.members, username)
	state.history.append(Message{
		Room: room,
		User: SystemUser,
		Text: fmt.Sprintf("%s has joined the room.", username),
	})

	return state.history.snapshot()
}

// leave removes the first matching occurrence of username from the room's
// member list and appends the synthetic System leave notice. It reports false
// when the room is unknown.
func (d *directory) leave(room, username string) bool {
	state, ok := d.rooms[room]
	if !ok {
		return false
	}

	for i, member := range state.members {
		if member == username {
			state.members = append(state.members[:i], state.members[i+1:]...)
			break
		}
	}

	state.history.append(Message{
		Room: room,
		User: SystemUser,
		Text: fmt.Sprintf("%s has left the room.", username),
	})
	return true
}

// post appends a message to the room's history, evicting the oldest entry at
// capacity. It reports false when the room was never joined, in which case the
// message is dropped.
func (d *directory) post(msg Message) bool {
	state, ok := d.rooms[msg.Room]
	if !ok {
		return false
	}

	state.history.append(msg)
	return true
}

// members returns a copy of the room's member list, empty if the room is unknown.
func (d *directory) members(room string) []string {
	state, ok := d.rooms[room]
	if !ok {
		return []string{}
	}

	out := make([]string, len(state.members))
	copy(out, state.members)
	return out
}

// history returns a snapshot of the room's message history, empty if the room
// is unknown.
func (d *directory) history(room string) []Message {
	state, ok := d.rooms[room]
	if !ok {
		return []Message{}
	}
	return state.history.snapshot()
}
