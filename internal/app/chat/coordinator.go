/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the Coordinator, the facade that routes every inbound event
through an explicit dispatch table, validates it against current state, mutates
the stores it owns, and emits outbound events through the transport's Sender.
The Coordinator never touches sockets; it only decides what to send to whom.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"roomcast/internal/pkg/errs"
	"roomcast/internal/pkg/logx"
)

// Sender is the outbound capability the transport layer provides. All sends
// are fire-and-forget: a failed send to a disconnected target is dropped.
// Subscribe and Unsubscribe maintain the transport-level room channels that
// back Roomcast.
type Sender interface {
	Unicast(id, event string, payload any)
	Roomcast(room, event string, payload any)
	RoomcastExcept(room, exceptID, event string, payload any)
	Broadcast(event string, payload any)
	Subscribe(id, room string)
	Unsubscribe(id, room string)
}

// Coordinator routes inbound events to the presence and messaging stores and
// emits the resulting outbound events. A single mutex serializes all mutating
// operations across the stores; outbound payloads are snapshotted under the
// lock and sent after release.
type Coordinator struct {
	mu sync.Mutex

	registry   *registry
	directory  *directory
	membership *membership
	direct     *directStore

	sender   Sender
	handlers map[string]func(connID string, data json.RawMessage)
	logger   zerolog.Logger
}

// NewCoordinator constructs a Coordinator wired to the given Sender.
func NewCoordinator(sender Sender) *Coordinator {
	c := &Coordinator{
		registry:   newRegistry(),
		directory:  newDirectory(HistoryCapacity),
		membership: newMembership(),
		direct:     newDirectStore(HistoryCapacity),
		sender:     sender,
		logger:     logx.Logger().With().Str("component", "Coordinator").Logger(),
	}

	c.handlers = map[string]func(string, json.RawMessage){
		EventRegisterUser:             c.handleRegisterUser,
		EventJoinRoom:                 c.handleJoinRoom,
		EventLeaveRoom:                c.handleLeaveRoom,
		EventMessage:                  c.handleMessage,
		EventPrivateMessage:           c.handlePrivateMessage,
		EventTyping:                   c.handleTyping,
		EventPrivateTyping:            c.handlePrivateTyping,
		EventGetAvailableUsers:        c.handleGetAvailableUsers,
		EventGetRoomMessageHistory:    c.handleGetRoomMessageHistory,
		EventGetPrivateMessageHistory: c.handleGetPrivateMessageHistory,
	}

	return c
}

// Dispatch routes one inbound event from the transport layer. Unknown events
// and malformed payloads are rejected per-event without affecting other
// connections or stores.
func (c *Coordinator) Dispatch(connID, event string, data json.RawMessage) {
	handler, ok := c.handlers[event]
	if !ok {
		c.logger.Warn().
			Str("conn_id", connID).
			Str("event", event).
			Msg("Client sent unsupported event")
		return
	}

	handler(connID, data)
}

// decode unmarshals an event payload, logging and rejecting malformed input.
func (c *Coordinator) decode(connID, event string, data json.RawMessage, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn().
			Str("conn_id", connID).
			Str("event", event).
			Err(err).
			Msg("Client sent invalid payload")
		return false
	}
	return true
}

func (c *Coordinator) handleRegisterUser(connID string, data json.RawMessage) {
	var username string
	if !c.decode(connID, EventRegisterUser, data, &username) {
		return
	}

	if username == "" || len(username) > MaxUsernameBytes {
		c.sender.Unicast(connID, EventError, errs.NewError(errs.ErrInvalidUsername).Message)
		return
	}

	c.mu.Lock()
	ok := c.registry.register(connID, username)
	var usernames []string
	if ok {
		usernames = c.registry.usernames()
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Info().
			Str("conn_id", connID).
			Str("username", username).
			Msg("Registration rejected: username taken.")
		c.sender.Unicast(connID, EventUsernameTaken, nil)
		return
	}

	c.logger.Info().
		Str("conn_id", connID).
		Str("username", username).
		Int("total_users", len(usernames)).
		Msg("User registered.")
	c.sender.Broadcast(EventAvailableUsers, usernames)
}

func (c *Coordinator) handleJoinRoom(connID string, data json.RawMessage) {
	var payload RoomUser
	if !c.decode(connID, EventJoinRoom, data, &payload) {
		return
	}

	c.mu.Lock()
	if c.membership.joined(connID, payload.Room) {
		c.mu.Unlock()
		c.sender.Unicast(connID, EventError, errs.NewError(errs.ErrAlreadyJoined, payload.Room).Message)
		return
	}

	msgHistory := c.directory.join(payload.Room, payload.User)
	c.membership.recordJoin(connID, payload.Room)
	members := c.directory.members(payload.Room)
	c.mu.Unlock()

	c.logger.Info().
		Str("conn_id", connID).
		Str("room", payload.Room).
		Str("username", payload.User).
		Int("total_members", len(members)).
		Msg("User joined room.")

	c.sender.Subscribe(connID, payload.Room)
	c.sender.Roomcast(payload.Room, EventUserJoined, UserEvent{User: payload.User, Room: payload.Room})
	c.sender.Unicast(connID, EventMessageHistory, msgHistory)
	c.sender.Roomcast(payload.Room, EventAvailableUsers, members)
	c.sender.Unicast(connID, EventJoinConfirmation, fmt.Sprintf("You have joined the room %s.", payload.Room))
}

func (c *Coordinator) handleLeaveRoom(connID string, data json.RawMessage) {
	var payload RoomUser
	if !c.decode(connID, EventLeaveRoom, data, &payload) {
		return
	}

	c.mu.Lock()
	if !c.membership.joined(connID, payload.Room) {
		c.mu.Unlock()
		c.sender.Unicast(connID, EventError, errs.NewError(errs.ErrNotInRoom, payload.Room).Message)
		return
	}

	c.directory.leave(payload.Room, payload.User)
	c.membership.recordLeave(connID, payload.Room)
	members := c.directory.members(payload.Room)
	c.mu.Unlock()

	c.logger.Info().
		Str("conn_id", connID).
		Str("room", payload.Room).
		Str("username", payload.User).
		Msg("User left room.")

	c.sender.Unsubscribe(connID, payload.Room)
	c.sender.Roomcast(payload.Room, EventUserLeft, UserEvent{User: payload.User, Room: payload.Room})
	c.sender.Roomcast(payload.Room, EventAvailableUsers, members)
}

func (c *Coordinator) handleMessage(connID string, data json.RawMessage) {
	var msg Message
	if !c.decode(connID, EventMessage, data, &msg) {
		return
	}

	c.mu.Lock()
	ok := c.directory.post(msg)
	c.mu.Unlock()

	if !ok {
		// Room was never joined, so it has no history buffer. Drop silently.
		c.logger.Debug().
			Str("conn_id", connID).
			Str("room", msg.Room).
			Msg("Dropped message to unknown room.")
		return
	}

	c.sender.Roomcast(msg.Room, EventMessage, msg)
}

func (c *Coordinator) handlePrivateMessage(connID string, data json.RawMessage) {
	var msg PrivateMessage
	if !c.decode(connID, EventPrivateMessage, data, &msg) {
		return
	}

	c.mu.Lock()
	c.direct.post(msg)
	recipientConn, online := c.registry.connOf(msg.To)
	c.mu.Unlock()

	// Stored regardless; delivered live only when the recipient is resolvable.
	if online {
		c.sender.Unicast(recipientConn, EventPrivateMessage, msg)
	}
	c.sender.Unicast(connID, EventPrivateMessage, msg)
}

func (c *Coordinator) handleTyping(connID string, data json.RawMessage) {
	var payload RoomUser
	if !c.decode(connID, EventTyping, data, &payload) {
		return
	}

	c.sender.RoomcastExcept(payload.Room, connID, EventTyping, payload)
}

func (c *Coordinator) handlePrivateTyping(connID string, data json.RawMessage) {
	var payload PrivatePair
	if !c.decode(connID, EventPrivateTyping, data, &payload) {
		return
	}

	c.mu.Lock()
	recipientConn, online := c.registry.connOf(payload.To)
	c.mu.Unlock()

	if online {
		c.sender.Unicast(recipientConn, EventPrivateTyping, payload.From)
	}
}

func (c *Coordinator) handleGetAvailableUsers(connID string, _ json.RawMessage) {
	c.mu.Lock()
	self, _ := c.registry.usernameOf(connID)

	seen := make(map[string]struct{})
	users := []string{}
	for _, room := range c.membership.roomsOf(connID) {
		for _, member := range c.directory.members(room) {
			if member == self {
				continue
			}
			if _, dup := seen[member]; dup {
				continue
			}
			seen[member] = struct{}{}
			users = append(users, member)
		}
	}
	c.mu.Unlock()

	c.sender.Unicast(connID, EventAvailableUsers, users)
}

func (c *Coordinator) handleGetRoomMessageHistory(connID string, data json.RawMessage) {
	var room string
	if !c.decode(connID, EventGetRoomMessageHistory, data, &room) {
		return
	}

	c.mu.Lock()
	msgHistory := c.directory.history(room)
	c.mu.Unlock()

	c.sender.Unicast(connID, EventMessageHistory, msgHistory)
}

func (c *Coordinator) handleGetPrivateMessageHistory(connID string, data json.RawMessage) {
	var query HistoryQuery
	if !c.decode(connID, EventGetPrivateMessageHistory, data, &query) {
		return
	}

	c.mu.Lock()
	msgHistory := c.direct.history(query.User, query.To)
	c.mu.Unlock()

	c.sender.Unicast(connID, EventPrivateMessageHistory, msgHistory)
}

// Disconnect runs the cleanup cascade for a closed connection: unbind the
// username, leave every joined room with the usual room-cast notices, clear
// the membership entry, then broadcast the updated user list. Unregistered
// connections produce no effects.
func (c *Coordinator) Disconnect(connID string) {
	type roomUpdate struct {
		room    string
		members []string
	}

	c.mu.Lock()
	username, registered := c.registry.unregister(connID)
	if !registered {
		c.mu.Unlock()
		return
	}

	rooms := c.membership.roomsOf(connID)
	updates := make([]roomUpdate, 0, len(rooms))
	for _, room := range rooms {
		c.directory.leave(room, username)
		updates = append(updates, roomUpdate{room: room, members: c.directory.members(room)})
	}
	c.membership.clear(connID)
	usernames := c.registry.usernames()
	c.mu.Unlock()

	c.logger.Info().
		Str("conn_id", connID).
		Str("username", username).
		Int("rooms_left", len(rooms)).
		Msg("Client disconnected, cleanup complete.")

	for _, update := range updates {
		c.sender.Unsubscribe(connID, update.room)
		c.sender.Roomcast(update.room, EventUserLeft, UserEvent{User: username, Room: update.room})
		c.sender.Roomcast(update.room, EventAvailableUsers, update.members)
	}

	c.sender.Broadcast(EventAvailableUsers, usernames)
}
