/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the wire event vocabulary and the payload structures exchanged
with clients. Event names must stay stable for client compatibility.
*/
package chat

// Inbound event names accepted by the Coordinator's dispatch table.
const (
	EventRegisterUser             = "registerUser"
	EventJoinRoom                 = "joinRoom"
	EventLeaveRoom                = "leaveRoom"
	EventMessage                  = "message"
	EventPrivateMessage           = "privateMessage"
	EventTyping                   = "typing"
	EventPrivateTyping            = "privateTyping"
	EventGetAvailableUsers        = "getAvailableUsers"
	EventGetRoomMessageHistory    = "getRoomMessageHistory"
	EventGetPrivateMessageHistory = "getPrivateMessageHistory"
)

// Outbound event names emitted by the Coordinator.
const (
	EventUsernameTaken         = "usernameTaken"
	EventAvailableUsers        = "availableUsers"
	EventUserJoined            = "userJoined"
	EventUserLeft              = "userLeft"
	EventMessageHistory        = "messageHistory"
	EventPrivateMessageHistory = "privateMessageHistory"
	EventJoinConfirmation      = "joinConfirmation"
	EventError                 = "error"
)

// SystemUser is the author of synthetic join/leave notices in room history.
const SystemUser = "System"

// MaxUsernameBytes bounds the length of a username accepted at registration.
const MaxUsernameBytes = 32

// Message is a single room message.
type Message struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
}

// PrivateMessage is a single direct message between two users.
type PrivateMessage struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

// RoomUser is the inbound payload for joinRoom, leaveRoom and typing.
type RoomUser struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// UserEvent is the outbound payload for userJoined and userLeft notices.
type UserEvent struct {
	User string `json:"user"`
	Room string `json:"room"`
}

// PrivatePair is the inbound payload for privateTyping.
type PrivatePair struct {
	To   string `json:"to"`
	From string `json:"from"`
}

// HistoryQuery selects the direct-message history between two users.
type HistoryQuery struct {
	User string `json:"user"`
	To   string `json:"to"`
}
