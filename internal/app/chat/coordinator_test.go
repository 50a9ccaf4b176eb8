package chat

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// sentEvent records one outbound effect issued through the Sender.
type sentEvent struct {
	op      string // unicast, roomcast, roomcastExcept, broadcast, subscribe, unsubscribe
	target  string // connection id or room name
	except  string
	event   string
	payload any
}

// recordingSender captures outbound effects for assertions.
type recordingSender struct {
	events []sentEvent
}

func (s *recordingSender) Unicast(id, event string, payload any) {
	s.events = append(s.events, sentEvent{op: "unicast", target: id, event: event, payload: payload})
}

func (s *recordingSender) Roomcast(room, event string, payload any) {
	s.events = append(s.events, sentEvent{op: "roomcast", target: room, event: event, payload: payload})
}

func (s *recordingSender) RoomcastExcept(room, exceptID, event string, payload any) {
	s.events = append(s.events, sentEvent{op: "roomcastExcept", target: room, except: exceptID, event: event, payload: payload})
}

func (s *recordingSender) Broadcast(event string, payload any) {
	s.events = append(s.events, sentEvent{op: "broadcast", event: event, payload: payload})
}

func (s *recordingSender) Subscribe(id, room string) {
	s.events = append(s.events, sentEvent{op: "subscribe", target: id, payload: room})
}

func (s *recordingSender) Unsubscribe(id, room string) {
	s.events = append(s.events, sentEvent{op: "unsubscribe", target: id, payload: room})
}

func (s *recordingSender) reset() {
	s.events = nil
}

// filter returns the recorded effects matching op and event name.
func (s *recordingSender) filter(op, event string) []sentEvent {
	var out []sentEvent
	for _, e := range s.events {
		if e.op == op && e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestCoordinator() (*Coordinator, *recordingSender) {
	sender := &recordingSender{}
	return NewCoordinator(sender), sender
}

func send(t *testing.T, c *Coordinator, connID, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	c.Dispatch(connID, event, data)
}

func TestRegisterUserEnforcesUniqueness(t *testing.T) {
	c, sender := newTestCoordinator()

	send(t, c, "conn-1", EventRegisterUser, "alice")
	broadcasts := sender.filter("broadcast", EventAvailableUsers)
	require.Len(t, broadcasts, 1)
	require.Equal(t, []string{"alice"}, broadcasts[0].payload)

	sender.reset()
	send(t, c, "conn-2", EventRegisterUser, "alice")
	taken := sender.filter("unicast", EventUsernameTaken)
	require.Len(t, taken, 1)
	require.Equal(t, "conn-2", taken[0].target)
	require.Empty(t, sender.filter("broadcast", EventAvailableUsers))

	// The name becomes available again once its holder disconnects.
	c.Disconnect("conn-1")

	sender.reset()
	send(t, c, "conn-2", EventRegisterUser, "alice")
	broadcasts = sender.filter("broadcast", EventAvailableUsers)
	require.Len(t, broadcasts, 1)
	require.Equal(t, []string{"alice"}, broadcasts[0].payload)
}

func TestRegisterUserRejectsInvalidNames(t *testing.T) {
	c, sender := newTestCoordinator()

	send(t, c, "conn-1", EventRegisterUser, "")
	errors := sender.filter("unicast", EventError)
	require.Len(t, errors, 1)
	require.Equal(t, "Invalid username.", errors[0].payload)

	sender.reset()
	send(t, c, "conn-1", EventRegisterUser, "this-username-is-far-too-long-to-accept")
	errors = sender.filter("unicast", EventError)
	require.Len(t, errors, 1)
	require.Empty(t, sender.filter("broadcast", EventAvailableUsers))
}

func TestJoinRoomEffects(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	sender.reset()

	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})

	subscriptions := sender.filter("subscribe", "")
	require.Len(t, subscriptions, 1)
	require.Equal(t, "conn-1", subscriptions[0].target)
	require.Equal(t, "general", subscriptions[0].payload)

	joined := sender.filter("roomcast", EventUserJoined)
	require.Len(t, joined, 1)
	require.Equal(t, "general", joined[0].target)
	require.Equal(t, UserEvent{User: "alice", Room: "general"}, joined[0].payload)

	histories := sender.filter("unicast", EventMessageHistory)
	require.Len(t, histories, 1)
	require.Equal(t, "conn-1", histories[0].target)
	msgHistory, ok := histories[0].payload.([]Message)
	require.True(t, ok)
	require.Len(t, msgHistory, 1)
	require.Equal(t, SystemUser, msgHistory[0].User)
	require.Equal(t, "alice has joined the room.", msgHistory[0].Text)

	members := sender.filter("roomcast", EventAvailableUsers)
	require.Len(t, members, 1)
	require.Equal(t, []string{"alice"}, members[0].payload)

	confirmations := sender.filter("unicast", EventJoinConfirmation)
	require.Len(t, confirmations, 1)
	require.Equal(t, "You have joined the room general.", confirmations[0].payload)
}

func TestDuplicateJoinRejected(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	sender.reset()

	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})

	errors := sender.filter("unicast", EventError)
	require.Len(t, errors, 1)
	require.Equal(t, "You have already joined the room general.", errors[0].payload)
	require.Empty(t, sender.filter("roomcast", EventUserJoined))

	require.Equal(t, []string{"alice"}, c.directory.members("general"), "member list must not gain a duplicate")
	require.Len(t, c.directory.history("general"), 1, "history must not gain a second join notice")
}

func TestLeaveRoomEffects(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	send(t, c, "conn-2", EventJoinRoom, RoomUser{Room: "general", User: "bob"})
	sender.reset()

	send(t, c, "conn-2", EventLeaveRoom, RoomUser{Room: "general", User: "bob"})

	unsubscriptions := sender.filter("unsubscribe", "")
	require.Len(t, unsubscriptions, 1)
	require.Equal(t, "conn-2", unsubscriptions[0].target)

	left := sender.filter("roomcast", EventUserLeft)
	require.Len(t, left, 1)
	require.Equal(t, UserEvent{User: "bob", Room: "general"}, left[0].payload)

	members := sender.filter("roomcast", EventAvailableUsers)
	require.Len(t, members, 1)
	require.Equal(t, []string{"alice"}, members[0].payload)

	msgHistory := c.directory.history("general")
	require.Equal(t, "bob has left the room.", msgHistory[len(msgHistory)-1].Text)
}

func TestLeaveRoomNeverJoinedIsNoop(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	sender.reset()

	send(t, c, "conn-2", EventLeaveRoom, RoomUser{Room: "general", User: "bob"})

	errors := sender.filter("unicast", EventError)
	require.Len(t, errors, 1)
	require.Equal(t, "You are not in the room general.", errors[0].payload)
	require.Empty(t, sender.filter("roomcast", EventUserLeft))

	require.Equal(t, []string{"alice"}, c.directory.members("general"))
	require.Len(t, c.directory.history("general"), 1, "history must not gain a leave notice")
}

func TestRoomHistoryEvictsJoinNotice(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})

	for i := 1; i <= 11; i++ {
		send(t, c, "conn-1", EventMessage, Message{Room: "general", User: "alice", Text: fmt.Sprintf("msg-%d", i)})
	}

	sender.reset()
	send(t, c, "conn-1", EventGetRoomMessageHistory, "general")

	histories := sender.filter("unicast", EventMessageHistory)
	require.Len(t, histories, 1)
	msgHistory, ok := histories[0].payload.([]Message)
	require.True(t, ok)
	require.Len(t, msgHistory, HistoryCapacity)
	require.Equal(t, "msg-2", msgHistory[0].Text, "join notice and first message should be evicted")
	require.Equal(t, "msg-11", msgHistory[9].Text)
	for _, msg := range msgHistory {
		require.NotEqual(t, SystemUser, msg.User)
	}
}

func TestMessageRoomcastAndStored(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	sender.reset()

	msg := Message{Room: "general", User: "alice", Text: "hello"}
	send(t, c, "conn-1", EventMessage, msg)

	casts := sender.filter("roomcast", EventMessage)
	require.Len(t, casts, 1)
	require.Equal(t, "general", casts[0].target)
	require.Equal(t, msg, casts[0].payload)
}

func TestMessageToUnknownRoomDropped(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	sender.reset()

	send(t, c, "conn-1", EventMessage, Message{Room: "ghost", User: "alice", Text: "anyone?"})

	require.Empty(t, sender.events, "messages to rooms never joined are dropped silently")
	require.Empty(t, c.directory.history("ghost"))
}

func TestPrivateMessageDelivery(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	sender.reset()

	msg := PrivateMessage{To: "bob", From: "alice", Text: "psst"}
	send(t, c, "conn-1", EventPrivateMessage, msg)

	deliveries := sender.filter("unicast", EventPrivateMessage)
	require.Len(t, deliveries, 2)
	require.Equal(t, "conn-2", deliveries[0].target, "recipient delivery comes first")
	require.Equal(t, msg, deliveries[0].payload)
	require.Equal(t, "conn-1", deliveries[1].target, "sender receives an echo")
	require.Equal(t, msg, deliveries[1].payload)
}

func TestPrivateMessageToOfflineUserStoredNotDelivered(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	sender.reset()

	msg := PrivateMessage{To: "carol", From: "alice", Text: "are you there?"}
	send(t, c, "conn-1", EventPrivateMessage, msg)

	deliveries := sender.filter("unicast", EventPrivateMessage)
	require.Len(t, deliveries, 1, "only the sender echo is delivered")
	require.Equal(t, "conn-1", deliveries[0].target)

	require.Equal(t, []PrivateMessage{msg}, c.direct.history("alice", "carol"), "message persists for later history queries")
}

func TestPrivateMessageHistorySymmetric(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")

	send(t, c, "conn-1", EventPrivateMessage, PrivateMessage{To: "bob", From: "alice", Text: "one"})
	send(t, c, "conn-2", EventPrivateMessage, PrivateMessage{To: "alice", From: "bob", Text: "two"})
	send(t, c, "conn-1", EventPrivateMessage, PrivateMessage{To: "bob", From: "alice", Text: "three"})

	sender.reset()
	send(t, c, "conn-2", EventGetPrivateMessageHistory, HistoryQuery{User: "bob", To: "alice"})
	send(t, c, "conn-1", EventGetPrivateMessageHistory, HistoryQuery{User: "alice", To: "bob"})

	histories := sender.filter("unicast", EventPrivateMessageHistory)
	require.Len(t, histories, 2)

	bobView, ok := histories[0].payload.([]PrivateMessage)
	require.True(t, ok)
	aliceView, ok := histories[1].payload.([]PrivateMessage)
	require.True(t, ok)

	require.Len(t, bobView, 3)
	require.Equal(t, bobView, aliceView, "both participants see the same buffer in the same order")
	require.Equal(t, "one", bobView[0].Text)
	require.Equal(t, "three", bobView[2].Text)
}

func TestTypingExcludesSender(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	sender.reset()

	payload := RoomUser{Room: "general", User: "alice"}
	send(t, c, "conn-1", EventTyping, payload)

	casts := sender.filter("roomcastExcept", EventTyping)
	require.Len(t, casts, 1)
	require.Equal(t, "general", casts[0].target)
	require.Equal(t, "conn-1", casts[0].except)
	require.Equal(t, payload, casts[0].payload)
}

func TestPrivateTypingDelivery(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	sender.reset()

	send(t, c, "conn-1", EventPrivateTyping, PrivatePair{To: "bob", From: "alice"})

	notices := sender.filter("unicast", EventPrivateTyping)
	require.Len(t, notices, 1)
	require.Equal(t, "conn-2", notices[0].target)
	require.Equal(t, "alice", notices[0].payload)

	// Unresolvable recipients produce no effect at all.
	sender.reset()
	send(t, c, "conn-1", EventPrivateTyping, PrivatePair{To: "nobody", From: "alice"})
	require.Empty(t, sender.events)
}

func TestGetAvailableUsersUnionAcrossRooms(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	send(t, c, "conn-3", EventRegisterUser, "carol")

	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "room-a", User: "alice"})
	send(t, c, "conn-2", EventJoinRoom, RoomUser{Room: "room-a", User: "bob"})
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "room-b", User: "alice"})
	send(t, c, "conn-3", EventJoinRoom, RoomUser{Room: "room-b", User: "carol"})
	send(t, c, "conn-2", EventJoinRoom, RoomUser{Room: "room-b", User: "bob"})
	sender.reset()

	c.Dispatch("conn-1", EventGetAvailableUsers, nil)

	lists := sender.filter("unicast", EventAvailableUsers)
	require.Len(t, lists, 1)
	require.Equal(t, "conn-1", lists[0].target)
	require.Equal(t, []string{"bob", "carol"}, lists[0].payload, "union of joined rooms, deduplicated, minus the caller")
}

func TestGetRoomMessageHistoryUnknownRoomIsEmpty(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	sender.reset()

	send(t, c, "conn-1", EventGetRoomMessageHistory, "ghost")

	histories := sender.filter("unicast", EventMessageHistory)
	require.Len(t, histories, 1)
	require.Equal(t, []Message{}, histories[0].payload)
}

func TestDisconnectCascade(t *testing.T) {
	c, sender := newTestCoordinator()
	send(t, c, "conn-1", EventRegisterUser, "alice")
	send(t, c, "conn-2", EventRegisterUser, "bob")
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "general", User: "alice"})
	send(t, c, "conn-2", EventJoinRoom, RoomUser{Room: "general", User: "bob"})
	send(t, c, "conn-1", EventJoinRoom, RoomUser{Room: "random", User: "alice"})
	sender.reset()

	c.Disconnect("conn-1")

	left := sender.filter("roomcast", EventUserLeft)
	require.Len(t, left, 2, "a left notice is room-cast for every joined room")
	require.Equal(t, UserEvent{User: "alice", Room: "general"}, left[0].payload)
	require.Equal(t, UserEvent{User: "alice", Room: "random"}, left[1].payload)

	memberLists := sender.filter("roomcast", EventAvailableUsers)
	require.Len(t, memberLists, 2)
	require.Equal(t, []string{"bob"}, memberLists[0].payload)
	require.Equal(t, []string{}, memberLists[1].payload)

	broadcasts := sender.filter("broadcast", EventAvailableUsers)
	require.Len(t, broadcasts, 1)
	require.Equal(t, []string{"bob"}, broadcasts[0].payload)

	require.Equal(t, []string{"bob"}, c.directory.members("general"))
	require.Empty(t, c.directory.members("random"))
	require.Empty(t, c.membership.roomsOf("conn-1"))

	// A second disconnect of the same identifier has no effect.
	sender.reset()
	c.Disconnect("conn-1")
	require.Empty(t, sender.events)
}

func TestDispatchRejectsMalformedInput(t *testing.T) {
	c, sender := newTestCoordinator()

	c.Dispatch("conn-1", EventJoinRoom, json.RawMessage("{not json"))
	require.Empty(t, sender.events)

	c.Dispatch("conn-1", "unknownEvent", json.RawMessage(`{}`))
	require.Empty(t, sender.events)

	c.Dispatch("conn-1", EventRegisterUser, json.RawMessage(`42`))
	require.Empty(t, sender.events)
}
