package gateway

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestClient builds a client without a live websocket connection; hub
// routing only touches the send queue and the done signal.
func newTestClient(h *Hub, id string) *Client {
	c := NewClient(h, nil, id, nil)
	h.Register(c)
	return c
}

// receive pops one queued frame from the client, failing when none is pending.
func receive(t *testing.T, c *Client) frame {
	t.Helper()

	select {
	case frameBytes := <-c.send:
		var decoded struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data,omitempty"`
		}
		require.NoError(t, json.Unmarshal(frameBytes, &decoded))
		var data any
		if decoded.Data != nil {
			require.NoError(t, json.Unmarshal(decoded.Data, &data))
		}
		return frame{Event: decoded.Event, Data: data}
	default:
		t.Fatal("expected a queued frame, got none")
		return frame{}
	}
}

func requireEmpty(t *testing.T, c *Client) {
	t.Helper()

	select {
	case frameBytes := <-c.send:
		t.Fatalf("expected no queued frames, got %s", frameBytes)
	default:
	}
}

func TestHubUnicast(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")

	h.Unicast("conn-1", "joinConfirmation", "You have joined the room general.")

	got := receive(t, alice)
	require.Equal(t, "joinConfirmation", got.Event)
	require.Equal(t, "You have joined the room general.", got.Data)
	requireEmpty(t, bob)

	// Unknown targets are dropped without effect.
	h.Unicast("conn-404", "joinConfirmation", "ignored")
}

func TestHubRoomcastDeliversToSubscribersOnly(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")
	carol := newTestClient(h, "conn-3")

	h.Subscribe("conn-1", "general")
	h.Subscribe("conn-2", "general")

	h.Roomcast("general", "message", map[string]string{"room": "general", "user": "alice", "text": "hi"})

	require.Equal(t, "message", receive(t, alice).Event)
	require.Equal(t, "message", receive(t, bob).Event)
	requireEmpty(t, carol)
}

func TestHubRoomcastExceptSkipsSender(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")

	h.Subscribe("conn-1", "general")
	h.Subscribe("conn-2", "general")

	h.RoomcastExcept("general", "conn-1", "typing", map[string]string{"room": "general", "user": "alice"})

	requireEmpty(t, alice)
	require.Equal(t, "typing", receive(t, bob).Event)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")

	h.Broadcast("availableUsers", []string{"alice", "bob"})

	for _, c := range []*Client{alice, bob} {
		got := receive(t, c)
		require.Equal(t, "availableUsers", got.Event)
		require.Equal(t, []any{"alice", "bob"}, got.Data)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")

	h.Subscribe("conn-1", "general")
	h.Unsubscribe("conn-1", "general")

	h.Roomcast("general", "message", nil)
	requireEmpty(t, alice)
}

func TestHubUnregisterRemovesFromChannels(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")

	h.Subscribe("conn-1", "general")
	h.Subscribe("conn-2", "general")

	h.Unregister("conn-1")

	h.Roomcast("general", "message", nil)
	requireEmpty(t, alice)
	require.Equal(t, "message", receive(t, bob).Event)

	require.False(t, alice.trySend([]byte("{}")), "unregistered client must refuse new frames")
}

func TestHubDropsFramesWhenQueueFull(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")

	for i := 0; i < sendQueueSize; i++ {
		h.Unicast("conn-1", "message", fmt.Sprintf("msg-%d", i))
	}
	require.Len(t, alice.send, sendQueueSize)

	h.Unicast("conn-1", "message", "overflow")
	require.Len(t, alice.send, sendQueueSize, "frames past queue capacity are dropped")
}

func TestHubShutdownClosesAllClients(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1")
	bob := newTestClient(h, "conn-2")

	h.Shutdown()

	require.False(t, alice.trySend([]byte("{}")))
	require.False(t, bob.trySend([]byte("{}")))
}
