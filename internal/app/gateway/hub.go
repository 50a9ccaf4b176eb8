/*
Package gateway implements the websocket transport collaborator for the chat
coordinator. It owns the live connections and the room channel subscriptions,
and exposes the unicast/roomcast/broadcast capabilities the coordinator consumes.

This file defines the Hub, the registry of connected clients. Sends are
best-effort: a frame is marshaled once and queued to each target's buffered
send channel, and dropped with a warning when a queue is full.
*/
package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"roomcast/internal/pkg/logx"
)

// frame is the wire envelope for one outbound event.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks all connected clients and their room channel subscriptions.
// It implements chat.Sender.
type Hub struct {
	// mu protects clients and channels.
	mu sync.RWMutex

	// clients maps a connection identifier to its Client.
	clients map[string]*Client

	// channels maps a room name to the set of subscribed clients.
	channels map[string]map[string]*Client

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	h.logger.Info().
		Str("conn_id", c.id).
		Int("total_clients", len(h.clients)).
		Msg("Client registered.")
}

// Unregister removes a client from the hub and every room channel, and closes
// its send channel so the write pump terminates.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}

	delete(h.clients, id)
	for room, subscribers := range h.channels {
		if _, subscribed := subscribers[id]; subscribed {
			delete(subscribers, id)
			if len(subscribers) == 0 {
				delete(h.channels, room)
			}
		}
	}

	c.closeSend()
	h.logger.Info().
		Str("conn_id", id).
		Int("total_clients", len(h.clients)).
		Msg("Client unregistered.")
}

// Subscribe adds the connection to a room channel.
func (h *Hub) Subscribe(id, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}

	subscribers, ok := h.channels[room]
	if !ok {
		subscribers = make(map[string]*Client)
		h.channels[room] = subscribers
	}
	subscribers[id] = c
}

// Unsubscribe removes the connection from a room channel.
func (h *Hub) Unsubscribe(id, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.channels[room]
	if !ok {
		return
	}

	delete(subscribers, id)
	if len(subscribers) == 0 {
		delete(h.channels, room)
	}
}

// Unicast sends an event to exactly one connection. Unknown targets are dropped.
func (h *Hub) Unicast(id, event string, payload any) {
	frameBytes, ok := h.marshalFrame(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	c, connected := h.clients[id]
	h.mu.RUnlock()

	if !connected {
		return
	}
	h.enqueue(c, frameBytes)
}

// Roomcast sends an event to every connection subscribed to the room.
func (h *Hub) Roomcast(room, event string, payload any) {
	h.roomcast(room, "", event, payload)
}

// RoomcastExcept sends an event to every connection subscribed to the room
// except exceptID. Used for typing notices, which skip the sender.
func (h *Hub) RoomcastExcept(room, exceptID, event string, payload any) {
	h.roomcast(room, exceptID, event, payload)
}

func (h *Hub) roomcast(room, exceptID, event string, payload any) {
	frameBytes, ok := h.marshalFrame(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[room]))
	for id, c := range h.channels[room] {
		if id == exceptID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, frameBytes)
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	frameBytes, ok := h.marshalFrame(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, frameBytes)
	}
}

// Shutdown closes every client's send channel, terminating the write pumps.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		c.closeSend()
	}
	h.clients = make(map[string]*Client)
	h.channels = make(map[string]map[string]*Client)

	h.logger.Info().Msg("Hub shutdown complete.")
}

func (h *Hub) marshalFrame(event string, payload any) ([]byte, bool) {
	frameBytes, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		h.logger.Error().
			Str("event", event).
			Err(err).
			Msg("Error marshaling outbound frame.")
		return nil, false
	}
	return frameBytes, true
}

// enqueue queues a marshaled frame to a client, dropping it when the client's
// send channel is full or already closed.
func (h *Hub) enqueue(c *Client, frameBytes []byte) {
	if !c.trySend(frameBytes) {
		h.logger.Warn().
			Str("conn_id", c.id).
			Msg("Client send channel full or closed, dropping frame.")
	}
}
