/*
Package gateway implements the websocket transport collaborator for the chat
coordinator.

This file defines the Client struct, one per live websocket connection. It runs
the read and write pumps, decodes inbound frames, and hands each event to the
coordinator's dispatcher along with the connection identifier.
*/
package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomcast/internal/pkg/logx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxFrameSize = 8192

	// capacity of the per-client outbound queue.
	sendQueueSize = 256
)

// Dispatcher routes inbound events and handles connection teardown.
// Satisfied by chat.Coordinator.
type Dispatcher interface {
	Dispatch(connID, event string, data json.RawMessage)
	Disconnect(connID string)
}

// Client represents one live websocket connection.
type Client struct {
	// owning hub.
	hub *Hub

	// underlying websocket connection.
	conn *websocket.Conn

	// opaque connection identifier, unique for the connection's lifetime.
	id string

	// dispatcher receives every decoded inbound event.
	dispatcher Dispatcher

	// send queues marshaled outbound frames for the write pump.
	send chan []byte

	// done signals that the client is shutting down and sends must stop.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, id string, dispatcher Dispatcher) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		id:         id,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendQueueSize),
		done:       make(chan struct{}),
		logger:     logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// ReadPump reads frames from the websocket connection until it closes, handling
// heartbeats (Pong) and dispatching decoded events. On termination it runs the
// coordinator's disconnect cascade and unregisters from the hub.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect runs when the read pump terminates: the coordinator's
// disconnect cascade first, then hub unregistration, then connection close.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.dispatcher.Disconnect(c.id)
	c.hub.Unregister(c.id)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame decodes one raw frame and dispatches its event.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var inbound struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}

	if err := json.Unmarshal(frameBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	c.dispatcher.Dispatch(c.id, inbound.Event, inbound.Data)
}

// WritePump writes queued frames to the websocket connection and keeps the
// heartbeat alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frameBytes := <-c.send:
			if !c.writeQueuedFrame(frameBytes) {
				return
			}

		case <-c.done:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Error().Err(err).Msg("Error writing close message")
				}
			}
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame to the websocket.
// Returns false if the WritePump loop should terminate.
func (c *Client) writeQueuedFrame(frameBytes []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic websocket Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// trySend queues a marshaled frame without blocking. It reports false when the
// client is shutting down or its queue is full.
func (c *Client) trySend(frameBytes []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frameBytes:
		return true
	default:
		return false
	}
}

// closeSend signals the write pump to stop. Safe to call more than once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
