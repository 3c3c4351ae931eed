/*
Package chat contains the core logic for the ephemeral message relay.

This file defines the Client struct, representing an active WebSocket
connection. It runs the two pump goroutines (ReadPump and WritePump) and
forwards decoded inbound envelopes to the hub's event loop.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wprchat/internal/app/user"
	"wprchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	// Oversized payloads are rejected at the transport before any handler runs.
	maxMessageSize = 8192

	// sendQueueSize is the per-client outbound buffer. Delivery is
	// at-most-once: a full queue drops the event rather than blocking the hub.
	sendQueueSize = 256

	// WsCloseCodeSessionReplaced is a custom WebSocket Close Code (4000-4999
	// range) signalling that the session was replaced by a newer connection
	// for the same identity.
	WsCloseCodeSessionReplaced = 4001
)

// Client represents an active WebSocket connection and its session identity.
type Client struct {
	// hub is the event loop this connection feeds.
	hub *Hub

	// conn is the underlying WebSocket connection.
	conn *websocket.Conn

	// identity is the session identity derived from the handshake token.
	// It is read and mutated only on the hub goroutine.
	identity user.Identity

	// send queues outbound frames for WritePump.
	send chan []byte

	// closed marks the send channel as closed. Only the hub goroutine
	// closes the channel and calls enqueue, so no atomics are needed.
	closed bool

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(hub *Hub, wsConn *websocket.Conn, identity user.Identity) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", identity.UserID).
		Logger()

	return &Client{
		hub:      hub,
		conn:     wsConn,
		identity: identity,
		send:     make(chan []byte, sendQueueSize),
		logger:   clientLogger,
	}
}

// Identity returns the current session identity.
func (c *Client) Identity() user.Identity {
	return c.identity
}

// ReadPump reads frames from the WebSocket connection, decodes the event
// envelope, and hands it to the hub. It handles heartbeats (Pong) and
// triggers exactly one disconnect pass when the connection drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			c.logger.Warn().Err(err).
				Bytes("frame", frame).
				Msg("Client sent invalid JSON")
			continue
		}

		c.hub.Dispatch(c, envelope)
	}
}

// cleanupOnDisconnect queues the disconnect pass with the hub and closes the
// underlying connection.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames from the send channel to the WebSocket
// connection and keeps the heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false to terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
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

// enqueue attempts to queue an outbound frame without blocking the hub.
// Delivery is fire-and-forget: when the client cannot keep up the frame is
// dropped and logged.
func (c *Client) enqueue(frame []byte) {
	if c.closed {
		return
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
	}
}

// Kick gracefully closes the connection with a custom WebSocket Close Frame
// (code 4001), used when a newer connection replaces this session.
func (c *Client) Kick(reason string) {
	if c.conn == nil {
		return
	}

	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionReplaced).
		Str("reason", reason).
		Msg("Sending WS Kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(
		WsCloseCodeSessionReplaced,
		reason,
	)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS 4001 Close Message.")
	}
}
