// Package relay manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package relay

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live WebSocket connection. Its identifier is assigned at
// accept time; the user identity stays empty until the client sends a setup
// event. The identity and closed fields are guarded by the hub's registry
// lock.
type Client struct {
	id       string
	identity string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	log      *slog.Logger
	addr     string
	closed   bool
	limiter  *rateLimiter
}

// NewClient wraps an accepted WebSocket connection. The send channel is
// buffered so fan-out to this client never blocks the sender.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBufferSize),
		hub:     hub,
		log:     hub.log.With("conn", id),
		addr:    addr,
		limiter: newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillInterval),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// setupReadConnection arms the liveness deadline and refreshes it on every
// pong. A client that stops answering pings is considered dead after the
// configured pong wait.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
		c.log.Warn("setting read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
			c.log.Warn("setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError classifies a read failure and reports whether the read
// loop should stop. Every read error is terminal for the connection; the
// distinction is only how loudly it is logged.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client closed connection", "reason", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info("connection closed", "reason", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
	return true
}

// readPump reads inbound frames and hands them to the router. It owns the
// disconnect path: whatever ends the loop, the client is unregistered and
// the transport closed exactly once from here.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("closing connection after read loop", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			return
		}

		if !c.limiter.allow() {
			c.log.Warn("rate limit exceeded, discarding event",
				"burst", c.hub.cfg.RateLimitBurst,
				"interval", c.hub.cfg.RateLimitRefillInterval)
			continue
		}

		c.hub.route(c, raw)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. It exits when the send channel is closed by the
// hub or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("closing connection after write loop", "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeFrame(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		case <-c.hub.ctx.Done():
			// Hub shutdown: the connection is being closed underneath us.
			return
		}
	}
}

// writeFrame writes one outbound frame under the write deadline. A closed
// send channel turns into a close frame to the peer.
func (c *Client) writeFrame(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
		c.log.Warn("setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("writing close frame", "error", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("writing frame", "error", err)
		}
		return false
	}
	return true
}

// isExpectedCloseError reports whether an error is the normal noise of a
// connection going away mid-operation.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
		c.log.Warn("setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("writing ping", "error", err)
		}
		return false
	}
	return true
}
