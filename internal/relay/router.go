// Package relay routes inbound client events to the connections that should
// receive them.
//
// Two fan-out scopes exist. New messages go to each recipient's personal
// notification room, so users are reached no matter which conversation they
// are currently viewing. Typing indicators go to the conversation room only,
// because they are meaningless to anyone not looking at that conversation.
package relay

import (
	"encoding/json"

	"github.com/samber/lo"
)

// route dispatches one inbound frame. Every event is handled to completion
// here on the reading goroutine; no handler blocks on a recipient. Malformed
// frames are logged and dropped without feedback to the sender.
func (h *Hub) route(c *Client, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.log.Warn("malformed frame dropped", "error", err)
		return
	}

	switch f.Event {
	case EventSetup:
		h.handleSetup(c, f.Data)
	case EventJoinChat:
		h.handleJoinChat(c, f.Data)
	case EventNewMessage:
		h.handleNewMessage(c, f.Data)
	case EventTyping, EventStopTyping:
		h.handleTyping(c, f.Event, f.Data)
	default:
		c.log.Debug("unknown event dropped", "event", f.Event)
	}
}

// handleSetup binds the sender to its user identity, joins the personal
// notification room keyed by that identity, and acknowledges with a
// "connected" event to the sender only.
func (h *Hub) handleSetup(c *Client, data json.RawMessage) {
	var user UserRef
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		c.log.Warn("setup event without user id dropped")
		return
	}

	if !h.BindIdentity(c, user.ID) {
		return
	}
	c.log.Info("identity bound", "identity", user.ID)

	ack, err := marshalFrame(EventConnected, nil)
	if err != nil {
		c.log.Warn("encoding connected ack", "error", err)
		return
	}
	h.sendTo(c, ack)
}

// handleJoinChat adds the sender to a conversation room. No acknowledgement
// is sent; clients may join any number of rooms.
func (h *Hub) handleJoinChat(c *Client, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil || room == "" {
		c.log.Warn("join chat event without room key dropped")
		return
	}

	if h.JoinRoom(c, room) {
		c.log.Info("joined room", "room", room)
	}
}

// handleNewMessage relays a message to the personal room of every chat
// participant except the message's sender. The payload is forwarded
// untouched. A message whose chat carries no user list is dropped with only
// a log line; senders are never told about malformed bodies.
func (h *Hub) handleNewMessage(c *Client, data json.RawMessage) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn("malformed message payload dropped", "error", err)
		return
	}
	if env.Chat == nil || env.Chat.Users == nil {
		c.log.Warn("message without chat users dropped")
		return
	}

	payload, err := marshalFrame(EventMessageReceived, data)
	if err != nil {
		c.log.Warn("encoding message event", "error", err)
		return
	}

	recipients := lo.Filter(env.Chat.Users, func(u UserRef, _ int) bool {
		return u.ID != "" && u.ID != env.Sender.ID
	})
	for _, u := range recipients {
		h.Deliver(u.ID, payload, c.id)
	}
}

// handleTyping relays a typing or stop-typing indicator to every member of
// the conversation room except the sender.
func (h *Hub) handleTyping(c *Client, event string, data json.RawMessage) {
	var env typingEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Room == "" {
		c.log.Warn("typing event without room key dropped", "event", event)
		return
	}

	payload, err := marshalFrame(event, env.User)
	if err != nil {
		c.log.Warn("encoding typing event", "error", err)
		return
	}
	h.Deliver(env.Room, payload, c.id)
}
