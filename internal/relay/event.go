// Package relay defines the wire-level event envelope and the payload
// fragments the router needs to inspect before fanning events out.
package relay

import "encoding/json"

// Inbound event names accepted from clients.
const (
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventNewMessage = "new message"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
)

// Outbound event names emitted to clients.
const (
	EventConnected       = "connected"
	EventMessageReceived = "message received"
)

// Frame is the JSON envelope exchanged in both directions:
// {"event": "<name>", "data": <payload>}.
//
// Data is kept raw so payloads are relayed to recipients byte-for-byte;
// the router only decodes the fragments it routes on.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserRef is the identity fragment of a user object. Clients send full user
// documents; the relay only ever reads the stable identifier.
type UserRef struct {
	ID string `json:"_id"`
}

// messageEnvelope is the routed subset of a "new message" payload. The chat's
// user list determines the recipient set; the sender is excluded from it.
type messageEnvelope struct {
	Chat   *chatRef `json:"chat"`
	Sender UserRef  `json:"sender"`
}

type chatRef struct {
	Users []UserRef `json:"users"`
}

// typingEnvelope carries a typing or stop-typing indicator: the conversation
// room it is scoped to and the user document to relay to room members.
type typingEnvelope struct {
	Room string          `json:"room"`
	User json.RawMessage `json:"user"`
}

// marshalFrame encodes an outbound event envelope.
func marshalFrame(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}
