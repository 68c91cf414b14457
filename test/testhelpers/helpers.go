// Package testhelpers provides shared utilities for exercising the relay
// over real WebSocket connections in tests: dialing with an allowed origin,
// sending event frames, and asserting on what each client receives.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame mirrors the relay's wire envelope for test assertions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSURL converts an httptest server URL into the relay's WebSocket endpoint.
func WSURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// Connect dials the relay's WebSocket endpoint with the given Origin header
// and fails the test if the handshake does not complete.
func Connect(t *testing.T, url, origin string) *websocket.Conn {
	t.Helper()

	conn, err := Dial(url, origin)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Dial attempts a handshake and returns the raw error, for tests asserting
// on rejected origins.
func Dial(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent writes one event frame to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("sending %q event: %v", event, err)
	}
}

// ReceiveEvent reads the next frame, failing the test if none arrives within
// the timeout.
func ReceiveEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Frame {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("reading event frame: %v", err)
	}
	return frame
}

// ExpectEvent reads the next frame and asserts its event name.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) Frame {
	t.Helper()

	frame := ReceiveEvent(t, conn, timeout)
	if frame.Event != event {
		t.Fatalf("expected %q event, got %q", event, frame.Event)
	}
	return frame
}

// ExpectSilence asserts that no frame arrives on the connection within the
// window. Used to prove sender exclusion.
func ExpectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(window))
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no event, received %s", raw)
	}
	_ = conn.SetReadDeadline(time.Time{})
}
