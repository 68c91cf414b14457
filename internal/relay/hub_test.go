package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubRunAndShutdown(t *testing.T) {
	h := newTestHub()
	go h.Run()

	require.NoError(t, h.Shutdown(time.Second))
}

func TestHubRegisterNilClientSkipped(t *testing.T) {
	h := newTestHub()
	go h.Run()

	h.Register(nil)

	require.NoError(t, h.Shutdown(time.Second))
}

func TestHubSendToUnknownConnection(t *testing.T) {
	h := newTestHub()

	assert.False(t, h.send("no-such-conn", []byte("x")))
}

func TestHubSendDropsWhenBufferFull(t *testing.T) {
	h := newTestHub()
	c := addTestClient(h, "conn-1")

	for i := 0; i < cap(c.send); i++ {
		require.True(t, h.send("conn-1", []byte("fill")))
	}
	// The slow recipient loses the event; the call never blocks.
	assert.False(t, h.send("conn-1", []byte("overflow")))
}

func TestHubSnapshot(t *testing.T) {
	h := newTestHub()
	x := setupClient(t, h, "conn-x", "u1")
	_ = setupClient(t, h, "conn-y", "u2")
	h.route(x, rawEvent(t, EventJoinChat, "room1"))

	stats := h.Snapshot()
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 3, stats.Rooms) // u1, u2, room1
}

// fakeBridge records published deliveries and lets tests inject remote ones.
type fakeBridge struct {
	mu        sync.Mutex
	published []string
	remote    chan [2]string // room, payload
	closed    bool
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{remote: make(chan [2]string, 8)}
}

func (f *fakeBridge) Publish(_ context.Context, room string, _ []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, room)
}

func (f *fakeBridge) Run(ctx context.Context, deliver func(room string, payload []byte)) {
	for {
		select {
		case msg := <-f.remote:
			deliver(msg[0], []byte(msg[1]))
		case <-ctx.Done():
			return
		}
	}
}

func (f *fakeBridge) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBridge) publishedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func TestHubMirrorsDeliveriesAcrossBridge(t *testing.T) {
	h := newTestHub()
	bridge := newFakeBridge()
	h.SetBridge(bridge)
	go h.Run()
	defer func() { require.NoError(t, h.Shutdown(time.Second)) }()

	c := addTestClient(h, "conn-1")
	h.rooms.Join("room1", c.id)

	h.Deliver("room1", []byte(`{"event":"typing"}`), "")

	assert.Equal(t, []string{"room1"}, bridge.publishedRooms())
}

func TestHubRelaysRemoteDeliveries(t *testing.T) {
	h := newTestHub()
	bridge := newFakeBridge()
	h.SetBridge(bridge)
	go h.Run()

	c := addTestClient(h, "conn-1")
	h.rooms.Join("room1", c.id)

	bridge.remote <- [2]string{"room1", `{"event":"typing"}`}

	select {
	case raw := <-c.send:
		assert.JSONEq(t, `{"event":"typing"}`, string(raw))
	case <-time.After(time.Second):
		t.Fatal("remote delivery never reached local member")
	}

	// Remote deliveries must not be re-published.
	assert.Empty(t, bridge.publishedRooms())

	require.NoError(t, h.Shutdown(time.Second))
	assert.True(t, bridge.closed)
}
