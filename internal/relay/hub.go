// Package relay coordinates connection registration, identity binding, room
// membership, and event fan-out for the relay via the Hub type.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Bridge mirrors room deliveries to other relay nodes. Publish forwards a
// local delivery; Run feeds remote deliveries back through the supplied
// function until the context is cancelled.
type Bridge interface {
	Publish(ctx context.Context, room string, payload []byte)
	Run(ctx context.Context, deliver func(room string, payload []byte))
	Close() error
}

// Hub is the connection registry. It owns every live client, the room
// membership index, and the delivery path. Registration and unregistration
// flow through channels into the run loop; identity binding, joins, and
// fan-out are handled to completion on the calling goroutine under the
// registry lock.
type Hub struct {
	log   *slog.Logger
	cfg   Config
	rooms *roomIndex

	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	bridge Bridge

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub ready to manage connections with the given
// configuration. Call Run in its own goroutine before accepting connections.
func NewHub(log *slog.Logger, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		cfg:        cfg,
		rooms:      newRoomIndex(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetBridge attaches a cross-node delivery bridge. Must be called before Run.
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// Register queues a client for registration with the hub. The hub launches
// the client's pump goroutines once it is recorded.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister queues a client for removal. Safe to call more than once for
// the same client; the second call is a no-op.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run is the hub's main event loop. It handles client registration and
// unregistration and, when a bridge is attached, starts the remote delivery
// feed. Run returns when Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	if h.bridge != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.bridge.Run(h.ctx, h.deliverLocal)
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			if c == nil {
				h.log.Warn("nil client registration skipped")
				continue
			}
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	c.closed = false
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", "conn", c.id, "addr", c.addr, "total", total)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// unregisterClient removes the client from the registry and from every room
// it was a member of. Unknown clients are ignored, which makes a double
// disconnect harmless.
func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	c.closed = true
	identity := c.identity
	total := len(h.clients)
	h.mu.Unlock()

	h.rooms.LeaveAll(c.id)
	close(c.send)

	h.log.Info("client disconnected", "conn", c.id, "identity", identity, "total", total)
}

// BindIdentity associates a user identity with the client and joins its
// personal notification room. Re-binding is allowed and idempotent. If the
// client lost a race with disconnect the call is a silent no-op.
func (h *Hub) BindIdentity(c *Client, identity string) bool {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; !ok || cur != c {
		h.mu.Unlock()
		return false
	}
	c.identity = identity
	h.mu.Unlock()

	h.rooms.Join(identity, c.id)
	return true
}

// JoinRoom adds the client to a conversation room. No-op if the client is
// already gone.
func (h *Hub) JoinRoom(c *Client, room string) bool {
	h.mu.RLock()
	_, ok := h.clients[c.id]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	h.rooms.Join(room, c.id)
	return true
}

// Deliver fans the payload out to every live member of the room except the
// excluded connection, then mirrors the delivery across the bridge when one
// is attached. Each recipient is dispatched independently; a slow or failed
// recipient never stalls the rest. Returns the number of local recipients
// the payload was handed to.
func (h *Hub) Deliver(room string, payload []byte, exclude string) int {
	n := h.fanout(room, payload, exclude)
	if h.bridge != nil {
		h.bridge.Publish(h.ctx, room, payload)
	}
	return n
}

// deliverLocal is the bridge's way in: remote deliveries fan out to local
// members only and are never re-published.
func (h *Hub) deliverLocal(room string, payload []byte) {
	h.fanout(room, payload, "")
}

func (h *Hub) fanout(room string, payload []byte, exclude string) int {
	n := 0
	for _, id := range h.rooms.Members(room) {
		if id == exclude {
			continue
		}
		if h.send(id, payload) {
			n++
		}
	}
	return n
}

// send hands the payload to a single connection's write pump. Sends to
// unregistered or closed connections, and sends that would block on a full
// buffer, are dropped: per-recipient failure is non-fatal.
func (h *Hub) send(id string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	if !ok || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		h.log.Warn("send buffer full, dropping event", "conn", id)
		return false
	}
}

// sendTo delivers a payload to one specific client, used for direct
// acknowledgements such as the setup "connected" reply.
func (h *Hub) sendTo(c *Client, payload []byte) bool {
	return h.send(c.id, payload)
}

// Stats is a point-in-time gauge of hub occupancy.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// Snapshot returns current connection and room counts.
func (h *Hub) Snapshot() Stats {
	h.mu.RLock()
	connections := len(h.clients)
	h.mu.RUnlock()

	return Stats{
		Connections: connections,
		Rooms:       h.rooms.RoomCount(),
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("closing client connection", "conn", c.id, "error", err)
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the run loop, closes every client connection, and waits for
// the pump goroutines to finish or the timeout to elapse. The bridge, when
// attached, is closed last.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		err = context.DeadlineExceeded
	}

	if h.bridge != nil {
		if cerr := h.bridge.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
