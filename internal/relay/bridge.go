// Package relay mirrors room deliveries across nodes through Redis pub/sub,
// so a recipient connected to another relay instance still gets the event.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "relay:deliveries"

// bridgeEnvelope is the wire format on the Redis channel. Node identifies
// the publishing instance so it can skip its own deliveries on the way back.
type bridgeEnvelope struct {
	Node    string          `json:"node"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge implements Bridge on a Redis pub/sub channel shared by all
// relay nodes. Publishing is best-effort: a Redis failure is logged and the
// local delivery stands on its own.
type RedisBridge struct {
	log  *slog.Logger
	rdb  *redis.Client
	node string
}

// NewRedisBridge connects to Redis at addr. The returned bridge is inert
// until handed to a hub via SetBridge.
func NewRedisBridge(log *slog.Logger, addr string) *RedisBridge {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	node := uuid.NewString()
	return &RedisBridge{
		log:  log.With("node", node),
		rdb:  rdb,
		node: node,
	}
}

// Publish forwards one room delivery to the shared channel.
func (b *RedisBridge) Publish(ctx context.Context, room string, payload []byte) {
	env := bridgeEnvelope{Node: b.node, Room: room, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		b.log.Warn("encoding bridge envelope", "error", err)
		return
	}

	if err := b.rdb.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		b.log.Warn("publishing delivery to redis", "room", room, "error", err)
	}
}

// Run subscribes to the shared channel and relays remote deliveries into the
// local hub until the context is cancelled. Deliveries published by this
// node are skipped.
func (b *RedisBridge) Run(ctx context.Context, deliver func(room string, payload []byte)) {
	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("malformed bridge envelope dropped", "error", err)
				continue
			}
			if env.Node == b.node {
				continue
			}

			deliver(env.Room, env.Payload)

		case <-ctx.Done():
			return
		}
	}
}

// Close releases the Redis connection.
func (b *RedisBridge) Close() error {
	return b.rdb.Close()
}
