// Package relay exposes the HTTP surface: the WebSocket upgrade endpoint,
// the health probe, and the stats gauge.
package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Gateway owns the transport boundary. It upgrades handshakes, hands
// accepted connections to the hub, and performs no routing or membership
// logic itself.
type Gateway struct {
	log      *slog.Logger
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewGateway builds the transport boundary for a hub, enforcing the
// configured origin allow-list during the handshake.
func NewGateway(log *slog.Logger, hub *Hub) *Gateway {
	origins := newOriginChecker(log, hub.cfg.AllowedOrigins)
	return &Gateway{
		log: log,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.allow,
		},
	}
}

// HandleWebSocket upgrades the HTTP request and registers the resulting
// connection with the hub, which launches the read/write pumps.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, g.hub, r.RemoteAddr)
	g.hub.Register(client)
}

// HandleHealth is a plain liveness probe.
func (g *Gateway) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Relay is running")
}

// HandleStats reports current connection and room counts as JSON.
func (g *Gateway) HandleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g.hub.Snapshot()); err != nil {
		g.log.Warn("encoding stats response", "error", err)
	}
}
