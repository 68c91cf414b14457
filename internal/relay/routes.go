// Package relay wires the gateway's handlers into a ServeMux.
package relay

import "net/http"

// Routes returns a ServeMux with the relay's endpoints: health at the root,
// the WebSocket upgrade at /ws, and the stats gauge at /stats.
func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.HandleHealth)
	mux.HandleFunc("/ws", g.HandleWebSocket)
	mux.HandleFunc("/stats", g.HandleStats)
	return mux
}
