// Package relay constructs and stops the HTTP server carrying the relay's
// endpoints.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer configures an HTTP server for the relay. Read timeouts stay
// short because the only long-lived traffic is hijacked WebSocket
// connections, which they do not apply to.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully stops the HTTP server, waiting up to timeout for
// in-flight requests to finish.
func ShutdownServer(log *slog.Logger, server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown", "error", err)
		return err
	}

	log.Info("http server stopped")
	return nil
}
