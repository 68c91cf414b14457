package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkio/relay/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := relay.NewConfigFromEnv()
	if err != nil {
		log.Warn("loading configuration, using defaults for bad values", "error", err)
	}

	hub := relay.NewHub(log, cfg)
	if cfg.RedisAddr != "" {
		hub.SetBridge(relay.NewRedisBridge(log, cfg.RedisAddr))
		log.Info("cross-node bridge enabled", "redis", cfg.RedisAddr)
	}
	go hub.Run()

	gateway := relay.NewGateway(log, hub)
	server := relay.CreateServer(cfg.Port, gateway.Routes())

	errCh := make(chan error, 1)
	go func() {
		log.Info("relay listening", "addr", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	if err := relay.ShutdownServer(log, server, shutdownTimeout); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Warn("hub shutdown incomplete", "error", err)
	}
}
