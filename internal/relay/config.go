// Package relay provides configuration loading with runtime defaults,
// sanitization, and rate-limiting parameters for the relay service.
package relay

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the relay's runtime settings. Fields map to environment
// variables via envconfig tags; zero or invalid values are repaired by
// Sanitize so a partially configured environment still yields a usable
// server.
type Config struct {
	Port           string   `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`

	MaxMessageSize int64 `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendBufferSize int   `envconfig:"SEND_BUFFER_SIZE" default:"256"`

	// PongWait is the liveness window: a client that answers no ping within
	// it is considered dead. PingInterval must be shorter than PongWait.
	PongWait     time.Duration `envconfig:"PONG_WAIT" default:"60s"`
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"54s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`

	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`

	// RedisAddr enables the cross-node delivery bridge when set. Empty means
	// single-node operation with no Redis dependency at runtime.
	RedisAddr string `envconfig:"REDIS_ADDR"`
}

// NewConfig returns the default configuration, independent of the
// environment.
func NewConfig() Config {
	return Config{
		Port:                    ":8080",
		AllowedOrigins:          []string{"http://localhost:5173"},
		MaxMessageSize:          4096,
		SendBufferSize:          256,
		PongWait:                60 * time.Second,
		PingInterval:            54 * time.Second,
		WriteTimeout:            10 * time.Second,
		RateLimitBurst:          20,
		RateLimitRefillInterval: time.Second,
	}
}

// NewConfigFromEnv loads configuration from the environment, falling back to
// defaults for anything unset or unparsable.
func NewConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return NewConfig(), err
	}
	return cfg.Sanitize(), nil
}

// Sanitize repairs zero and out-of-range values and returns the result.
func (cfg Config) Sanitize() Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		// Ping early enough that one lost pong does not kill the connection.
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if cfg.RateLimitRefillInterval <= 0 {
		cfg.RateLimitRefillInterval = time.Second
	}
	return cfg
}
