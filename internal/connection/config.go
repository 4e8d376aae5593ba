package connection

import (
	"net/http"
	"time"

	"github.com/vcaremind/voice-client/internal/shared"
)

const (
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultReadTimeout       = 90 * time.Second
	MinReadTimeout           = 60 * time.Second
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultMaxMessageSize    = 8 * 1024 * 1024

	DefaultReconnectBase     = time.Second
	DefaultReconnectMaxDelay = 30 * time.Second
	DefaultReconnectAttempts = 8
	DefaultReconnectJitter   = time.Second
)

type Config struct {
	URL               string
	Header            http.Header
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	HeartbeatInterval time.Duration
	MaxMessageSize    int64
	Backoff           shared.BackoffConfig
}

func DefaultBackoff() shared.BackoffConfig {
	return shared.BackoffConfig{
		Initial:     DefaultReconnectBase,
		MaxAttempts: DefaultReconnectAttempts,
		MaxDelay:    DefaultReconnectMaxDelay,
		Jitter:      DefaultReconnectJitter,
	}
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ReadTimeout < MinReadTimeout {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}

	def := DefaultBackoff()
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = def.Initial
	}
	if c.Backoff.MaxDelay <= 0 {
		c.Backoff.MaxDelay = def.MaxDelay
	}
	if c.Backoff.MaxAttempts <= 0 {
		c.Backoff.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff.Jitter <= 0 {
		c.Backoff.Jitter = def.Jitter
	}
	return c
}
