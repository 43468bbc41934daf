package stream

import (
	"errors"
	"time"
)

// ErrAlreadyClosed is returned by Connect on a client that was closed.
var ErrAlreadyClosed = errors.New("already closed")

// Message is one raw frame with its local receive timestamp.
type Message struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // ws:// or wss:// endpoint
	Token        string        // bearer token, empty = no auth
	DialTimeout  time.Duration // handshake deadline
	PingInterval time.Duration // keepalive ping cadence
	ReadTimeout  time.Duration // max silence before the connection is considered dead
	WriteTimeout time.Duration // deadline for control frames
	BufferSize   int           // message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:  10 * time.Second,
		PingInterval: 15 * time.Second,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   64,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}
