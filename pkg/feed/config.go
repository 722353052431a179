package feed

import "time"

// Config tunes the websocket transport under the feed.
type Config struct {
	// heartbeat ping interval
	HeartbeatInterval time.Duration
	// how long a silent connection is allowed to live
	ConnectionTimeout time.Duration
	// initial delay before a reconnect attempt
	ReconnectInterval time.Duration
	// cap for the reconnect backoff
	MaxReconnectInterval time.Duration
	// outbound frame buffer
	SendBufferSize int
	// websocket read/write buffers
	ReadBufferSize  int
	WriteBufferSize int
	// maximum inbound frame size
	MaxMessageSize int64
	// enable permessage-deflate
	EnableCompression bool
}

// DefaultConfig returns transport settings suitable for a field client.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval:    30 * time.Second,
		ConnectionTimeout:    60 * time.Second,
		ReconnectInterval:    time.Second,
		MaxReconnectInterval: 30 * time.Second,
		SendBufferSize:       64,
		ReadBufferSize:       1024,
		WriteBufferSize:      1024,
		MaxMessageSize:       1 << 20,
		EnableCompression:    true,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.ConnectionTimeout <= 0 {
		out.ConnectionTimeout = d.ConnectionTimeout
	}
	if out.ReconnectInterval <= 0 {
		out.ReconnectInterval = d.ReconnectInterval
	}
	if out.MaxReconnectInterval <= 0 {
		out.MaxReconnectInterval = d.MaxReconnectInterval
	}
	if out.SendBufferSize <= 0 {
		out.SendBufferSize = d.SendBufferSize
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	return &out
}
