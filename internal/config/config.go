package config

import (
	"time"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime"`
	Logging  logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// RealtimeConfig represents websocket layer configuration
type RealtimeConfig struct {
	Path            string        `json:"path" yaml:"path"`
	ReadBufferSize  int           `json:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int           `json:"write_buffer_size" yaml:"write_buffer_size"`
	SendBufferSize  int           `json:"send_buffer_size" yaml:"send_buffer_size"`
	MaxMessageSize  int64         `json:"max_message_size" yaml:"max_message_size"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	PongTimeout     time.Duration `json:"pong_timeout" yaml:"pong_timeout"`
	PingInterval    time.Duration `json:"ping_interval" yaml:"ping_interval"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Realtime: RealtimeConfig{
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBufferSize:  256,
			MaxMessageSize:  512 * 1024,
			WriteTimeout:    10 * time.Second,
			PongTimeout:     60 * time.Second,
			PingInterval:    30 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigError("server.port", "invalid port number")
	}

	if c.Server.ReadTimeout < 0 {
		return NewConfigError("server.read_timeout", "timeout cannot be negative")
	}

	if c.Server.WriteTimeout < 0 {
		return NewConfigError("server.write_timeout", "timeout cannot be negative")
	}

	if c.Realtime.Path == "" {
		return NewConfigError("realtime.path", "path is required")
	}

	if c.Realtime.SendBufferSize <= 0 {
		return NewConfigError("realtime.send_buffer_size", "buffer size must be positive")
	}

	if c.Realtime.MaxMessageSize <= 0 {
		return NewConfigError("realtime.max_message_size", "message size limit must be positive")
	}

	if c.Realtime.PingInterval <= 0 || c.Realtime.PongTimeout <= c.Realtime.PingInterval {
		return NewConfigError("realtime.ping_interval", "pong timeout must exceed ping interval")
	}

	return nil
}
