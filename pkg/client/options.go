package client

import (
	"time"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
)

// Options represents agent options
type Options struct {
	// URL is the websocket endpoint, e.g. ws://host:3000/ws.
	URL string

	// ReconnectDelay is the backoff floor. The delay doubles after each
	// failed attempt.
	ReconnectDelay time.Duration

	// ReconnectDelayMax caps the doubling delay.
	ReconnectDelayMax time.Duration

	// MaxReconnectAttempts is the retry ceiling before the agent gives up.
	MaxReconnectAttempts int

	// HandshakeTimeout bounds each dial.
	HandshakeTimeout time.Duration

	Logger *logging.Logger
}

// DefaultOptions returns default agent options for a URL
func DefaultOptions(url string) Options {
	return Options{
		URL:                  url,
		ReconnectDelay:       time.Second,
		ReconnectDelayMax:    30 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
	}
}

func (o *Options) withDefaults() {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = time.Second
	}
	if o.ReconnectDelayMax < o.ReconnectDelay {
		o.ReconnectDelayMax = 30 * time.Second
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 5
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logging.New(logging.Config{Level: "info", Format: "text"})
	}
}
