package realtime

import "errors"

var (
	// ErrConnectionClosed is returned when sending on a closed connection
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrSendBufferFull is returned when a connection's send buffer is full
	ErrSendBufferFull = errors.New("send buffer is full")
)
