// Package realtime implements the room-based publish/subscribe layer: a
// connection registry, a room directory with reverse index, a frame router,
// a broadcast engine, and the websocket server facade tying them together.
package realtime
