package client

// ConnectionState represents the agent's logical connection state.
type ConnectionState int

const (
	// Disconnected means no transport is up and no dial is in flight.
	Disconnected ConnectionState = iota

	// Connecting means a dial is in flight.
	Connecting

	// Connected means the transport is up.
	Connected

	// GaveUp means the reconnect attempt ceiling was reached. Terminal until
	// the next explicit Connect call.
	GaveUp
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case GaveUp:
		return "gave-up"
	default:
		return "unknown"
	}
}
