package realtime

import (
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// Broadcaster fans frames out to room members or to every connection.
//
// Fan-out is snapshot-then-iterate: membership is read once under the
// directory lock and delivery proceeds without it, so a join landing mid
// broadcast may or may not receive the frame. Delivery to one member never
// blocks or skips delivery to its siblings.
type Broadcaster struct {
	registry  *Registry
	directory *Directory
	logger    *logging.Logger
}

// NewBroadcaster creates a broadcaster over the given registry and directory.
func NewBroadcaster(registry *Registry, directory *Directory, logger *logging.Logger) *Broadcaster {
	return &Broadcaster{
		registry:  registry,
		directory: directory,
		logger:    logger,
	}
}

// ToRoom sends a frame to every current member of room.
func (b *Broadcaster) ToRoom(room string, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		b.logger.Error("failed to encode frame", "type", f.Kind(), "error", err)
		return
	}

	members := b.directory.MembersOf(room)
	for _, id := range members {
		b.registry.Send(id, data)
	}

	b.logger.Debug("broadcast to room", "room", room, "type", f.Kind(), "members", len(members))
}

// ToAll sends a frame to every registered connection regardless of rooms.
func (b *Broadcaster) ToAll(f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		b.logger.Error("failed to encode frame", "type", f.Kind(), "error", err)
		return
	}

	b.registry.ForEach(func(id string, h Handle) {
		if !h.IsOpen() {
			return
		}
		_ = h.Send(data)
	})
}

// ToConn sends a frame to a single connection.
func (b *Broadcaster) ToConn(id string, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		b.logger.Error("failed to encode frame", "type", f.Kind(), "error", err)
		return
	}

	b.registry.Send(id, data)
}
