package realtime

import (
	"github.com/hhusein-alt/BookShelvz-sub001/internal/eventbus"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// Router decodes inbound frames and dispatches them by kind.
type Router struct {
	directory   *Directory
	broadcaster *Broadcaster
	bus         eventbus.Bus
	logger      *logging.Logger
}

// NewRouter creates a router over the given directory and broadcaster. The
// event bus is optional.
func NewRouter(directory *Directory, broadcaster *Broadcaster, bus eventbus.Bus, logger *logging.Logger) *Router {
	return &Router{
		directory:   directory,
		broadcaster: broadcaster,
		bus:         bus,
		logger:      logger,
	}
}

// Handle processes one raw inbound frame from connection id.
//
// Malformed payloads are answered with an error frame and otherwise ignored;
// the connection is not dropped. Frames with an unrecognized type are logged
// and dropped without an error frame.
func (rt *Router) Handle(id string, raw []byte) {
	f, err := protocol.DecodeInbound(raw)
	if err != nil {
		rt.logger.Warn("malformed frame", "client_id", id, "error", err)
		rt.broadcaster.ToConn(id, protocol.NewError("Invalid message format"))
		return
	}

	switch f := f.(type) {
	case protocol.Join:
		rt.Join(id, f.Room)
	case protocol.Leave:
		rt.Leave(id, f.Room)
	case protocol.Publish:
		rt.broadcaster.ToRoom(f.Room, protocol.NewMessage(id, f.Message))
	case protocol.Unknown:
		rt.logger.Debug("unknown frame type", "client_id", id, "type", f.Type)
	}
}

// Join adds the connection to a room and notifies the room's membership,
// the joiner included. Joining a room twice changes nothing and notifies
// nobody.
func (rt *Router) Join(id, room string) {
	if !rt.directory.Join(id, room) {
		return
	}

	rt.logger.Info("client joined room", "client_id", id, "room", room)
	rt.broadcaster.ToRoom(room, protocol.NewRoom(protocol.ActionJoin, id))
	rt.publish(eventbus.EventRoomJoined, id, room)
}

// Leave removes the connection from a room and notifies the remaining
// membership. Leaving a room never joined is a no-op.
func (rt *Router) Leave(id, room string) {
	if !rt.directory.Leave(id, room) {
		return
	}

	rt.logger.Info("client left room", "client_id", id, "room", room)
	rt.broadcaster.ToRoom(room, protocol.NewRoom(protocol.ActionLeave, id))
	rt.publish(eventbus.EventRoomLeft, id, room)
}

func (rt *Router) publish(eventType eventbus.EventType, id, room string) {
	if rt.bus == nil {
		return
	}
	rt.bus.PublishAsync(eventbus.NewEvent(eventType, "realtime", map[string]string{
		"client_id": id,
		"room":      room,
	}))
}
