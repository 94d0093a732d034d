package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/config"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/eventbus"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// Server is the websocket facade: it upgrades connections, wires them into
// the registry and router, and tears them down when the transport dies.
//
// Connection lifecycle is connecting -> open -> closed. The upgrade
// completing drives connecting -> open, at which point the peer is sent a
// connection acknowledgement carrying its minted id. Any close or transport
// error is terminal: the connection leaves every room it belonged to and is
// removed from the registry. A reconnecting peer is a brand-new connection
// with a brand-new id.
type Server struct {
	upgrader    websocket.Upgrader
	cfg         config.RealtimeConfig
	registry    *Registry
	directory   *Directory
	broadcaster *Broadcaster
	router      *Router
	notifier    *Notifier
	bus         eventbus.Bus
	logger      *logging.Logger
}

// NewServer creates a fully wired realtime server. The event bus is optional.
func NewServer(cfg config.RealtimeConfig, logger *logging.Logger, bus eventbus.Bus) *Server {
	registry := NewRegistry()
	directory := NewDirectory()
	broadcaster := NewBroadcaster(registry, directory, logger)
	router := NewRouter(directory, broadcaster, bus, logger)

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		cfg:         cfg,
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		router:      router,
		notifier:    NewNotifier(broadcaster, logger),
		bus:         bus,
		logger:      logger,
	}
}

// Notifier returns the domain notifier backed by this server's broadcaster.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Stats returns the current room and connection counts.
func (s *Server) Stats() (rooms, connections int) {
	return s.directory.Len(), s.registry.Len()
}

// ServeHTTP implements http.Handler by upgrading the request and serving the
// connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade error", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	// The id is minted before the conn exists, so neither callback can ever
	// observe it empty, even if the conn is torn down mid-registration.
	id := NewConnID()
	connLogger := logger.WithFields(map[string]any{"client_id": id})
	conn := NewConn(ws, s.cfg, connLogger,
		func(data []byte) {
			s.router.Handle(id, data)
		},
		func() {
			s.disconnect(id)
		},
	)
	s.registry.Register(id, conn)

	s.broadcaster.ToConn(id, protocol.NewConnection(id))

	if s.bus != nil {
		s.bus.PublishAsync(eventbus.NewEvent(eventbus.EventConnectionOpened, "realtime", map[string]string{
			"client_id":   id,
			"remote_addr": r.RemoteAddr,
		}))
	}

	connLogger.Info("client connected", "remote_addr", r.RemoteAddr)

	conn.Start()
	conn.Wait()
}

// disconnect sweeps a dead connection out of every room it belonged to, then
// out of the registry. Each leave notifies the room's remaining members, so
// no room ever retains a reference to a dead connection.
func (s *Server) disconnect(id string) {
	for _, room := range s.directory.RoomsOf(id) {
		s.router.Leave(id, room)
	}
	s.registry.Remove(id)

	if s.bus != nil {
		s.bus.PublishAsync(eventbus.NewEvent(eventbus.EventConnectionClosed, "realtime", map[string]string{
			"client_id": id,
		}))
	}

	s.logger.Info("client disconnected", "client_id", id)
}

// Close tears down every live connection.
func (s *Server) Close() {
	s.registry.ForEach(func(id string, h Handle) {
		h.Close()
	})
}
