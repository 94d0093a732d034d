// Package client provides the reconnecting websocket agent: one logical
// connection with bounded exponential backoff, a typed frame-handler
// registry, and convenience wrappers for the bookshelf rooms.
package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// ErrNotConnected is returned when a send is attempted without a live
// transport. Nothing is queued; the caller re-declares room interest after a
// reconnect if it wants it back.
var ErrNotConnected = errors.New("not connected")

// Handler receives a decoded frame. Handlers for a frame kind run in
// registration order; panics are not recovered by the agent.
type Handler func(f protocol.Frame)

// Subscription identifies a registered handler for removal.
type Subscription struct {
	kind string
	id   int
}

type registration struct {
	id int
	fn Handler
}

// Agent maintains one logical connection to the realtime server. A dropped
// transport is redialed with doubling backoff until the attempt ceiling;
// each Connect call supersedes any live transport or pending retry, whose
// late events are discarded.
type Agent struct {
	opts   Options
	dialer *websocket.Dialer
	logger *logging.Logger

	mu       sync.Mutex
	state    ConnectionState
	conn     *websocket.Conn
	gen      int
	attempts int
	retry    *time.Timer
	backoff  *backoff.Backoff
	clientID string
	rooms    map[string]struct{}

	handlersMu sync.RWMutex
	handlers   map[string][]registration
	nextID     int
	failed     []func()

	writeMu sync.Mutex
}

// New creates an agent. It does not dial; call Connect.
func New(opts Options) *Agent {
	opts.withDefaults()

	return &Agent{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		logger: opts.Logger,
		backoff: &backoff.Backoff{
			Min:    opts.ReconnectDelay,
			Max:    opts.ReconnectDelayMax,
			Factor: 2,
		},
		rooms:    make(map[string]struct{}),
		handlers: make(map[string][]registration),
	}
}

// Connect starts a fresh logical connection. Any live transport and any
// pending retry timer are superseded; the attempt counter and backoff reset.
func (a *Agent) Connect() {
	a.mu.Lock()
	a.cancelRetryLocked()
	a.gen++
	gen := a.gen
	old := a.conn
	a.conn = nil
	a.attempts = 0
	a.backoff.Reset()
	a.state = Connecting
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}

	go a.dial(gen)
}

// Close disposes the agent: cancels any pending retry and closes the
// transport. No failure notification is emitted.
func (a *Agent) Close() {
	a.mu.Lock()
	a.cancelRetryLocked()
	a.gen++
	old := a.conn
	a.conn = nil
	a.clientID = ""
	a.state = Disconnected
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// State returns the agent's current connection state.
func (a *Agent) State() ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ClientID returns the identifier assigned by the server for the current
// transport, empty until the connection acknowledgement arrives.
func (a *Agent) ClientID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clientID
}

// Rooms returns the rooms this agent has asked to join and not since left.
// The set survives a transport drop: server-side membership is per
// transport, so after a reconnect the caller walks this set and rejoins.
func (a *Agent) Rooms() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	rooms := make([]string, 0, len(a.rooms))
	for room := range a.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Join asks the server to add this connection to a room. Returns
// ErrNotConnected (nothing queued) without a live transport.
func (a *Agent) Join(room string) error {
	if err := a.sendFrame(protocol.NewJoin(room)); err != nil {
		return err
	}

	a.mu.Lock()
	a.rooms[room] = struct{}{}
	a.mu.Unlock()
	return nil
}

// Leave asks the server to remove this connection from a room. Returns
// ErrNotConnected (nothing queued) without a live transport.
func (a *Agent) Leave(room string) error {
	if err := a.sendFrame(protocol.NewLeave(room)); err != nil {
		return err
	}

	a.mu.Lock()
	delete(a.rooms, room)
	a.mu.Unlock()
	return nil
}

// Publish broadcasts a message to every member of a room.
func (a *Agent) Publish(room string, message any) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return a.sendFrame(protocol.NewPublish(room, raw))
}

// On registers a handler for a frame kind. Handlers run in registration
// order; the same function may be registered more than once.
func (a *Agent) On(kind string, fn Handler) Subscription {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()

	a.nextID++
	a.handlers[kind] = append(a.handlers[kind], registration{id: a.nextID, fn: fn})
	return Subscription{kind: kind, id: a.nextID}
}

// Off removes a previously registered handler.
func (a *Agent) Off(sub Subscription) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()

	regs := a.handlers[sub.kind]
	for i, reg := range regs {
		if reg.id == sub.id {
			a.handlers[sub.kind] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

// OnConnectionFailed registers a callback for the terminal give-up
// notification. It fires exactly once per exhausted reconnect sequence.
func (a *Agent) OnConnectionFailed(fn func()) {
	a.handlersMu.Lock()
	a.failed = append(a.failed, fn)
	a.handlersMu.Unlock()
}

func (a *Agent) sendFrame(f protocol.Frame) error {
	a.mu.Lock()
	if a.state != Connected || a.conn == nil {
		a.mu.Unlock()
		return ErrNotConnected
	}
	ws := a.conn
	a.mu.Unlock()

	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, data)
}

func (a *Agent) dial(gen int) {
	ws, _, err := a.dialer.Dial(a.opts.URL, nil)

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}

	if err != nil {
		a.logger.Warn("connect failed", "url", a.opts.URL, "error", err)
		gaveUp := a.scheduleRetryLocked(gen)
		a.mu.Unlock()
		if gaveUp {
			a.notifyFailed()
		}
		return
	}

	a.conn = ws
	a.state = Connected
	a.attempts = 0
	a.backoff.Reset()
	a.mu.Unlock()

	a.logger.Info("connected", "url", a.opts.URL)
	go a.readLoop(gen, ws)
}

func (a *Agent) readLoop(gen int, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		a.dispatch(gen, data)
	}
	ws.Close()

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.conn = nil
	a.clientID = ""
	gaveUp := a.scheduleRetryLocked(gen)
	a.mu.Unlock()

	if gaveUp {
		a.notifyFailed()
	}
}

// scheduleRetryLocked arms the reconnect timer for the current delay and
// doubles it, or reports that the ceiling was hit. Caller holds a.mu.
func (a *Agent) scheduleRetryLocked(gen int) (gaveUp bool) {
	if a.attempts >= a.opts.MaxReconnectAttempts {
		a.state = GaveUp
		a.logger.Error("reconnect attempts exhausted", "attempts", a.attempts)
		return true
	}

	a.attempts++
	delay := a.backoff.Duration()
	a.state = Disconnected
	a.logger.Info("scheduling reconnect", "attempt", a.attempts, "delay", delay)

	a.retry = time.AfterFunc(delay, func() {
		a.mu.Lock()
		if gen != a.gen {
			a.mu.Unlock()
			return
		}
		a.retry = nil
		a.state = Connecting
		a.mu.Unlock()
		a.dial(gen)
	})
	return false
}

// cancelRetryLocked stops a pending retry timer. Caller holds a.mu; a timer
// callback that already fired is neutralized by the generation bump.
func (a *Agent) cancelRetryLocked() {
	if a.retry != nil {
		a.retry.Stop()
		a.retry = nil
	}
}

func (a *Agent) notifyFailed() {
	a.handlersMu.RLock()
	fns := make([]func(), len(a.failed))
	copy(fns, a.failed)
	a.handlersMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// dispatch decodes a frame read from the transport of generation gen and
// runs its handlers. Frames from a superseded transport are dropped so a
// late read cannot reach handlers or clobber the client id after a new
// Connect.
func (a *Agent) dispatch(gen int, data []byte) {
	f, err := protocol.DecodeOutbound(data)
	if err != nil {
		a.logger.Warn("undecodable frame", "error", err)
		return
	}

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	if ack, ok := f.(protocol.Connection); ok && ack.Status == protocol.StatusConnected {
		a.clientID = ack.ClientID
	}
	a.mu.Unlock()

	a.handlersMu.RLock()
	regs := make([]registration, len(a.handlers[f.Kind()]))
	copy(regs, a.handlers[f.Kind()])
	a.handlersMu.RUnlock()

	for _, reg := range regs {
		reg.fn(f)
	}
}
