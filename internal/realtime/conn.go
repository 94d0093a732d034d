package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/config"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
)

// Conn wraps one server-side websocket connection with buffered writes and
// keepalive. It implements Handle; the registry owns it exclusively.
type Conn struct {
	ws     *websocket.Conn
	cfg    config.RealtimeConfig
	logger *logging.Logger

	send chan []byte
	done chan struct{}

	onMessage func(data []byte)
	onClose   func()

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewConn wraps an upgraded websocket connection. onMessage receives each
// inbound text frame; onClose fires exactly once after the transport dies,
// whether by clean close or error.
func NewConn(ws *websocket.Conn, cfg config.RealtimeConfig, logger *logging.Logger, onMessage func([]byte), onClose func()) *Conn {
	return &Conn{
		ws:        ws,
		cfg:       cfg,
		logger:    logger,
		send:      make(chan []byte, cfg.SendBufferSize),
		done:      make(chan struct{}),
		onMessage: onMessage,
		onClose:   onClose,
	}
}

// Send implements Handle. It enqueues without blocking; a closed connection
// or a full buffer drops the frame and reports it.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.mu.Unlock()

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// IsOpen implements Handle
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close implements Handle. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug("websocket close", "error", err)
		}

		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}

// Start runs the read and write pumps.
func (c *Conn) Start() {
	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
}

// Wait blocks until both pumps have stopped.
func (c *Conn) Wait() {
	c.wg.Wait()
}

func (c *Conn) readPump() {
	defer c.wg.Done()
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return nil
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

func (c *Conn) writePump() {
	defer c.wg.Done()
	defer c.Close()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				return
			}

			// Drain anything already queued behind this frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				select {
				case queued := <-c.send:
					if err := c.ws.WriteMessage(websocket.TextMessage, queued); err != nil {
						c.logger.Debug("websocket write error", "error", err)
						return
					}
				default:
				}
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping error", "error", err)
				return
			}
		}
	}
}
