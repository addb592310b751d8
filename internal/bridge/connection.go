package bridge

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/deathmotion/antihealthindicator/internal/session"
)

const (
	sendChSize = 1024
	writeWait  = 10 * time.Second
)

var errSendQueueFull = errors.New("send queue full")

// connection owns the write side of one viewer's websocket. A single
// goroutine writes so forwarded and injected packets never interleave
// mid-frame.
type connection struct {
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once

	logger *slog.Logger
}

func newConnection(conn *ws.Conn, logger *slog.Logger) *connection {
	c := &connection{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go c.writeLoop()
	return c
}

// writeLoop drains sendCh and writes messages to the WebSocket. It returns
// on error or shutdown.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.close()
				return
			}
		}
	}
}

// push queues data, waiting for room. Forwarded packets go through push so
// none is lost. It reports false once the connection is closed.
func (c *connection) push(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	case <-c.done:
		return false
	}
}

// offer queues data without waiting.
func (c *connection) offer(data []byte) error {
	select {
	case <-c.done:
		return session.ErrClosed
	default:
	}
	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return session.ErrClosed
	default:
		return errSendQueueFull
	}
}

func (c *connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// close sends a close frame and shuts the socket down. Safe to call more
// than once.
func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
	})
}
