package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"prepforge/interview/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Connection is one authenticated WebSocket. Outbound frames go through a bounded
// queue drained by a single writer, so frames queued by one sender reach the peer
// in the order they were queued.
type Connection struct {
	ID        string
	Principal models.Principal

	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	hook func([]byte)
}

func NewConnection(id string, principal models.Principal, ws *websocket.Conn, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Connection{
		ID:        id,
		Principal: principal,
		ws:        ws,
		send:      make(chan []byte, bufferSize),
		done:      make(chan struct{}),
	}
}

func (c *Connection) UserID() string { return c.Principal.UserID }

// SetSendHook replaces the WebSocket sender (used in tests).
func (c *Connection) SetSendHook(fn func([]byte)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send queues payload without blocking. A full queue means the client stopped reading;
// the connection is closed and the read loop turns that into a disconnect.
func (c *Connection) Send(payload []byte) error {
	c.mu.Lock()
	hook := c.hook
	if hook != nil {
		defer c.mu.Unlock()
		select {
		case <-c.done:
			return ErrTransportDropped
		default:
		}
		hook(payload)
		return nil
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return ErrTransportDropped
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrTransportDropped
	default:
		c.Close()
		return ErrTransportDropped
	}
}

// Close marks the connection closed without blocking; the write loop sends the close
// frame and releases the socket. Safe to call more than once and under registry locks.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// WriteLoop drains the send queue and pings the peer until the connection closes.
// It owns the socket and closes it on exit, which also unblocks ReadLoop.
func (c *Connection) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// ReadLoop delivers inbound text frames to handle until the peer goes away or stops
// answering pings. It returns the terminating error.
func (c *Connection) ReadLoop(handle func([]byte)) error {
	c.ws.SetReadLimit(models.MaxFrameBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

func (c *Connection) write(msgType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(msgType, payload)
}
