package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	readTimeout    = 60 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 128
)

var (
	// ErrConnectionClosed is returned when sending on a closed connection
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBufferFull is returned when a slow client's send buffer overflows
	ErrBufferFull = errors.New("connection buffer exceeded")
)

// Connection wraps a websocket owned by one identity and serializes outbound
// writes through a buffered channel. It is safe for concurrent use.
type Connection struct {
	ID         string
	IdentityID int64

	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

// NewConnection constructs a Connection for the given identity
func NewConnection(identityID int64, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		ws:         ws,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseTryAgainLater, "send buffer full")
		return ErrBufferFull
	}
}

// Done is closed once the connection has been closed
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close terminates the connection and stops the write loop
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
