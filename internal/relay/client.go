// client.go
// The read loop listens to messages from the browser and hands them to the
// dispatcher in arrival order. The write goroutine drains the client's send
// channel back to the browser. Separating read/write avoids head-of-line
// blocking when a browser is slow.

package relay

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotOpen        = errors.New("connection is not open")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	socket *websocket.Conn
	send   chan []byte
	done   chan struct{}
	state  atomic.Int32
	once   sync.Once
	opts   Options
	log    logrus.FieldLogger
}

func newClient(socket *websocket.Conn, opts Options, log logrus.FieldLogger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		socket: socket,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
		opts:   opts,
		log:    log.WithField("client_id", id),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) State() State { return State(c.state.Load()) }

// advance moves the client forward to s. It reports false when the client is
// already at or past s.
func (c *Client) advance(s State) bool {
	for {
		cur := c.state.Load()
		if cur >= int32(s) {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

// Send queues msg for the write goroutine without blocking.
func (c *Client) Send(msg []byte) error {
	if c.State() != StateOpen {
		return ErrNotOpen
	}
	select {
	case <-c.done:
		return ErrNotOpen
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close asks the write goroutine to send a close frame and drop the socket.
// The read loop then fails and the handler unregisters the client.
func (c *Client) Close() {
	c.once.Do(func() {
		c.advance(StateClosing)
		close(c.done)
	})
}

func (c *Client) read(onMessage func([]byte)) error {
	c.socket.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.socket.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		return err
	}
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			return err
		}
		onMessage(message)
	}
}

func (c *Client) write() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.writeFrame(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Error("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("Ping failed")
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.writeFrame(websocket.CloseMessage, msg); err != nil {
				c.log.WithError(err).Debug("Write close message failed")
			}
			return
		}
	}
}

func (c *Client) writeFrame(messageType int, data []byte) error {
	if err := c.socket.SetWriteDeadline(time.Now().Add(c.opts.SendTimeout)); err != nil {
		return err
	}
	return c.socket.WriteMessage(messageType, data)
}

// isTransportError reports whether a read error is an abnormal termination
// rather than a regular close handshake or a socket we closed ourselves.
func isTransportError(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return websocket.IsUnexpectedCloseError(closeErr,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
		)
	}
	return !errors.Is(err, net.ErrClosed)
}
