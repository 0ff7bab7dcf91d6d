package chatsvc

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrConnClosed is returned by Conn.Recv once the peer went away.
	ErrConnClosed = errors.New("connection closed")
	// ErrReadTimeout is returned by Conn.Recv when the read deadline passed.
	ErrReadTimeout = errors.New("read timeout")
)

// Close codes sent to the peer.
const (
	CloseNormal          = websocket.CloseNormalClosure
	CloseGoingAway       = websocket.CloseGoingAway
	ClosePolicyViolation = websocket.ClosePolicyViolation
)

// Conn is a message oriented, full duplex connection to one chat client.
// Recv and Send are called from a single goroutine; Close may be called from
// any goroutine and more than once.
type Conn interface {
	// Recv blocks until the next text frame arrives.
	Recv() (string, error)

	// Send writes one text frame.
	Send(text string) error

	// SetReadDeadline bounds the next Recv. The zero time clears the deadline.
	SetReadDeadline(t time.Time) error

	// Close sends a close frame with code and reason and releases the connection.
	Close(code int, reason string) error
}

// wsConn adapts a gorilla WebSocket connection to Conn.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

var _ Conn = (*wsConn)(nil)

// NewWSConn wraps an upgraded WebSocket connection. Frames larger than
// cfg.MaxMessageSize end the connection.
func NewWSConn(conn *websocket.Conn, cfg SessionConfig) Conn {
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	// Deadlines left over from the HTTP server survive the hijack.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	return &wsConn{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Recv implements Conn.Recv. Non-text frames are skipped.
func (c *wsConn) Recv() (string, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return "", errors.Join(ErrReadTimeout, err)
			}

			return "", errors.Join(ErrConnClosed, err)
		}

		if typ == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// Send implements Conn.Send.
func (c *wsConn) Send(text string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.Join(ErrConnClosed, err)
		}
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return errors.Join(ErrConnClosed, err)
	}

	return nil
}

// SetReadDeadline implements Conn.SetReadDeadline.
func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close implements Conn.Close.
func (c *wsConn) Close(code int, reason string) (err error) {
	c.closeOnce.Do(func() {
		timeout := c.writeTimeout
		if timeout <= 0 {
			timeout = time.Second
		}

		// The peer may already be gone; the close frame is best effort.
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(timeout),
		)

		err = c.conn.Close()
	})

	return err
}
