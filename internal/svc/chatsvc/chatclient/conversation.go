package chatclient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Bars-377/web-chat/internal/svc/chatsvc"
)

// ErrClosed is returned by Receive once the relay closed the session.
var ErrClosed = errors.New("conversation closed")

// CloseError carries the close code and reason sent by the relay.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("closed by server: %d %s", e.Code, e.Reason)
}

func (e *CloseError) Unwrap() error {
	return ErrClosed
}

// Conversation is an authenticated realtime session with the relay.
// Send is safe for concurrent use; Receive must be called from one goroutine.
type Conversation struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes one chat message.
func (c *Conversation) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Receive blocks until the relay sends the next text frame. A close frame
// is reported as a *CloseError.
func (c *Conversation) Receive() (string, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return "", &CloseError{Code: closeErr.Code, Reason: closeErr.Text}
			}

			return "", fmt.Errorf("read: %w", err)
		}

		if typ == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// Leave asks the relay to end the session.
func (c *Conversation) Leave() error {
	return c.Send(chatsvc.CloseCommand)
}

// Close releases the underlying connection without notifying the relay.
func (c *Conversation) Close() error {
	return c.conn.Close()
}
