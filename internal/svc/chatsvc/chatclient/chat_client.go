// Package chatclient talks to a chat relay over HTTP and WebSocket.
package chatclient

import (
	"context"

	"github.com/Bars-377/web-chat/internal/domain"
)

// ChatClient defines the operations a chat user performs against the relay.
type ChatClient interface {
	// Register creates an account and returns its first access token.
	Register(ctx context.Context, username, email, password string) (domain.RegisterResponse, error)

	// Login exchanges credentials for an access token.
	Login(ctx context.Context, username, password string) (domain.AuthTokenResponse, error)

	// History returns every stored message. token may be empty when the
	// relay does not protect the history.
	History(ctx context.Context, token string) ([]domain.Message, error)

	// Connect opens a realtime session for username and authenticates it with token.
	Connect(ctx context.Context, username, token string) (*Conversation, error)
}
