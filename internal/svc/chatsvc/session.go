package chatsvc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Bars-377/web-chat/internal/domain"
	context_ "github.com/Bars-377/web-chat/internal/infra/context"
	"github.com/Bars-377/web-chat/internal/infra/logging"
)

const (
	// CloseCommand is the text frame a client sends to end its session.
	CloseCommand = "close"

	// MsgSendFailed is sent instead of the echo when a message could not be stored.
	MsgSendFailed = "Error while sending message. Please try again."

	closeReasonAuthFailed = "authentication failed"
	closeReasonShutdown   = "server shutting down"
)

// SessionConfig contains the limits applied to every realtime connection.
type SessionConfig struct {
	// HandshakeTimeout bounds the wait for the token frame; 0 disables the limit
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" default:"10s"`

	// MaxMessageSize is the largest accepted frame in bytes
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" default:"4096"`

	// WriteTimeout bounds each outbound frame
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
}

// State is the lifecycle position of a Session.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// HandshakeAuthenticator resolves the user of a realtime connection from its
// first frame.
type HandshakeAuthenticator interface {
	AuthenticateHandshake(ctx context.Context, claimed string, payload []byte) (domain.User, error)
}

// MessageSender stores a message on behalf of user.
type MessageSender interface {
	Send(ctx context.Context, user domain.User, content string) (*domain.Message, error)
}

// Session drives one realtime connection: a single authentication attempt
// followed by a receive, store and echo loop.
type Session struct {
	id      string
	claimed string
	conn    Conn
	auth    HandshakeAuthenticator
	sender  MessageSender
	cfg     SessionConfig
	log     logging.Logger

	state     atomic.Int32
	closeOnce sync.Once
}

// NewSession creates a session for conn whose URL claimed the identity claimed.
func NewSession(
	conn Conn,
	claimed string,
	auth HandshakeAuthenticator,
	sender MessageSender,
	cfg SessionConfig,
) *Session {
	//nolint:exhaustruct
	return &Session{
		id:      uuid.NewString(),
		claimed: claimed,
		conn:    conn,
		auth:    auth,
		sender:  sender,
		cfg:     cfg,
		log:     logging.GetLogger("svc.chatsvc.session"),
	}
}

// ID returns the unique id of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// close moves the session to StateClosed and closes the connection once.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		_ = s.conn.Close(code, reason)
	})
}

// Run drives the session until the client leaves, sends CloseCommand, fails
// authentication or ctx is cancelled. A rejected handshake is returned as an
// error; every other ending returns nil.
func (s *Session) Run(ctx context.Context) (err error) {
	ctx = context_.WithSessionID(ctx, s.id)
	log := s.log.With(logging.Group("user", "claimed", s.claimed))

	log.DebugContext(ctx, "session opened")

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "session rejected", "error", err)
		} else {
			log.InfoContext(ctx, "session closed")
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		s.close(CloseGoingAway, closeReasonShutdown)
	})
	defer stop()

	user, err := s.authenticate(ctx)
	if err != nil {
		s.close(ClosePolicyViolation, closeReasonAuthFailed)

		return fmt.Errorf("handshake: %w", err)
	}

	ctx = context_.WithUsername(ctx, user.Username)
	s.setState(StateActive)

	log.InfoContext(ctx, "session authenticated")

	s.serve(ctx, user)

	return nil
}

func (s *Session) authenticate(ctx context.Context) (domain.User, error) {
	s.setState(StateAuthenticating)

	var deadline time.Time
	if s.cfg.HandshakeTimeout > 0 {
		deadline = time.Now().Add(s.cfg.HandshakeTimeout)
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return domain.User{}, fmt.Errorf("set read deadline: %w", err)
	}

	payload, err := s.conn.Recv()
	if err != nil {
		return domain.User{}, fmt.Errorf("read handshake: %w", err)
	}

	user, err := s.auth.AuthenticateHandshake(ctx, s.claimed, []byte(payload))
	if err != nil {
		return domain.User{}, err
	}

	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return domain.User{}, fmt.Errorf("clear read deadline: %w", err)
	}

	return user, nil
}

func (s *Session) serve(ctx context.Context, user domain.User) {
	for {
		content, err := s.conn.Recv()
		if err != nil {
			if ctx.Err() == nil {
				s.log.InfoContext(ctx, "client disconnected", "error", err)
			}

			s.close(CloseNormal, "")

			return
		}

		if content == CloseCommand {
			s.log.DebugContext(ctx, "close requested")
			s.close(CloseNormal, "")

			return
		}

		reply := MsgSendFailed

		msg, err := s.sender.Send(ctx, user, content)
		if err != nil {
			s.log.ErrorContext(ctx, "store message failed", "error", err)
		} else {
			reply = msg.EchoText()
		}

		if s.State() == StateClosed {
			return
		}

		if err := s.conn.Send(reply); err != nil {
			if ctx.Err() == nil {
				s.log.InfoContext(ctx, "send reply failed", "error", err)
			}

			s.close(CloseNormal, "")

			return
		}
	}
}
