package chatsvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/svc/chatsvc"
)

const waitTimeout = 5 * time.Second

// fakeConn is a channel backed chatsvc.Conn.
//
// Tests push client frames into fromClient and pop server frames from
// fromServer. Closing fromClient simulates the client going away.
type fakeConn struct {
	fromClient chan string
	fromServer chan string
	closed     chan struct{}

	mu          sync.Mutex
	deadline    time.Time
	closeCode   int
	closeReason string
	closeOnce   sync.Once
}

var _ chatsvc.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	//nolint:exhaustruct
	return &fakeConn{
		fromClient: make(chan string),
		fromServer: make(chan string, 16),
		closed:     make(chan struct{}),
	}
}

func (c *fakeConn) Recv() (string, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time

	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case msg, ok := <-c.fromClient:
		if !ok {
			return "", chatsvc.ErrConnClosed
		}

		return msg, nil
	case <-c.closed:
		return "", chatsvc.ErrConnClosed
	case <-timeout:
		return "", chatsvc.ErrReadTimeout
	}
}

func (c *fakeConn) Send(text string) error {
	select {
	case <-c.closed:
		return chatsvc.ErrConnClosed
	default:
	}

	select {
	case c.fromServer <- text:
		return nil
	case <-c.closed:
		return chatsvc.ErrConnClosed
	}
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline = t

	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.mu.Unlock()

		close(c.closed)
	})

	return nil
}

func (c *fakeConn) closeStatus() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeCode, c.closeReason
}

// push delivers a client frame or fails the test if the session stopped reading.
func (c *fakeConn) push(t *testing.T, msg string) {
	t.Helper()

	select {
	case c.fromClient <- msg:
	case <-time.After(waitTimeout):
		t.Fatalf("session did not read %q", msg)
	}
}

// reply waits for the next server frame.
func (c *fakeConn) reply(t *testing.T) string {
	t.Helper()

	select {
	case msg := <-c.fromServer:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("no reply from session")

		return ""
	}
}

func defaultSessionConfig() chatsvc.SessionConfig {
	return chatsvc.SessionConfig{
		HandshakeTimeout: time.Second,
		MaxMessageSize:   4096,
		WriteTimeout:     time.Second,
	}
}

// startSession runs a session for claimed in the background and returns its result channel.
func startSession(
	ctx context.Context,
	f *fixture,
	sender chatsvc.MessageSender,
	conn *fakeConn,
	claimed string,
	cfg chatsvc.SessionConfig,
) (*chatsvc.Session, <-chan error) {
	session := chatsvc.NewSession(conn, claimed, f.authn, sender, cfg)
	done := make(chan error, 1)

	go func() {
		done <- session.Run(ctx)
	}()

	return session, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("session did not end")

		return nil
	}
}

func handshake(token string) string {
	return `{"token":"` + token + `"}`
}

func TestSession_EchoAndClose(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	ctx := context.Background()
	conn := newFakeConn()

	session, done := startSession(ctx, f, f.chat, conn, "alice", defaultSessionConfig())
	assert.NotEmpty(t, session.ID())

	conn.push(t, handshake(f.tokens["alice"]))
	conn.push(t, "hello")

	assert.Equal(t, "alice: hello", conn.reply(t))
	assert.Equal(t, chatsvc.StateActive, session.State())

	history, err := f.chat.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, f.alice.ID, history[0].SenderID)
	assert.Equal(t, f.alice.ID, history[0].ReceiverID)

	conn.push(t, "close")

	require.NoError(t, wait(t, done))
	assert.Equal(t, chatsvc.StateClosed, session.State())

	code, _ := conn.closeStatus()
	assert.Equal(t, chatsvc.CloseNormal, code)

	history, err = f.chat.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSession_MessagesInOrder(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	ctx := context.Background()
	conn := newFakeConn()

	_, done := startSession(ctx, f, f.chat, conn, "alice", defaultSessionConfig())

	conn.push(t, handshake(f.tokens["alice"]))

	messages := []string{"one", "two", "", "close please", "three"}
	for _, msg := range messages {
		conn.push(t, msg)
		assert.Equal(t, "alice: "+msg, conn.reply(t))
	}

	conn.push(t, "close")
	require.NoError(t, wait(t, done))

	history, err := f.chat.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, len(messages))

	for i, msg := range messages {
		assert.Equal(t, msg, history[i].Content)
	}
}

func TestSession_HandshakeRejected(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)

	tests := []struct {
		name    string
		claimed string
		frame   string
		wantErr error
	}{
		{
			name:    "token of another user",
			claimed: "alice",
			frame:   handshake(f.tokens["bob"]),
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "invalid token",
			claimed: "alice",
			frame:   handshake("forged"),
			wantErr: domain.ErrInvalidAuthToken,
		},
		{
			name:    "missing token",
			claimed: "alice",
			frame:   `{}`,
			wantErr: domain.ErrNoAuthToken,
		},
		{
			name:    "plain text",
			claimed: "alice",
			frame:   "hello",
			wantErr: domain.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn := newFakeConn()
			session, done := startSession(context.Background(), f, f.chat, conn, tt.claimed, defaultSessionConfig())

			conn.push(t, tt.frame)

			err := wait(t, done)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, chatsvc.StateClosed, session.State())

			code, reason := conn.closeStatus()
			assert.Equal(t, chatsvc.ClosePolicyViolation, code)
			assert.NotContains(t, reason, "bob")
		})
	}

	history, err := f.chat.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSession_HandshakeTimeout(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	conn := newFakeConn()

	cfg := defaultSessionConfig()
	cfg.HandshakeTimeout = 50 * time.Millisecond

	session, done := startSession(context.Background(), f, f.chat, conn, "alice", cfg)

	err := wait(t, done)
	require.ErrorIs(t, err, chatsvc.ErrReadTimeout)
	assert.Equal(t, chatsvc.StateClosed, session.State())

	code, _ := conn.closeStatus()
	assert.Equal(t, chatsvc.ClosePolicyViolation, code)
}

func TestSession_StorageFailureKeepsSessionOpen(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	ctx := context.Background()
	conn := newFakeConn()

	// The handshake lookup succeeds, the first message insert fails.
	flaky := &flakyStore{Store: f.store}
	chat := chatsvc.NewChatService(flaky)

	session, done := startSession(ctx, f, chat, conn, "alice", defaultSessionConfig())

	conn.push(t, handshake(f.tokens["alice"]))

	flaky.failures.Store(1)
	conn.push(t, "lost")
	assert.Equal(t, chatsvc.MsgSendFailed, conn.reply(t))
	assert.Equal(t, chatsvc.StateActive, session.State())

	conn.push(t, "kept")
	assert.Equal(t, "alice: kept", conn.reply(t))

	conn.push(t, "close")
	require.NoError(t, wait(t, done))

	history, err := f.chat.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "kept", history[0].Content)
}

func TestSession_ClientDisconnect(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	conn := newFakeConn()

	session, done := startSession(context.Background(), f, f.chat, conn, "alice", defaultSessionConfig())

	conn.push(t, handshake(f.tokens["alice"]))
	close(conn.fromClient)

	require.NoError(t, wait(t, done))
	assert.Equal(t, chatsvc.StateClosed, session.State())
}

func TestSession_Shutdown(t *testing.T) {
	t.Parallel()

	f := setupFixture(t)
	conn := newFakeConn()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, done := startSession(ctx, f, f.chat, conn, "alice", defaultSessionConfig())

	conn.push(t, handshake(f.tokens["alice"]))
	conn.push(t, "hello")
	assert.Equal(t, "alice: hello", conn.reply(t))

	cancel()

	require.NoError(t, wait(t, done))
	assert.Equal(t, chatsvc.StateClosed, session.State())

	code, _ := conn.closeStatus()
	assert.Equal(t, chatsvc.CloseGoingAway, code)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "connecting", chatsvc.StateConnecting.String())
	assert.Equal(t, "authenticating", chatsvc.StateAuthenticating.String())
	assert.Equal(t, "active", chatsvc.StateActive.String())
	assert.Equal(t, "closed", chatsvc.StateClosed.String())
	assert.Equal(t, "State(9)", chatsvc.State(9).String())
}
