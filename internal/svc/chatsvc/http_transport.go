package chatsvc

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Bars-377/web-chat/internal/infra/logging"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
)

const msgHistoryFailed = "Error fetching message history"

// HTTPTransportConfig contains configuration parameters for the chat endpoints.
type HTTPTransportConfig struct {
	Session SessionConfig `envPrefix:"SESSION_"`

	// HistoryRequireAuth restricts GET /history/ to clients with a valid token
	HistoryRequireAuth bool `env:"HISTORY_REQUIRE_AUTH" default:"false"`

	// AllowAnyOrigin disables the same origin check of the WebSocket upgrade
	AllowAnyOrigin bool `env:"ALLOW_ANY_ORIGIN" default:"false"`

	ReadBufferSize  int `env:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int `env:"WRITE_BUFFER_SIZE" default:"1024"`
}

// Authenticator authenticates realtime handshakes and guards token protected routes.
type Authenticator interface {
	HandshakeAuthenticator

	// RequireToken wraps next so that it only sees requests carrying a valid token.
	RequireToken(next http.Handler) http.Handler
}

// HTTPTransport exposes the chat service over HTTP and WebSocket.
type HTTPTransport struct {
	chat     *ChatService
	auth     Authenticator
	upgrader websocket.Upgrader
	log      logging.Logger
	cfg      HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(chat *ChatService, auth Authenticator, cfg HTTPTransportConfig) *HTTPTransport {
	//nolint:exhaustruct
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}

	if cfg.AllowAnyOrigin {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	return &HTTPTransport{
		chat:     chat,
		auth:     auth,
		upgrader: upgrader,
		log:      logging.GetLogger("svc.chatsvc.http_transport"),
		cfg:      cfg,
	}
}

// RegisterRoutes sets up routes for the chat endpoints:
// - GET /history/: List all stored messages
// - GET /ws/{username}: Open a realtime session.
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	history := http.Handler(http.HandlerFunc(ht.HandleHistory))
	if ht.cfg.HistoryRequireAuth {
		history = ht.auth.RequireToken(history)
	}

	mux.Handle("GET /history/", history)
	mux.HandleFunc("GET /ws/{username}", ht.HandleWebSocket)
}

// HandleHistory returns every stored message as a JSON array.
func (ht *HTTPTransport) HandleHistory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleHistory(w, r)
}

func (ht *HTTPTransport) handleHistory(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		if err != nil {
			ht.log.ErrorContext(ctx, "history request failed", "error", err)
		}
	}(r.Context())

	messages, err := ht.chat.History(r.Context())
	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, msgHistoryFailed)

		return err
	}

	return http_.WriteJSON(w, http.StatusOK, messages)
}

// HandleWebSocket upgrades the request and runs a Session on it until it ends.
// The path parameter names the user the client claims to be; the claim is
// checked against the token sent in the first frame.
func (ht *HTTPTransport) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claimed := r.PathValue("username")
	log := ht.log.With(logging.Group("user", "claimed", claimed))

	conn, err := ht.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error.
		log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)

		return
	}

	session := NewSession(NewWSConn(conn, ht.cfg.Session), claimed, ht.auth, ht.chat, ht.cfg.Session)

	// Run logs its own outcome.
	_ = session.Run(r.Context())
}
