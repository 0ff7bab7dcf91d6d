package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Bars-377/web-chat/internal/domain"
	context_ "github.com/Bars-377/web-chat/internal/infra/context"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
)

const AuthorizationHeader = "Authorization"

// StatusError is returned when the relay answers with an unexpected status code.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}

	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Detail)
}

// HTTPClientConfig holds configuration for the chat client.
type HTTPClientConfig struct {
	// ServerURL is the base URL of the relay
	ServerURL string `env:"SERVER_URL" default:"http://localhost:8080"`
}

// HTTPClient implements ChatClient with HTTP requests and a gorilla WebSocket dialer.
type HTTPClient struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	baseURL    *url.URL
	log        logging.Logger
}

var _ ChatClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, http.DefaultClient will be used.
func NewHTTPClient(cfg HTTPClientConfig, httpClient *http.Client) (*HTTPClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL, err := url.Parse(strings.TrimSuffix(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}

	return &HTTPClient{
		httpClient: httpClient,
		dialer:     websocket.DefaultDialer,
		baseURL:    baseURL,
		log:        logging.GetLogger("svc.chatsvc.chatclient.http_client"),
	}, nil
}

func (c *HTTPClient) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *HTTPClient) do(req *http.Request, wantStatus int, dst any) error {
	if traceID, ok := context_.TraceIDFromContext(req.Context()); ok {
		req.Header.Set(http_.TraceIDHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var body domain.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)

		return &StatusError{Code: resp.StatusCode, Detail: body.Detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Register implements ChatClient.Register.
func (c *HTTPClient) Register(
	ctx context.Context,
	username, email, password string,
) (resp domain.RegisterResponse, err error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return resp, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/register/"), bytes.NewReader(body))
	if err != nil {
		return resp, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	err = c.do(req, http.StatusCreated, &resp)

	return resp, err
}

// Login implements ChatClient.Login.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (resp domain.AuthTokenResponse, err error) {
	form := url.Values{"username": {username}, "password": {password}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/token/"), strings.NewReader(form.Encode()))
	if err != nil {
		return resp, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	err = c.do(req, http.StatusOK, &resp)

	return resp, err
}

// History implements ChatClient.History.
func (c *HTTPClient) History(ctx context.Context, token string) (messages []domain.Message, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/history/"), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if token != "" {
		req.Header.Set(AuthorizationHeader, "Bearer "+token)
	}

	err = c.do(req, http.StatusOK, &messages)

	return messages, err
}

// Connect implements ChatClient.Connect.
func (c *HTTPClient) Connect(ctx context.Context, username, token string) (*Conversation, error) {
	wsURL := *c.baseURL.JoinPath("/ws", username)

	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}

	header := http.Header{}
	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		header.Set(http_.TraceIDHeader, traceID)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return nil, errors.Join(&StatusError{Code: resp.StatusCode}, err)
		}

		return nil, fmt.Errorf("dial: %w", err)
	}

	if err := conn.WriteJSON(domain.Handshake{Token: token}); err != nil {
		conn.Close()

		return nil, fmt.Errorf("send handshake: %w", err)
	}

	c.log.DebugContext(ctx, "connected", "url", wsURL.String())

	//nolint:exhaustruct
	return &Conversation{conn: conn}, nil
}
