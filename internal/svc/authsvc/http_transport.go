package authsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
)

// Client facing messages; error details are only logged.
const (
	msgUserCreated        = "user created"
	msgInvalidCredentials = "Invalid username or password"
)

// HTTPTransportConfig contains configuration parameters for the auth HTTP endpoints.
type HTTPTransportConfig struct {
	// CookieName is the name of the cookie carrying the access token
	CookieName string `env:"COOKIE_NAME" default:"access_token"`

	// CookieSecure restricts the token cookie to HTTPS
	CookieSecure bool `env:"COOKIE_SECURE" default:"false"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for user registration, login, and token validation.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(authSvc *AuthService, cfg HTTPTransportConfig) *HTTPTransport {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	return &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
	}
}

// RegisterRoutes sets up routes for the auth service endpoints:
// - POST /register/: Register a new user
// - POST /token/: Login and get an auth token
// - GET /token/validate: Validate a bearer token.
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /register/", ht.HandleRegister)
	mux.HandleFunc("POST /token/", ht.HandleLogin)
	mux.HandleFunc("GET /token/validate", ht.HandleValidate)
}

func (ht *HTTPTransport) setTokenCookie(w http.ResponseWriter, token domain.SignedToken) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     ht.cfg.CookieName,
		Value:    token.Encoded,
		Path:     "/",
		Expires:  time.Unix(token.Claims.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   ht.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleRegister processes user registration requests.
// Expects a JSON body with username, email and password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var req RegisterRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "")

		return err
	}

	log = log.With(logging.Group("user", "username", req.Username))

	// Register user
	user, token, err := ht.authSvc.RegisterUser(r.Context(), req)
	if err != nil {
		var (
			conflict   *domain.ConflictError
			validation *domain.ValidationError
		)

		switch {
		case errors.As(err, &conflict):
			http_.WriteError(w, http.StatusConflict, conflict.Error())
		case errors.As(err, &validation):
			http_.WriteError(w, http.StatusBadRequest, validation.Error())
		default:
			http_.WriteError(w, http.StatusInternalServerError, "")
		}

		return fmt.Errorf("register user: %w", err)
	}

	ht.setTokenCookie(w, token)

	return http_.WriteJSON(w, http.StatusCreated, domain.RegisterResponse{
		Message:     msgUserCreated,
		UserID:      user.ID,
		AccessToken: token.Encoded,
		TokenType:   domain.TokenTypeBearer,
	})
}

// HandleLogin processes user login requests.
// Expects form parameters: username, password
// Returns an auth token on successful login, in the body and as a cookie.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	// Parse form
	if err := r.ParseForm(); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "")

		return fmt.Errorf("parse form: %w", err)
	}

	req := LoginRequest{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	log = log.With(logging.Group("user", "username", req.Username))

	// Login user
	token, err := ht.authSvc.Login(r.Context(), req)
	if err != nil {
		var validation *domain.ValidationError

		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			http_.WriteError(w, http.StatusBadRequest, msgInvalidCredentials)
		case errors.As(err, &validation):
			http_.WriteError(w, http.StatusBadRequest, validation.Error())
		default:
			http_.WriteError(w, http.StatusInternalServerError, "")
		}

		return fmt.Errorf("login user: %w", err)
	}

	ht.setTokenCookie(w, token)

	// Return token
	return http_.WriteJSON(w, http.StatusOK, domain.AuthTokenResponse{
		AccessToken: token.Encoded,
		TokenType:   domain.TokenTypeBearer,
	})
}

// HandleValidate processes token validation requests.
// Expects the token in the Authorization header with Bearer scheme.
// Returns the username associated with the token if valid.
func (ht *HTTPTransport) HandleValidate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleValidate(w, r)
}

func (ht *HTTPTransport) handleValidate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user token validation failed", "error", err)
		} else {
			log.DebugContext(ctx, "user token validated")
		}
	}(r.Context())

	tokenString, ok := http_.BearerToken(r)
	if !ok {
		http_.WriteError(w, http.StatusBadRequest, "")

		return domain.ErrNoAuthToken
	}

	// Validate token
	token, err := ht.authSvc.ValidateToken(r.Context(), tokenString)
	if err != nil {
		http_.WriteError(w, http.StatusUnauthorized, "")

		return fmt.Errorf("validate token: %w", err)
	}

	// Return username
	if _, err := w.Write([]byte(token.Username)); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
