// Package pagesvc serves the browser front end of the chat relay.
package pagesvc

import (
	"net/http"
	"path/filepath"

	"github.com/Bars-377/web-chat/internal/infra/logging"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
)

const (
	pageIndex    = "index.html"
	pageLogin    = "auth.html"
	pageRegister = "reg.html"
)

// HTTPTransportConfig contains configuration parameters for the page routes.
type HTTPTransportConfig struct {
	// TemplatesDir holds index.html, auth.html and reg.html
	TemplatesDir string `env:"TEMPLATES_DIR" default:"templates"`

	// StaticDir is served below /static/
	StaticDir string `env:"STATIC_DIR" default:"static"`
}

// Gate lets a request through to next only if it carries a valid session
// cookie, and redirects it to loginURL otherwise.
type Gate interface {
	PageGate(next http.Handler, loginURL string) http.Handler
}

// HTTPTransport serves the HTML pages and static assets.
type HTTPTransport struct {
	gate Gate
	log  logging.Logger
	cfg  HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(gate Gate, cfg HTTPTransportConfig) *HTTPTransport {
	return &HTTPTransport{
		gate: gate,
		log:  logging.GetLogger("svc.pagesvc.http_transport"),
		cfg:  cfg,
	}
}

// RegisterRoutes sets up routes for the pages:
// - GET /: The chat page, for logged in users only
// - GET /auth.html: The login page
// - GET /reg.html: The registration page
// - GET /static/: Static assets.
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /{$}", ht.gate.PageGate(ht.page(pageIndex), "/"+pageLogin))
	mux.Handle("GET /"+pageLogin, ht.page(pageLogin))
	mux.Handle("GET /"+pageRegister, ht.page(pageRegister))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ht.cfg.StaticDir))))
}

// page serves one file from the templates directory.
func (ht *HTTPTransport) page(name string) http.Handler {
	path := filepath.Join(ht.cfg.TemplatesDir, name)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ht.log.DebugContext(r.Context(), "serve page", "page", name)
		http.ServeFile(w, r, path)
	})
}
