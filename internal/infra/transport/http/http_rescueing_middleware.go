package http

import (
	"net/http"
	"runtime/debug"

	"github.com/Bars-377/web-chat/internal/infra/logging"
)

// RescueingMiddleware recovers panics of next, logs them with the stack and
// answers 500. Nothing is written once the connection was hijacked for a
// realtime session.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}

			log.ErrorContext(r.Context(), "request panic",
				logging.Group("http", "uri", r.RequestURI, "method", r.Method),
				logging.Group("error", "panic", p, "stack", string(debug.Stack())),
			)

			if lw, ok := w.(*LoggingMiddlewareResponseWriter); ok && lw.Hijacked {
				return
			}

			WriteError(w, http.StatusInternalServerError, "")
		}()

		next.ServeHTTP(w, r)
	})
}
