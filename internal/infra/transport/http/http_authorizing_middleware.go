package http

import (
	"net/http"

	"github.com/Bars-377/web-chat/internal/domain"
	context_ "github.com/Bars-377/web-chat/internal/infra/context"
	"github.com/Bars-377/web-chat/internal/infra/logging"
)

// TokenVerifier checks an encoded token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (domain.AuthToken, error)
}

// TokenSource extracts an encoded token from a request.
type TokenSource func(r *http.Request) (string, bool)

// CookieToken reads the token from the named cookie.
func CookieToken(name string) TokenSource {
	return func(r *http.Request) (string, bool) {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			return "", false
		}

		return cookie.Value, true
	}
}

// AnyToken tries each source in order.
func AnyToken(sources ...TokenSource) TokenSource {
	return func(r *http.Request) (string, bool) {
		for _, source := range sources {
			if token, ok := source(r); ok {
				return token, true
			}
		}

		return "", false
	}
}

// Unauthorized responds with 401 and a JSON error body.
func Unauthorized() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
	})
}

// AuthorizingMiddleware creates middleware that validates authentication tokens.
// Requests without a valid token are passed to deny instead of next.
// On successful validation, the username is added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	verifier TokenVerifier,
	source TokenSource,
	deny http.Handler,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := source(r)
		if !ok {
			log.DebugContext(r.Context(), "no token provided")
			deny.ServeHTTP(w, r)

			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.WarnContext(r.Context(), "validate token failed", "error", err)
			deny.ServeHTTP(w, r)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithUsername(r.Context(), claims.Username)))
	})
}
