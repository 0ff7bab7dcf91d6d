package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
	"github.com/Bars-377/web-chat/internal/repo/store"
)

// DefaultCookieName is the cookie carrying the access token.
const DefaultCookieName = "access_token"

// SessionAuthenticator applies one trust rule to two call sites: page loads
// carrying a token cookie and the handshake of a realtime connection.
type SessionAuthenticator struct {
	tokens     TokenCodec
	store      store.Store
	cookieName string
	log        logging.Logger
}

// NewSessionAuthenticator creates a SessionAuthenticator reading cookies named cookieName.
func NewSessionAuthenticator(tokens TokenCodec, s store.Store, cookieName string) *SessionAuthenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &SessionAuthenticator{
		tokens:     tokens,
		store:      s,
		cookieName: cookieName,
		log:        logging.GetLogger("svc.authsvc.session_authenticator"),
	}
}

// CookieName returns the name of the cookie holding the access token.
func (a *SessionAuthenticator) CookieName() string {
	return a.cookieName
}

// AuthenticateRequest reports whether r carries a valid token cookie.
func (a *SessionAuthenticator) AuthenticateRequest(r *http.Request) (domain.AuthToken, bool) {
	encoded, ok := http_.CookieToken(a.cookieName)(r)
	if !ok {
		return domain.AuthToken{}, false
	}

	token, err := a.tokens.Verify(encoded)
	if err != nil {
		a.log.InfoContext(r.Context(), "invalid token cookie", "error", err)

		return domain.AuthToken{}, false
	}

	return token, true
}

// PageGate wraps next so that requests without a valid token cookie are
// redirected to loginURL.
func (a *SessionAuthenticator) PageGate(next http.Handler, loginURL string) http.Handler {
	return http_.AuthorizingMiddleware(
		next,
		a.tokens,
		http_.CookieToken(a.cookieName),
		http.RedirectHandler(loginURL, http.StatusTemporaryRedirect),
		a.log,
	)
}

// AuthenticateHandshake validates the first frame of a realtime connection
// whose path claimed the identity claimed. The frame must be a JSON encoded
// domain.Handshake whose token subject equals claimed. On success the claimed
// user is loaded from the store.
func (a *SessionAuthenticator) AuthenticateHandshake(
	ctx context.Context,
	claimed string,
	payload []byte,
) (_ domain.User, err error) {
	log := a.log.With(logging.Group("user", "claimed", claimed))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "handshake rejected", "error", err)
		} else {
			log.DebugContext(ctx, "handshake accepted")
		}
	}()

	var handshake domain.Handshake
	if err := json.Unmarshal(payload, &handshake); err != nil {
		return domain.User{}, errors.Join(domain.ErrProtocol, fmt.Errorf("decode handshake: %w", err))
	}

	if handshake.Token == "" {
		return domain.User{}, domain.ErrNoAuthToken
	}

	token, err := a.tokens.Verify(handshake.Token)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify token: %w", err)
	}

	if token.Username != claimed {
		return domain.User{}, fmt.Errorf("%w: token subject %q", domain.ErrUnauthorized, token.Username)
	}

	var (
		user  *domain.User
		found bool
	)

	err = store.WithReadTx(ctx, a.store, func(tx store.Tx) (err error) {
		user, found, err = tx.Users().FindByUsername(ctx, claimed)

		return err
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	} else if !found {
		return domain.User{}, domain.ErrUserNotFound
	}

	return *user, nil
}

// RequireToken wraps next so that requests must carry a valid token, either as
// a bearer header or in the token cookie. Other requests get 401.
func (a *SessionAuthenticator) RequireToken(next http.Handler) http.Handler {
	return http_.AuthorizingMiddleware(
		next,
		a.tokens,
		http_.AnyToken(http_.BearerToken, http_.CookieToken(a.cookieName)),
		http_.Unauthorized(),
		a.log,
	)
}
