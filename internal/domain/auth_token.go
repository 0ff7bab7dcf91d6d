package domain

import "errors"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrUnauthorized is returned when a valid token does not grant access to the requested identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "bearer"

// AuthToken represents the verified claims of an authentication token.
type AuthToken struct {
	Username  string `json:"username"`  // Identifier of the authenticated user
	IssuedAt  int64  `json:"issuedAt"`  // Unix timestamp when the token was created
	ExpiresAt int64  `json:"expiresAt"` // Unix timestamp when the token expires
}

// AuthTokenResponse is returned by the login endpoint.
type AuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterResponse is returned by the registration endpoint.
type RegisterResponse struct {
	Message     string `json:"message"`
	UserID      int64  `json:"user_id"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse carries a user-facing error description.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SignedToken is an encoded token together with the claims it carries.
type SignedToken struct {
	Encoded string
	Claims  AuthToken
}

// Handshake is the first frame a realtime client sends after connecting.
type Handshake struct {
	Token string `json:"token"`
}
