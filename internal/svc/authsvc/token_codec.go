package authsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Bars-377/web-chat/internal/domain"
	http_ "github.com/Bars-377/web-chat/internal/infra/transport/http"
)

var (
	// ErrUnsupportedAlgorithm is returned for signing algorithms other than HS256, HS384, HS512 and RS256.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrNoSecretKey is returned when an HMAC algorithm is configured without a secret.
	ErrNoSecretKey = errors.New("no secret key")
	// ErrInvalidTTL is returned when the configured token lifetime is not positive.
	ErrInvalidTTL = errors.New("token ttl must be positive")
)

// TokenConfig contains the immutable token signing parameters, read once at startup.
type TokenConfig struct {
	// Algorithm is the JWT signing algorithm (HS256, HS384, HS512 or RS256)
	Algorithm string `env:"ALGORITHM" default:"HS256"`

	// SecretKey signs HMAC tokens
	SecretKey string `env:"SECRET_KEY" default:""`

	// SigningKeyFile is the path to the RSA private key used by RS256; created if missing
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/storage/chatsvc.key"`

	// TokenTTL is the validity duration of issued tokens
	TokenTTL time.Duration `env:"TOKEN_TTL" default:"30m"`

	// Issuer is written to and required in the "iss" claim
	Issuer string `env:"ISSUER" default:"web-chat"`
}

// TokenCodec issues and verifies signed, time-bound identity tokens.
type TokenCodec interface {
	// Issue produces a signed token for subject, expiring after the configured TTL.
	Issue(subject string) (domain.SignedToken, error)

	// Verify checks signature and expiry and returns the token's claims.
	// Any failure is reported as domain.ErrInvalidAuthToken.
	Verify(token string) (domain.AuthToken, error)
}

// JWTTokenCodec implements TokenCodec with JSON Web Tokens.
type JWTTokenCodec struct {
	cfg       TokenConfig
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

var (
	_ TokenCodec          = (*JWTTokenCodec)(nil)
	_ http_.TokenVerifier = (*JWTTokenCodec)(nil)
)

// TokenCodecOption customizes a JWTTokenCodec.
type TokenCodecOption func(*JWTTokenCodec)

// WithClock replaces the codec's time source.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *JWTTokenCodec) {
		c.now = now
	}
}

// NewJWTTokenCodec creates a codec for cfg. RS256 loads (or generates) the key in cfg.SigningKeyFile.
func NewJWTTokenCodec(cfg TokenConfig, opts ...TokenCodecOption) (*JWTTokenCodec, error) {
	if cfg.TokenTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	codec := &JWTTokenCodec{
		cfg: cfg,
		now: time.Now,
	}

	switch cfg.Algorithm {
	case "HS256", "HS384", "HS512":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Algorithm, ErrNoSecretKey)
		}

		codec.method = jwt.GetSigningMethod(cfg.Algorithm)
		codec.signKey = []byte(cfg.SecretKey)
		codec.verifyKey = []byte(cfg.SecretKey)
	case "RS256":
		signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("get private key: %w", err)
		}

		codec.method = jwt.SigningMethodRS256
		codec.signKey = signingKey
		codec.verifyKey = &signingKey.PublicKey
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}

	for _, opt := range opts {
		opt(codec)
	}

	return codec, nil
}

// NewRSATokenCodec creates an RS256 codec for an already loaded key.
func NewRSATokenCodec(cfg TokenConfig, signingKey *rsa.PrivateKey, opts ...TokenCodecOption) (*JWTTokenCodec, error) {
	if cfg.TokenTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	cfg.Algorithm = jwt.SigningMethodRS256.Alg()

	codec := &JWTTokenCodec{
		cfg:       cfg,
		method:    jwt.SigningMethodRS256,
		signKey:   signingKey,
		verifyKey: &signingKey.PublicKey,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(codec)
	}

	return codec, nil
}

// Issue implements TokenCodec.Issue.
func (c *JWTTokenCodec) Issue(subject string) (domain.SignedToken, error) {
	now := c.now()

	//nolint:exhaustruct
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
	}

	encoded, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return domain.SignedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.SignedToken{
		Encoded: encoded,
		Claims: domain.AuthToken{
			Username:  subject,
			IssuedAt:  claims.IssuedAt.Unix(),
			ExpiresAt: claims.ExpiresAt.Unix(),
		},
	}, nil
}

// Verify implements TokenCodec.Verify.
func (c *JWTTokenCodec) Verify(token string) (domain.AuthToken, error) {
	if token == "" {
		return domain.AuthToken{}, domain.ErrInvalidAuthToken
	}

	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.verifyKey, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, err)
	}

	if claims.Subject == "" {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, errors.New("no subject"))
	}

	authToken := domain.AuthToken{
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}

	if claims.IssuedAt != nil {
		authToken.IssuedAt = claims.IssuedAt.Unix()
	}

	return authToken, nil
}
