package authsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	"github.com/Bars-377/web-chat/internal/repo/store"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	Token TokenConfig `envPrefix:"TOKEN_"`

	// BcryptCost is the work factor for password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// AuthService provides authentication and user management functionality.
// It handles user registration, login, and token validation.
type AuthService struct {
	Store  store.Store
	Tokens TokenCodec
	Hasher PasswordHasher
	Log    logging.Logger

	decoyOnce sync.Once
	decoyHash []byte
}

// NewAuthService creates a new AuthService on top of the given store and token codec.
func NewAuthService(s store.Store, tokens TokenCodec, cfg AuthConfig) *AuthService {
	return &AuthService{
		Store:  s,
		Tokens: tokens,
		Hasher: BcryptPasswordHasher{Cost: cfg.BcryptCost},
		Log:    logging.GetLogger("svc.authsvc.auth_service"),
	}
}

// RegisterUser creates a new user account and issues a token for it.
// The password is hashed before storage. Returns a *domain.ValidationError for
// malformed input and a *domain.ConflictError if the username or email is taken.
func (s *AuthService) RegisterUser(
	ctx context.Context,
	req RegisterRequest,
) (_ *domain.User, _ domain.SignedToken, err error) {
	log := s.Log.With(logging.Group("user", "username", req.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, domain.SignedToken{}, err
	}

	passwordHash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, domain.SignedToken{}, fmt.Errorf("hash password: %w", err)
	}

	var user *domain.User

	err = store.WithTx(ctx, s.Store, func(tx store.Tx) error {
		users := tx.Users()

		if _, found, err := users.FindByUsername(ctx, req.Username); err != nil {
			return fmt.Errorf("find by username: %w", err)
		} else if found {
			return &domain.ConflictError{Field: domain.FieldUsername}
		}

		if _, found, err := users.FindByEmail(ctx, req.Email); err != nil {
			return fmt.Errorf("find by email: %w", err)
		} else if found {
			return &domain.ConflictError{Field: domain.FieldEmail}
		}

		user, err = users.Create(ctx, req.Username, req.Email, passwordHash)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, domain.SignedToken{}, err
	}

	token, err := s.Tokens.Issue(user.Username)
	if err != nil {
		return nil, domain.SignedToken{}, fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// Login authenticates a user and issues a signed token.
// Unknown users and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (_ domain.SignedToken, err error) {
	log := s.Log.With(logging.Group("user", "username", req.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	if err := req.Validate(); err != nil {
		return domain.SignedToken{}, err
	}

	// Authenticate user
	var (
		user  *domain.User
		found bool
	)

	err = store.WithReadTx(ctx, s.Store, func(tx store.Tx) (err error) {
		user, found, err = tx.Users().FindByUsername(ctx, req.Username)

		return err
	})
	if err != nil {
		return domain.SignedToken{}, fmt.Errorf("get user: %w", err)
	} else if !found {
		// Unknown users still cost one comparison.
		if hash := s.decoy(); hash != nil {
			_, _ = s.Hasher.Compare(hash, req.Password)
		}

		return domain.SignedToken{}, errors.Join(domain.ErrInvalidCredentials, domain.ErrUserNotFound)
	}

	match, err := s.Hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return domain.SignedToken{}, fmt.Errorf("compare password: %w", err)
	} else if !match {
		return domain.SignedToken{}, domain.ErrInvalidCredentials
	}

	// Generate token
	token, err := s.Tokens.Issue(user.Username)
	if err != nil {
		return domain.SignedToken{}, fmt.Errorf("issue token: %w", err)
	}

	log.With(logging.Group("token",
		"exp", time.Unix(token.Claims.ExpiresAt, 0).UTC().Format(time.RFC3339),
		"iat", time.Unix(token.Claims.IssuedAt, 0).UTC().Format(time.RFC3339),
	)).DebugContext(ctx, "token issued")

	return token, nil
}

// decoy returns a hash made once with the configured hasher, compared against
// when a login names an unknown user. It is nil if hashing failed.
func (s *AuthService) decoy() []byte {
	s.decoyOnce.Do(func() {
		hash, err := s.Hasher.Hash("decoy-password")
		if err != nil {
			s.Log.Error("create decoy hash failed", "error", err)

			return
		}

		s.decoyHash = hash
	})

	return s.decoyHash
}

// ValidateToken verifies a token's signature and expiration.
// Returns the decoded claims if valid, or an error wrapping domain.ErrInvalidAuthToken.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (token domain.AuthToken, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "validate token failed", "error", err)
		} else {
			log.DebugContext(ctx, "token validated", logging.Group("token",
				"username", token.Username,
				"exp", time.Unix(token.ExpiresAt, 0).UTC().Format(time.RFC3339),
			))
		}
	}()

	token, err = s.Tokens.Verify(tokenString)
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("validate token: %w", err)
	}

	return token, nil
}
