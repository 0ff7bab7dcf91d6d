package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/repo/sqlite"
)

const selectUser = "SELECT id, username, email, password_hash, created_at FROM users"

// SQLiteUserRepository implements Repository on top of a SQLite connection or transaction.
type SQLiteUserRepository struct {
	q   sqlite.Querier
	now func() time.Time
}

var _ Repository = (*SQLiteUserRepository)(nil)

// NewSQLiteUserRepository creates a repository issuing its statements through q.
func NewSQLiteUserRepository(q sqlite.Querier) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		q:   q,
		now: time.Now,
	}
}

// FindByUsername implements Repository.FindByUsername.
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, bool, error) {
	return r.findOne(ctx, selectUser+" WHERE username = ?", username)
}

// FindByEmail implements Repository.FindByEmail.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	return r.findOne(ctx, selectUser+" WHERE email = ?", email)
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, bool, error) {
	var user domain.User

	err := r.q.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, errors.Join(domain.ErrStorage, fmt.Errorf("query user: %w", err))
	}

	return &user, true, nil
}

// Create implements Repository.Create. A UNIQUE violation is attributed to a
// field by looking the username up again in the same transaction.
func (r *SQLiteUserRepository) Create(
	ctx context.Context,
	username, email string,
	passwordHash []byte,
) (*domain.User, error) {
	user := domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().Unix(),
	}

	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return nil, r.conflict(ctx, username, err)
		}

		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("insert user: %w", err))
	}

	if user.ID, err = res.LastInsertId(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("last insert id: %w", err))
	}

	return &user, nil
}

func (r *SQLiteUserRepository) conflict(ctx context.Context, username string, cause error) error {
	field := domain.FieldEmail

	if _, found, err := r.FindByUsername(ctx, username); err != nil {
		return fmt.Errorf("resolve conflict: %w", errors.Join(err, cause))
	} else if found {
		field = domain.FieldUsername
	}

	return fmt.Errorf("insert user: %w", &domain.ConflictError{Field: field})
}
