package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/repo/sqlite/sqlitetest"
	"github.com/Bars-377/web-chat/internal/repo/user"
)

func TestSQLiteUserRepository_Create(t *testing.T) {
	t.Parallel()

	db, _ := sqlitetest.OpenDB(t)
	repo := user.NewSQLiteUserRepository(db)
	ctx := context.Background()

	alice, err := repo.Create(ctx, "alice", "alice@example.com", []byte("hash"))
	require.NoError(t, err)
	assert.Positive(t, alice.ID)
	assert.Equal(t, "alice", alice.Username)

	tests := []struct {
		name      string
		username  string
		email     string
		wantField string
	}{
		{
			name:      "duplicate username",
			username:  "alice",
			email:     "other@example.com",
			wantField: domain.FieldUsername,
		},
		{
			name:      "duplicate email",
			username:  "bob",
			email:     "alice@example.com",
			wantField: domain.FieldEmail,
		},
		{
			name:      "duplicate username and email",
			username:  "alice",
			email:     "alice@example.com",
			wantField: domain.FieldUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.username, tt.email, []byte("hash"))
			require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

			var conflict *domain.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.wantField, conflict.Field)
		})
	}
}

func TestSQLiteUserRepository_Find(t *testing.T) {
	t.Parallel()

	db, _ := sqlitetest.OpenDB(t)
	repo := user.NewSQLiteUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "alice@example.com", []byte("hash"))
	require.NoError(t, err)

	byName, ok, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created, byName)

	byEmail, ok, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, byEmail.ID)

	missing, ok, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, missing)

	_, ok, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteUserRepository_StorageError(t *testing.T) {
	t.Parallel()

	db, _ := sqlitetest.OpenDB(t)
	repo := user.NewSQLiteUserRepository(db)

	require.NoError(t, db.Close())

	_, _, err := repo.FindByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = repo.Create(context.Background(), "alice", "alice@example.com", nil)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
