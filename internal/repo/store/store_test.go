package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/repo/sqlite/sqlitetest"
	"github.com/Bars-377/web-chat/internal/repo/store"
)

var errAbort = errors.New("abort")

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	_, cfg := sqlitetest.OpenDB(t)

	s, err := store.NewSQLiteStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func countUsers(t *testing.T, s store.Store, username string) bool {
	t.Helper()

	var found bool

	err := store.WithTx(context.Background(), s, func(tx store.Tx) (err error) {
		_, found, err = tx.Users().FindByUsername(context.Background(), username)

		return err
	})
	require.NoError(t, err)

	return found
}

func TestWithTx_Commit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, s, func(tx store.Tx) error {
		_, err := tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash"))

		return err
	})
	require.NoError(t, err)

	assert.True(t, countUsers(t, s, "alice"))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, s, func(tx store.Tx) error {
		if _, err := tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash")); err != nil {
			return err
		}

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.False(t, countUsers(t, s, "alice"))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	assert.PanicsWithValue(t, "boom", func() {
		_ = store.WithTx(ctx, s, func(tx store.Tx) error {
			if _, err := tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash")); err != nil {
				return err
			}

			panic("boom")
		})
	})

	assert.False(t, countUsers(t, s, "alice"))
}

func TestWithTx_MessagesShareTransaction(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, s, func(tx store.Tx) error {
		alice, err := tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash"))
		if err != nil {
			return err
		}

		_, err = tx.Messages().Append(ctx, domain.NewSelfMessage(*alice, "hello"))

		return err
	})
	require.NoError(t, err)

	var messages []domain.Message

	err = store.WithTx(ctx, s, func(tx store.Tx) (err error) {
		messages, err = tx.Messages().ListAll(ctx)

		return err
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "alice", messages[0].Username)
}

func TestWithTx_BeginFailure(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Close())

	called := false
	err := store.WithTx(context.Background(), s, func(store.Tx) error {
		called = true

		return nil
	})

	require.ErrorIs(t, err, domain.ErrStorage)
	assert.False(t, called)
}

func TestWithTx_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var alice *domain.User

	require.NoError(t, store.WithTx(ctx, s, func(tx store.Tx) (err error) {
		alice, err = tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash"))

		return err
	}))

	const writers = 8

	errs := make(chan error, writers)

	for range writers {
		go func() {
			errs <- store.WithTx(ctx, s, func(tx store.Tx) error {
				_, err := tx.Messages().Append(ctx, domain.NewSelfMessage(*alice, "hi"))

				return err
			})
		}()
	}

	for range writers {
		require.NoError(t, <-errs)
	}

	var messages []domain.Message

	require.NoError(t, store.WithTx(ctx, s, func(tx store.Tx) (err error) {
		messages, err = tx.Messages().ListAll(ctx)

		return err
	}))
	assert.Len(t, messages, writers)
}

func TestWithReadTx_DoesNotWaitForWriter(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	writer, err := s.Begin(ctx)
	require.NoError(t, err)

	t.Cleanup(func() { _ = writer.Rollback() })

	_, err = writer.Users().Create(ctx, "alice", "alice@example.com", []byte("hash"))
	require.NoError(t, err)

	start := time.Now()

	var found bool

	err = store.WithReadTx(ctx, s, func(tx store.Tx) (err error) {
		_, found, err = tx.Users().FindByUsername(ctx, "alice")

		return err
	})
	require.NoError(t, err)
	assert.False(t, found, "uncommitted row must not be visible")
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, writer.Commit())
	assert.True(t, countUsers(t, s, "alice"))
}

func TestWithReadTx_RejectsWrites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := store.WithReadTx(ctx, s, func(tx store.Tx) error {
		_, err := tx.Users().Create(ctx, "alice", "alice@example.com", []byte("hash"))

		return err
	})
	require.Error(t, err)

	assert.False(t, countUsers(t, s, "alice"))
}
