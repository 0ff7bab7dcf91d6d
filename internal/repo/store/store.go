// Package store combines the user and message repositories into transactional units of work.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/repo/message"
	"github.com/Bars-377/web-chat/internal/repo/user"
)

// Store hands out transactions over the chat database.
type Store interface {
	// Begin starts a new transaction. The caller must end it with Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	// BeginRead starts a transaction that only reads and does not wait on writers.
	BeginRead(ctx context.Context) (Tx, error)

	// Close releases any resources held by the store.
	Close() error
}

// Tx is a single transaction exposing the repositories bound to it.
type Tx interface {
	Users() user.Repository
	Messages() message.Repository
	Commit() error
	Rollback() error
}

// Factory is a function that creates a new Store instance.
type Factory func(ctx context.Context) (Store, error)

// WithTx runs fn inside a transaction of s. The transaction is committed when fn
// returns nil and rolled back when fn returns an error or panics; a panic is
// re-raised after the rollback.
func WithTx(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	return run(tx, fn)
}

// WithReadTx is WithTx for units of work that only read. Writes made through
// the transaction fail.
func WithReadTx(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.BeginRead(ctx)
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}

	return run(tx, fn)
}

func run(tx Tx, fn func(tx Tx) error) (err error) {
	committed := false

	defer func() {
		if committed {
			return
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("commit: %w", err))
	}

	committed = true

	return nil
}
