package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	"github.com/Bars-377/web-chat/internal/repo/message"
	"github.com/Bars-377/web-chat/internal/repo/sqlite"
	"github.com/Bars-377/web-chat/internal/repo/user"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	reader *sql.DB
	log    logging.Logger
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStoreFactory creates a factory function that returns a new SQLiteStore.
func SQLiteStoreFactory(cfg sqlite.Config) Factory {
	return func(ctx context.Context) (Store, error) {
		return NewSQLiteStore(ctx, cfg)
	}
}

// NewSQLiteStore opens the database described by cfg.
func NewSQLiteStore(ctx context.Context, cfg sqlite.Config) (*SQLiteStore, error) {
	log := logging.GetLogger("repo.store.sqlite_store").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sqlite.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	reader, err := sqlite.OpenReadOnly(ctx, cfg)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}

	log.DebugContext(ctx, "database opened")

	return &SQLiteStore{
		db:     db,
		reader: reader,
		log:    log,
	}, nil
}

// Begin implements Store.Begin.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	return begin(ctx, s.db)
}

// BeginRead implements Store.BeginRead on the read-only pool.
func (s *SQLiteStore) BeginRead(ctx context.Context) (Tx, error) {
	return begin(ctx, s.reader)
}

func begin(ctx context.Context, db *sql.DB) (Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("begin tx: %w", err))
	}

	return &sqliteTx{
		tx:       tx,
		users:    user.NewSQLiteUserRepository(tx),
		messages: message.NewSQLiteMessageRepository(tx),
	}, nil
}

// Close implements Store.Close by closing both connection pools.
func (s *SQLiteStore) Close() error {
	var errs []error

	if err := s.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader: %w", err))
	}

	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}

	return errors.Join(errs...)
}

type sqliteTx struct {
	tx       *sql.Tx
	users    *user.SQLiteUserRepository
	messages *message.SQLiteMessageRepository
}

func (t *sqliteTx) Users() user.Repository       { return t.users }
func (t *sqliteTx) Messages() message.Repository { return t.messages }

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (t *sqliteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}

	return nil
}
