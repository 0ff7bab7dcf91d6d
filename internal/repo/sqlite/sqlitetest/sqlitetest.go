// Package sqlitetest opens throwaway databases for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bars-377/web-chat/internal/repo/sqlite"
)

// OpenDB opens a fresh database in a temporary directory owned by t.
func OpenDB(t testing.TB) (*sql.DB, sqlite.Config) {
	t.Helper()

	cfg := sqlite.Config{
		DatabasePath: filepath.Join(t.TempDir(), "chat.db"),
		BusyTimeout:  5 * time.Second,
	}

	db, err := sqlite.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db, cfg
}
