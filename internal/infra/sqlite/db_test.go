package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/GeorgeMargineanu/toolgate/internal/infra/sqlite"
)

func TestNewDB_OpenAndClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "toolgate.db")
	db, err := sqlite.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB(%q) error = %v; want nil", path, err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("db.Close() error = %v; want nil", err)
	}
}

func TestNewDB_WALMode(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	var mode string
	row := db.QueryRow("PRAGMA journal_mode")
	if err := row.Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode scan error = %v", err)
	}

	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q; want wal (or memory for :memory: DBs)", mode)
	}
}

func TestNewDB_ForeignKeysEnabled(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	var fkEnabled int
	row := db.QueryRow("PRAGMA foreign_keys")
	if err := row.Scan(&fkEnabled); err != nil {
		t.Fatalf("PRAGMA foreign_keys scan error = %v", err)
	}

	if fkEnabled != 1 {
		t.Errorf("foreign_keys = %d; want 1 (enabled)", fkEnabled)
	}
}

func TestNewDB_MissingParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does", "not", "exist", "toolgate.db")
	if _, err := sqlite.NewDB(path); err == nil {
		t.Fatal("NewDB() with missing parent dir: want error, got nil")
	}
}

// mustOpenDB opens an in-memory database, pinned to a single connection so
// every query sees the same memory-backed store.
func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) error = %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
